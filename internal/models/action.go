package models

// Action is the single build-and-publish action resolved from a trigger
// event. At most one Action is produced per event.
type Action struct {
	Image     string `json:"image"`     // Image name
	Buildfile string `json:"buildfile"` // Build-file consumed by the external build tool
	Context   string `json:"context"`   // Build context directory
	Env       string `json:"env"`       // Environment label (main, dev, test-actions)
	Tag       string `json:"tag"`       // Image tag, equal to the environment label
	Branch    string `json:"branch"`    // Git branch that triggered the run
	Revision  string `json:"revision"`  // Git commit hash
}

// Reference renders the image reference pushed to the registry. An empty
// registry host yields a bare image:tag reference.
func (a Action) Reference(registry string) string {
	ref := a.Image + ":" + a.Tag
	if registry != "" {
		ref = registry + "/" + ref
	}
	return ref
}
