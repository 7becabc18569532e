package models

import "strings"

// Event kinds delivered by the CI platform
const (
	EventPush     = "push"
	EventDispatch = "dispatch"
)

// Event is a single source-control trigger delivered by the CI platform
type Event struct {
	Kind     string `json:"kind"`     // push or dispatch
	Ref      string `json:"ref"`      // Fully qualified ref (refs/heads/main) or bare branch name
	Revision string `json:"revision"` // Commit hash of the triggering revision
}

// Branch extracts the branch name from the event ref. Bare branch names pass
// through unchanged; refs that do not name a branch (tags, pull refs) return
// the empty string and never match a trigger.
func (e Event) Branch() string {
	if rest, ok := strings.CutPrefix(e.Ref, "refs/heads/"); ok {
		return rest
	}
	if strings.HasPrefix(e.Ref, "refs/") {
		return ""
	}
	return e.Ref
}
