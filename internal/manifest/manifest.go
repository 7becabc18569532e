// Package manifest defines the declarative pipeline definition for the
// DTBase build-and-publish toolkit: which branch pushes trigger a run, which
// environment label (and therefore image tag) each branch maps to, and which
// build-file and context produce the image.
package manifest

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/dtbase/dt-deployer/internal/constants"
)

// tagPattern is the registry tag grammar; environment labels become tags
var tagPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,127}$`)

// PushTrigger lists the branches whose pushes start a pipeline run
type PushTrigger struct {
	Branches []string `yaml:"branches"`
}

// Triggers declares which events start a pipeline run
type Triggers struct {
	Push     PushTrigger `yaml:"push"`
	Dispatch bool        `yaml:"dispatch"`
}

// Manifest is the pipeline definition, normally read from dt-pipeline.yml
type Manifest struct {
	Image     string   `yaml:"image"`
	Buildfile string   `yaml:"buildfile"`
	Context   string   `yaml:"context"`
	Registry  string   `yaml:"registry,omitempty"`
	On        Triggers `yaml:"on"`

	// Environments maps a trigger branch to its environment label; the
	// label is also the tag of the pushed image
	Environments map[string]string `yaml:"environments"`
}

// Default returns the stock DTBase pipeline: push builds for main, develop
// and test-actions, manual dispatch enabled, and the branch labels
// {main: main, develop: dev, test-actions: test-actions}
func Default() Manifest {
	return Manifest{
		Image:     constants.DefaultImage,
		Buildfile: constants.DefaultBuildfile,
		Context:   ".",
		On: Triggers{
			Push: PushTrigger{
				Branches: []string{
					constants.BranchMain,
					constants.BranchDevelop,
					constants.BranchTestActions,
				},
			},
			Dispatch: true,
		},
		Environments: map[string]string{
			constants.BranchMain:        constants.EnvMain,
			constants.BranchDevelop:     constants.EnvDev,
			constants.BranchTestActions: constants.EnvTestActions,
		},
	}
}

// Load reads and parses the manifest at path
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest %v: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals a manifest document and fills absent fields from Default.
// An empty document yields the stock pipeline.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}

	defaults := Default()
	if m.Image == "" {
		m.Image = defaults.Image
	}
	if m.Buildfile == "" {
		m.Buildfile = defaults.Buildfile
	}
	if m.Context == "" {
		m.Context = defaults.Context
	}
	if len(m.On.Push.Branches) == 0 && len(m.Environments) == 0 {
		m.On = defaults.On
		m.Environments = defaults.Environments
	}

	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Document renders the manifest as a generic document for policy
// evaluation
func (m Manifest) Document() (map[string]interface{}, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode manifest document: %w", err)
	}
	return doc, nil
}

// Validate checks the manifest for internal consistency: an image and
// build-file must be present, every trigger branch must map to an
// environment label, and every label must be valid tag syntax.
func (m Manifest) Validate() error {
	if m.Image == "" {
		return fmt.Errorf("manifest: image is required")
	}
	if m.Buildfile == "" {
		return fmt.Errorf("manifest: buildfile is required")
	}

	for _, branch := range m.On.Push.Branches {
		if _, ok := m.Environments[branch]; !ok {
			return fmt.Errorf("manifest: trigger branch %v has no environment label", branch)
		}
	}
	for branch, label := range m.Environments {
		if !tagPattern.MatchString(label) {
			return fmt.Errorf("manifest: environment label %v for branch %v is not a valid tag", label, branch)
		}
	}

	return nil
}
