package manifest

import (
	"slices"

	"github.com/dtbase/dt-deployer/internal/models"
)

// Resolve maps a trigger event to at most one build-and-publish action.
// Push events match only the declared trigger branches; dispatch events match
// any branch with an environment label when dispatch is enabled. Everything
// else (unknown branches, tag refs, disabled dispatch) resolves to no action.
func (m Manifest) Resolve(event models.Event) (models.Action, bool) {
	branch := event.Branch()
	if branch == "" {
		return models.Action{}, false
	}

	switch event.Kind {
	case models.EventPush:
		if !slices.Contains(m.On.Push.Branches, branch) {
			return models.Action{}, false
		}
	case models.EventDispatch:
		if !m.On.Dispatch {
			return models.Action{}, false
		}
	default:
		return models.Action{}, false
	}

	label, ok := m.Environments[branch]
	if !ok {
		return models.Action{}, false
	}

	return models.Action{
		Image:     m.Image,
		Buildfile: m.Buildfile,
		Context:   m.Context,
		Env:       label,
		Tag:       label,
		Branch:    branch,
		Revision:  event.Revision,
	}, true
}
