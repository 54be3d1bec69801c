package installer

import (
	"sort"
	"strings"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/types"
)

// DependencyID resolves a depends_on entry of step to a step ID. Bare names
// refer to steps of the same plugin; "plugin/step" crosses plugins.
func DependencyID(step types.InstallStep, dep string) string {
	if strings.Contains(dep, "/") || step.Plugin == "" {
		return dep
	}
	return step.Plugin + "/" + dep
}

// Order sorts steps so every step follows its dependencies. Among steps
// that are ready at the same time, declaration order wins. Unknown
// dependencies and cycles are CONFIG_INVALID errors.
func Order(steps []types.InstallStep) ([]types.InstallStep, error) {
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		if _, dup := index[s.ID()]; dup {
			return nil, errors.Newf(errors.ErrConfigValid, "duplicate step %s", s.ID())
		}
		index[s.ID()] = i
	}

	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if _, ok := index[DependencyID(s, dep)]; !ok {
				return nil, errors.Newf(errors.ErrConfigValid, "step %s depends on unknown step %s", s.ID(), dep).
					WithDetail("step", s.ID())
			}
		}
	}

	placed := make([]bool, len(steps))
	ordered := make([]types.InstallStep, 0, len(steps))
	for len(ordered) < len(steps) {
		progress := false
		for i, s := range steps {
			if placed[i] || !depsPlaced(s, index, placed) {
				continue
			}
			placed[i] = true
			ordered = append(ordered, s)
			progress = true
			break
		}
		if !progress {
			var stuck []string
			for i, s := range steps {
				if !placed[i] {
					stuck = append(stuck, s.ID())
				}
			}
			sort.Strings(stuck)
			return nil, errors.Newf(errors.ErrConfigValid, "dependency cycle among steps: %s", strings.Join(stuck, ", ")).
				WithDetail("steps", stuck)
		}
	}
	return ordered, nil
}

func depsPlaced(s types.InstallStep, index map[string]int, placed []bool) bool {
	for _, dep := range s.DependsOn {
		if !placed[index[DependencyID(s, dep)]] {
			return false
		}
	}
	return true
}
