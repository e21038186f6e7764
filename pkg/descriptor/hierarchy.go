package descriptor

import (
	"fmt"

	"github.com/daviddao/liftplan/pkg/model"
)

// BuildHierarchy computes the reflexive-transitive subtype closure from a
// child→parent map. The root type is always present; a parent that is not
// itself declared is placed directly under the root.
func BuildHierarchy(parents map[string]string) (model.TypeHierarchy, error) {
	if p, ok := parents[model.RootType]; ok && p != "" {
		return nil, fmt.Errorf("%w: root type %q has parent %q", model.ErrTypeCycle, model.RootType, p)
	}
	parentOf := func(t string) string {
		if p := parents[t]; p != "" {
			return p
		}
		return model.RootType
	}

	h := model.TypeHierarchy{model.RootType: {model.RootType: {}}}
	for child := range parents {
		if child == model.RootType {
			continue
		}
		seen := map[string]bool{child: true}
		for t := child; t != model.RootType; {
			p := parentOf(t)
			if seen[p] {
				return nil, fmt.Errorf("%w: %s", model.ErrTypeCycle, child)
			}
			seen[p] = true
			t = p
		}
		for t := range seen {
			if h[t] == nil {
				h[t] = map[string]struct{}{t: {}}
			}
			h[t][child] = struct{}{}
		}
	}
	return h, nil
}
