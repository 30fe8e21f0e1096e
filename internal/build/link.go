package build

import (
	"fmt"

	"github.com/jward/devana/internal/model"
)

// Link combines per-unit arenas into one. Units are imported in order, so
// reopened namespaces list their children unit by unit; the merger then
// folds declarations that only meet across units, such as a forward
// declaration in one unit and the definition in another. The input arenas
// are consumed.
func Link(units []*model.Arena, maxDiagnostics int) (*model.Arena, error) {
	switch len(units) {
	case 0:
		return model.NewArena(maxDiagnostics), nil
	case 1:
		return units[0], nil
	}
	out := model.NewArena(maxDiagnostics)
	for i, u := range units {
		if err := out.Import(u); err != nil {
			return nil, fmt.Errorf("build: link unit %d: %w", i, err)
		}
	}
	Merge(out)
	return out, nil
}
