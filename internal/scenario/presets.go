package scenario

import (
	"fmt"
	"math"

	"github.com/starford/redoxflux/internal/network"
)

// MaintenanceCap is the upper bound maintenance reactions are clamped to in
// a cell-free system.
const MaintenanceCap = 1.0

// CellFree returns the scenario for a cell-free system built on base:
// biomass reactions are closed, maintenance reactions are clamped to
// (0, min(upper, MaintenanceCap)), and one demand per product is added.
func CellFree(base *network.Model, demands ...Demand) Scenario {
	sc := Scenario{Name: "cell_free", BoundOverrides: make(map[string]Bounds)}
	for _, id := range base.ReactionIDs() {
		r := base.Reactions[id]
		switch {
		case r.IsBiomass() || id == base.GrowthReaction:
			sc.BoundOverrides[id] = Bounds{}
		case r.IsMaintenance():
			sc.BoundOverrides[id] = Bounds{Lower: 0, Upper: math.Min(r.UpperBound, MaintenanceCap)}
		}
	}
	sc.Demands = append(sc.Demands, demands...)
	return sc
}

// GrowthFloor returns a scenario forcing at least floor flux through the
// growth reaction of base. The upper bound is kept.
func GrowthFloor(base *network.Model, floor float64) (Scenario, error) {
	r, ok := base.Reaction(base.GrowthReaction)
	if base.GrowthReaction == "" || !ok {
		return Scenario{}, ErrNoGrowthReaction
	}
	if floor > r.UpperBound {
		return Scenario{}, fmt.Errorf("scenario: growth floor %g exceeds %s upper bound %g", floor, r.ID, r.UpperBound)
	}
	return Scenario{
		Name:           fmt.Sprintf("growth_floor_%g", floor),
		BoundOverrides: map[string]Bounds{r.ID: {Lower: floor, Upper: r.UpperBound}},
	}, nil
}

// Knockout returns a scenario forcing every id to (0, 0).
func Knockout(ids ...string) Scenario {
	return Scenario{Name: "knockout", Knockouts: append([]string(nil), ids...)}
}

// Medium returns a scenario that sets the given uptake limits.
func Medium(uptake map[string]float64) Scenario {
	sc := Scenario{Name: "medium", Medium: make(map[string]float64, len(uptake))}
	for id, v := range uptake {
		sc.Medium[id] = v
	}
	return sc
}
