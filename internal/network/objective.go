package network

import (
	"fmt"
	"sort"
	"strings"
)

// Objective selects the linear objective the solver maximises.
// It is either a SingleReaction or a WeightedSum.
type Objective interface {
	// Coefficients returns reaction id -> objective coefficient.
	Coefficients() map[string]float64
	String() string
	isObjective()
}

// SingleReaction maximises the flux of one reaction with coefficient 1.
type SingleReaction struct {
	ID string
}

// Coefficients implements Objective.
func (o SingleReaction) Coefficients() map[string]float64 {
	return map[string]float64{o.ID: 1}
}

func (o SingleReaction) String() string { return o.ID }

func (SingleReaction) isObjective() {}

// WeightedSum maximises a linear combination of reaction fluxes.
type WeightedSum struct {
	Weights map[string]float64
}

// Coefficients implements Objective.
func (o WeightedSum) Coefficients() map[string]float64 {
	out := make(map[string]float64, len(o.Weights))
	for id, w := range o.Weights {
		out[id] = w
	}
	return out
}

func (o WeightedSum) String() string {
	ids := make([]string, 0, len(o.Weights))
	for id := range o.Weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%g*%s", o.Weights[id], id)
	}
	return strings.Join(parts, " + ")
}

func (WeightedSum) isObjective() {}

// ApplyObjective zeroes every objective coefficient of m and then sets the
// ones named by obj. An objective naming an unknown reaction is rejected.
func (m *Model) ApplyObjective(obj Objective) error {
	if obj == nil {
		return fmt.Errorf("network: objective is required")
	}
	coeffs := obj.Coefficients()
	if len(coeffs) == 0 {
		return fmt.Errorf("network: objective %q names no reactions", obj.String())
	}
	for id := range coeffs {
		if _, ok := m.Reactions[id]; !ok {
			return fmt.Errorf("network: objective: %w: %s", ErrUnknownReaction, id)
		}
	}
	for _, r := range m.Reactions {
		r.ObjectiveCoefficient = 0
	}
	for id, c := range coeffs {
		m.Reactions[id].ObjectiveCoefficient = c
	}
	return nil
}
