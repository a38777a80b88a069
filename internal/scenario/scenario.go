// Package scenario derives constrained variants of a base network. A
// Scenario is plain data; Builder turns (base, scenario) into a new model
// without touching the base.
package scenario

import (
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/redoxflux/internal/network"
)

// DemandPrefix is prepended to a metabolite id to name its demand reaction.
const DemandPrefix = "DM_"

// DefaultDemandCap is the upper bound of a demand reaction when none is given.
const DefaultDemandCap = 1000.0

// Bounds is a (lower, upper) flux pair.
type Bounds struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Demand is a synthetic reaction {metabolite: -1} with bounds (0, Cap) that
// exposes an internal metabolite as an optimizable output.
type Demand struct {
	ID         string  `json:"id" yaml:"id"`
	Metabolite string  `json:"metabolite" yaml:"metabolite"`
	Cap        float64 `json:"cap" yaml:"cap"`
}

// NewDemand returns the demand reaction for met. A non-positive cap
// selects DefaultDemandCap.
func NewDemand(met string, cap float64) Demand {
	if cap <= 0 {
		cap = DefaultDemandCap
	}
	return Demand{ID: DemandPrefix + met, Metabolite: met, Cap: cap}
}

func (d Demand) reaction() *network.Reaction {
	return &network.Reaction{
		ID:            d.ID,
		Name:          d.Metabolite + " demand",
		LowerBound:    0,
		UpperBound:    d.Cap,
		Stoichiometry: map[string]float64{d.Metabolite: -1},
	}
}

// Scenario describes how to derive a variant from a base network. Steps
// are applied in field order: bound overrides, medium, knockouts, demands,
// objective.
type Scenario struct {
	Name string `json:"name,omitempty"`
	// BoundOverrides replaces the bounds of the named reactions.
	BoundOverrides map[string]Bounds `json:"bound_overrides,omitempty"`
	// Medium maps an exchange reaction to its maximum uptake magnitude. The
	// lower bound becomes -uptake; exchanges not listed keep their bounds.
	Medium map[string]float64 `json:"medium,omitempty"`
	// Knockouts are forced to (0, 0).
	Knockouts []string `json:"knockouts,omitempty"`
	Demands   []Demand `json:"demands,omitempty"`
	// Objective is optional; when set it is applied to the built model.
	Objective network.Objective `json:"-"`
}

// Validate checks value ranges. Reaction ids are checked against a model
// only at build time.
func (s Scenario) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.BoundOverrides, validation.By(func(any) error {
			for id, b := range s.BoundOverrides {
				if b.Lower > b.Upper {
					return fmt.Errorf("%s: lower bound %g exceeds upper bound %g", id, b.Lower, b.Upper)
				}
			}
			return nil
		})),
		validation.Field(&s.Medium, validation.By(func(any) error {
			for id, v := range s.Medium {
				if v < 0 {
					return fmt.Errorf("%s: uptake must not be negative", id)
				}
			}
			return nil
		})),
		validation.Field(&s.Demands, validation.By(func(any) error {
			for _, d := range s.Demands {
				if d.ID == "" || d.Metabolite == "" {
					return fmt.Errorf("demand needs an id and a metabolite")
				}
				if d.Cap < 0 {
					return fmt.Errorf("%s: cap must not be negative", d.ID)
				}
			}
			return nil
		})),
	)
}

// With returns s composed with o: o's overrides and medium entries win, its
// knockouts and demands are appended, and its objective replaces s's when set.
func (s Scenario) With(o Scenario) Scenario {
	out := Scenario{
		Name:           s.Name,
		BoundOverrides: make(map[string]Bounds, len(s.BoundOverrides)+len(o.BoundOverrides)),
		Medium:         make(map[string]float64, len(s.Medium)+len(o.Medium)),
		Objective:      s.Objective,
	}
	if o.Name != "" {
		if out.Name != "" {
			out.Name += "+" + o.Name
		} else {
			out.Name = o.Name
		}
	}
	for id, b := range s.BoundOverrides {
		out.BoundOverrides[id] = b
	}
	for id, b := range o.BoundOverrides {
		out.BoundOverrides[id] = b
	}
	for id, v := range s.Medium {
		out.Medium[id] = v
	}
	for id, v := range o.Medium {
		out.Medium[id] = v
	}
	out.Knockouts = appendUnique(append([]string(nil), s.Knockouts...), o.Knockouts...)
	out.Demands = append(append([]Demand(nil), s.Demands...), o.Demands...)
	if o.Objective != nil {
		out.Objective = o.Objective
	}
	return out
}

func appendUnique(dst []string, ids ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, id := range dst {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			dst = append(dst, id)
		}
	}
	return dst
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
