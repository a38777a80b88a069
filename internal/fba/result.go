// Package fba runs single flux balance optimizations and normalizes the
// solver outcome into immutable result records.
package fba

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/starford/redoxflux/internal/solver"
)

// Status is the normalized outcome of a solve.
type Status string

// Status values.
const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusError      Status = "error"
)

// normalizeStatus maps a raw solver code onto the four-way taxonomy.
func normalizeStatus(raw string) Status {
	switch raw {
	case solver.StatusOptimal:
		return StatusOptimal
	case solver.StatusInfeasible, "infeasible_or_unbounded":
		return StatusInfeasible
	case solver.StatusUnbounded:
		return StatusUnbounded
	default:
		return StatusError
	}
}

// Result is the record of one optimization. It is a value type; the flux
// map is private and only handed out as a copy.
type Result struct {
	Status          Status
	Objective       string
	ObjectiveValue  float64
	SubstrateUptake float64
	Yield           float64
	GrowthRate      float64
	// Detail carries the raw solver status or error text for non-optimal results.
	Detail string

	fluxes map[string]float64
}

// Optimal reports whether the solve reached an optimum.
func (r Result) Optimal() bool { return r.Status == StatusOptimal }

// Flux returns the flux of reaction id, or 0 when absent.
func (r Result) Flux(id string) float64 { return r.fluxes[id] }

// Fluxes returns a copy of the flux assignment.
func (r Result) Fluxes() map[string]float64 {
	out := make(map[string]float64, len(r.fluxes))
	for id, v := range r.fluxes {
		out[id] = v
	}
	return out
}

// ActiveFlux is one reaction carrying flux above a threshold.
type ActiveFlux struct {
	Reaction string  `json:"reaction"`
	Flux     float64 `json:"flux"`
}

// ActiveReactions returns reactions whose |flux| exceeds threshold, sorted
// by descending magnitude and then by id.
func (r Result) ActiveReactions(threshold float64) []ActiveFlux {
	var out []ActiveFlux
	for id, v := range r.fluxes {
		if math.Abs(v) > threshold {
			out = append(out, ActiveFlux{Reaction: id, Flux: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Flux), math.Abs(out[j].Flux)
		if ai != aj {
			return ai > aj
		}
		return out[i].Reaction < out[j].Reaction
	})
	return out
}

type resultJSON struct {
	Status          Status             `json:"status"`
	Objective       string             `json:"objective"`
	ObjectiveValue  float64            `json:"objective_value"`
	SubstrateUptake float64            `json:"substrate_uptake_actual"`
	Yield           float64            `json:"yield_ratio"`
	GrowthRate      float64            `json:"growth_rate"`
	Detail          string             `json:"detail,omitempty"`
	Fluxes          map[string]float64 `json:"flux_by_reaction"`
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	fluxes := r.fluxes
	if fluxes == nil {
		fluxes = map[string]float64{}
	}
	return json.Marshal(resultJSON{
		Status:          r.Status,
		Objective:       r.Objective,
		ObjectiveValue:  r.ObjectiveValue,
		SubstrateUptake: r.SubstrateUptake,
		Yield:           r.Yield,
		GrowthRate:      r.GrowthRate,
		Detail:          r.Detail,
		Fluxes:          fluxes,
	})
}

// UnmarshalJSON implements json.Unmarshaler so stored runs can be read back.
func (r *Result) UnmarshalJSON(data []byte) error {
	var v resultJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Result{
		Status:          v.Status,
		Objective:       v.Objective,
		ObjectiveValue:  v.ObjectiveValue,
		SubstrateUptake: v.SubstrateUptake,
		Yield:           v.Yield,
		GrowthRate:      v.GrowthRate,
		Detail:          v.Detail,
		fluxes:          v.Fluxes,
	}
	return nil
}

// NewResult builds an optimal result from explicit values. It exists for
// callers that assemble records outside a solve, such as tests and fakes.
func NewResult(objective string, value float64, fluxes map[string]float64) Result {
	cp := make(map[string]float64, len(fluxes))
	for id, v := range fluxes {
		cp[id] = v
	}
	return Result{Status: StatusOptimal, Objective: objective, ObjectiveValue: value, fluxes: cp}
}

// Failed builds a non-optimal result with zeroed numeric fields.
func Failed(status Status, objective, detail string) Result {
	return Result{Status: status, Objective: objective, Detail: detail, fluxes: map[string]float64{}}
}
