// Package solver defines the contract the optimization session needs from a
// flux balance solver, plus a reference adapter built on gonum's simplex.
package solver

import (
	"context"
	"sync"

	"github.com/starford/redoxflux/internal/network"
)

// Raw status codes a Solver may report. Solvers are free to report other
// codes; the session maps anything it does not recognise to an error status.
const (
	StatusOptimal    = "optimal"
	StatusInfeasible = "infeasible"
	StatusUnbounded  = "unbounded"
	StatusSingular   = "singular"
	StatusNumeric    = "numeric"
)

// Solution is the raw outcome of one solve.
type Solution struct {
	Status         string
	ObjectiveValue float64
	Fluxes         map[string]float64
}

// Solver maximises the model's objective subject to its bounds and the
// steady-state mass balance of every metabolite.
type Solver interface {
	Solve(ctx context.Context, m *network.Model) (Solution, error)
}

// Func adapts a plain function to the Solver interface.
type Func func(ctx context.Context, m *network.Model) (Solution, error)

// Solve implements Solver.
func (f Func) Solve(ctx context.Context, m *network.Model) (Solution, error) {
	return f(ctx, m)
}

// Serialized wraps s so that at most one solve runs at a time. Use it for
// solvers that are not known to be re-entrant.
func Serialized(s Solver) Solver {
	return &serialized{inner: s}
}

type serialized struct {
	mu    sync.Mutex
	inner Solver
}

func (s *serialized) Solve(ctx context.Context, m *network.Model) (Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}
	return s.inner.Solve(ctx, m)
}
