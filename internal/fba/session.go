package fba

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/starford/redoxflux/internal/network"
	"github.com/starford/redoxflux/internal/solver"
)

// ErrUnknownObjective is returned when an objective names a reaction the
// model does not have.
var ErrUnknownObjective = errors.New("fba: unknown objective reaction")

// Observer receives one call per finished solve.
type Observer interface {
	ObserveSolve(status string, d time.Duration)
}

// Session runs single optimizations against a Solver.
type Session struct {
	solver   solver.Solver
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTimeout bounds the wall-clock time of each solve. Zero disables it.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.timeout = d }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithObserver attaches a solve observer, typically a metrics collector.
func WithObserver(o Observer) SessionOption {
	return func(s *Session) { s.observer = o }
}

// NewSession returns a Session backed by sv.
func NewSession(sv solver.Solver, opts ...SessionOption) *Session {
	s := &Session{solver: sv, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	return s
}

type solveConfig struct {
	substrate string
}

// SolveOption tunes the derived fields of one solve.
type SolveOption func(*solveConfig)

// WithSubstrate names the exchange reaction whose uptake feeds the yield.
func WithSubstrate(reactionID string) SolveOption {
	return func(c *solveConfig) { c.substrate = reactionID }
}

// Solve sets obj on a copy of m, runs the solver and normalizes the
// outcome. Solver failures, timeouts and non-optimal statuses are reported
// in the Result; only an objective naming unknown reactions is an error.
func (s *Session) Solve(ctx context.Context, m *network.Model, obj network.Objective, opts ...SolveOption) (Result, error) {
	var cfg solveConfig
	for _, o := range opts {
		o(&cfg)
	}
	if obj == nil {
		return Result{}, fmt.Errorf("fba: objective is required")
	}
	work := m.Clone()
	if err := work.ApplyObjective(obj); err != nil {
		if errors.Is(err, network.ErrUnknownReaction) {
			return Result{}, fmt.Errorf("%w: %s", ErrUnknownObjective, obj)
		}
		return Result{}, fmt.Errorf("fba: %w", err)
	}

	start := time.Now()
	sol, err := s.run(ctx, work)
	elapsed := time.Since(start)

	var res Result
	if err != nil {
		res = Failed(StatusError, obj.String(), err.Error())
	} else {
		res = s.normalize(work, obj, sol, cfg)
	}
	if s.observer != nil {
		s.observer.ObserveSolve(string(res.Status), elapsed)
	}
	s.logger.Debug("fba: solve finished",
		slog.String("model", m.ID),
		slog.String("objective", obj.String()),
		slog.String("status", string(res.Status)),
		slog.Float64("objective_value", res.ObjectiveValue),
		slog.Duration("elapsed", elapsed),
	)
	return res, nil
}

// run invokes the solver under the session timeout. The solver keeps the
// model to itself; a timed-out solve is abandoned and its result dropped.
func (s *Session) run(ctx context.Context, m *network.Model) (solver.Solution, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	type outcome struct {
		sol solver.Solution
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		sol, err := s.solver.Solve(ctx, m)
		done <- outcome{sol, err}
	}()
	select {
	case o := <-done:
		return o.sol, o.err
	case <-ctx.Done():
		return solver.Solution{}, fmt.Errorf("fba: solve abandoned: %w", ctx.Err())
	}
}

func (s *Session) normalize(m *network.Model, obj network.Objective, sol solver.Solution, cfg solveConfig) Result {
	status := normalizeStatus(sol.Status)
	if status != StatusOptimal {
		return Failed(status, obj.String(), sol.Status)
	}
	fluxes := make(map[string]float64, len(sol.Fluxes))
	for id, v := range sol.Fluxes {
		fluxes[id] = v
	}
	res := Result{
		Status:         StatusOptimal,
		Objective:      obj.String(),
		ObjectiveValue: sol.ObjectiveValue,
		fluxes:         fluxes,
	}
	if m.GrowthReaction != "" {
		res.GrowthRate = fluxes[m.GrowthReaction]
	}
	if cfg.substrate != "" {
		res.SubstrateUptake = math.Abs(fluxes[cfg.substrate])
	}
	if res.SubstrateUptake > 0 {
		res.Yield = res.ObjectiveValue / res.SubstrateUptake
	}
	return res
}
