package electrochem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrNoFeasiblePotential is returned when no potential of a sweep could be
// evaluated.
var ErrNoFeasiblePotential = errors.New("electrochem: no feasible potential in sweep")

// tieEpsilon is the absolute rate difference under which two sweep points
// count as equal.
const tieEpsilon = 1e-12

// Evaluator produces the enhancement at one applied potential.
type Evaluator interface {
	Evaluate(ctx context.Context, potential float64) (Enhancement, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, potential float64) (Enhancement, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, potential float64) (Enhancement, error) {
	return f(ctx, potential)
}

// PointObserver is told the outcome of every sweep point.
type PointObserver interface {
	ObservePoint(ok bool)
}

// SweepPoint is one row of the sweep table.
type SweepPoint struct {
	Potential   float64     `json:"applied_potential"`
	Enhancement Enhancement `json:"enhancement"`
	Failed      bool        `json:"failed,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// SweepResult is the best point plus the full table in input order.
type SweepResult struct {
	BestPotential float64      `json:"optimal_potential"`
	Best          Enhancement  `json:"optimal"`
	Points        []SweepPoint `json:"points"`
}

// Sweeper drives an Evaluator over a potential range.
type Sweeper struct {
	workers  int
	logger   *slog.Logger
	observer PointObserver
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithWorkers bounds concurrent point evaluations. n <= 0 selects GOMAXPROCS.
func WithWorkers(n int) SweeperOption {
	return func(s *Sweeper) { s.workers = n }
}

// WithSweepLogger sets the logger used for point failures.
func WithSweepLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = l }
}

// WithPointObserver attaches a point observer.
func WithPointObserver(o PointObserver) SweeperOption {
	return func(s *Sweeper) { s.observer = o }
}

// NewSweeper returns a Sweeper.
func NewSweeper(opts ...SweeperOption) *Sweeper {
	s := &Sweeper{logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	if s.workers <= 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	return s
}

// Optimize evaluates every potential and selects the one with the highest
// enhanced production rate, preferring the smallest |potential| among
// ties. A point that errors or does not reach the enhanced status is
// recorded as failed; the sweep itself fails only when every point does.
func (s *Sweeper) Optimize(ctx context.Context, eval Evaluator, potentials []float64) (SweepResult, error) {
	points := make([]SweepPoint, len(potentials))
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i, e := range potentials {
		g.Go(func() error {
			points[i] = s.evaluate(ctx, eval, e)
			return nil
		})
	}
	_ = g.Wait()

	res := SweepResult{Points: points}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("electrochem: sweep: %w", err)
	}
	best := -1
	for i, p := range points {
		if p.Failed {
			continue
		}
		if best < 0 || better(p, points[best]) {
			best = i
		}
	}
	if best < 0 {
		return res, ErrNoFeasiblePotential
	}
	res.BestPotential = points[best].Potential
	res.Best = points[best].Enhancement
	return res, nil
}

func (s *Sweeper) evaluate(ctx context.Context, eval Evaluator, e float64) (p SweepPoint) {
	p.Potential = e
	defer func() {
		if r := recover(); r != nil {
			p.Failed, p.Error = true, fmt.Sprintf("panic: %v", r)
		}
		if p.Failed {
			s.logger.Warn("electrochem: sweep point failed",
				slog.Float64("potential", e),
				slog.String("error", p.Error),
			)
		}
		if s.observer != nil {
			s.observer.ObservePoint(!p.Failed)
		}
	}()
	enh, err := eval.Evaluate(ctx, e)
	p.Enhancement = enh
	switch {
	case err != nil:
		p.Failed, p.Error = true, err.Error()
	case enh.Status != StatusEnhanced:
		p.Failed, p.Error = true, "status "+enh.Status
	}
	return p
}

func better(a, b SweepPoint) bool {
	ra, rb := a.Enhancement.EnhancedRate, b.Enhancement.EnhancedRate
	if math.Abs(ra-rb) > tieEpsilon {
		return ra > rb
	}
	return math.Abs(a.Potential) < math.Abs(b.Potential)
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
