// Package screening runs batches of independent optimizations (knockout
// candidates, substrates, growth floors) and tabulates them.
package screening

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/starford/redoxflux/internal/fba"
	"github.com/starford/redoxflux/internal/network"
	"github.com/starford/redoxflux/internal/scenario"
)

// Engine fans scenario solves out over a bounded worker pool. Every solve
// builds its model fresh from the shared base, so workers share nothing
// mutable.
type Engine struct {
	builder *scenario.Builder
	session *fba.Session
	workers int
	logger  *slog.Logger
}

// NewEngine returns an Engine. workers <= 0 selects GOMAXPROCS.
func NewEngine(b *scenario.Builder, s *fba.Session, workers int, logger *slog.Logger) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{builder: b, session: s, workers: workers, logger: logger}
}

// KnockoutRequest describes a single-knockout screen.
type KnockoutRequest struct {
	// Base is applied before every knockout, including the baseline solve.
	Base       scenario.Scenario
	Objective  network.Objective
	Substrate  string
	Candidates []string
}

// KnockoutRow is the outcome for one candidate.
type KnockoutRow struct {
	Candidate          string     `json:"candidate"`
	Result             fba.Result `json:"result"`
	ImprovementPercent float64    `json:"improvement_percent"`
	Failed             bool       `json:"failed,omitempty"`
	Error              string     `json:"error,omitempty"`
}

// KnockoutReport is the ranked outcome of a screen.
type KnockoutReport struct {
	Baseline fba.Result         `json:"baseline"`
	Ranked   []KnockoutRow      `json:"ranked"`
	Failed   []KnockoutRow      `json:"failed,omitempty"`
	Warnings []scenario.Warning `json:"warnings,omitempty"`
}

// Improvement returns the relative change of rate over baseline in
// percent, or 0 when the baseline is 0.
func Improvement(rate, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (rate - baseline) / baseline * 100
}

// ScreenKnockouts solves the baseline and one single-knockout scenario per
// candidate. Unknown candidates are reported as warnings and skipped;
// candidates whose solve errors are listed in Failed and left out of the
// ranking. Ranked is sorted by improvement, descending, then candidate id.
func (e *Engine) ScreenKnockouts(ctx context.Context, base *network.Model, req KnockoutRequest) (KnockoutReport, error) {
	var rep KnockoutReport
	baseModel, warns, err := e.builder.Build(base, req.Base)
	if err != nil {
		return rep, fmt.Errorf("screening: baseline: %w", err)
	}
	rep.Warnings = warns
	rep.Baseline, err = e.session.Solve(ctx, baseModel, req.Objective, e.solveOpts(req.Substrate)...)
	if err != nil {
		return rep, fmt.Errorf("screening: baseline: %w", err)
	}
	baselineRate := rep.Baseline.ObjectiveValue

	var valid []string
	seen := make(map[string]bool)
	for _, id := range req.Candidates {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := base.Reaction(id); !ok {
			rep.Warnings = append(rep.Warnings, scenario.Warning{
				Kind: scenario.WarnUnknownKnockout, ID: id, Message: "knockout candidate not in network",
			})
			e.logger.Warn("screening: unknown knockout candidate", slog.String("reaction", id))
			continue
		}
		valid = append(valid, id)
	}

	rows := make([]KnockoutRow, len(valid))
	rowWarns := make([][]scenario.Warning, len(valid))
	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, id := range valid {
		g.Go(func() error {
			row := KnockoutRow{Candidate: id}
			res, warns, err := e.solveScenario(ctx, base, req.Base.With(scenario.Knockout(id)), req.Objective, req.Substrate)
			rowWarns[i] = warns
			switch {
			case err != nil:
				row.Failed, row.Error = true, err.Error()
			case res.Status == fba.StatusError:
				row.Result = res
				row.Failed, row.Error = true, res.Detail
			default:
				row.Result = res
				row.ImprovementPercent = Improvement(res.ObjectiveValue, baselineRate)
			}
			rows[i] = row
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("screening: %w", err)
	}
	rep.Warnings = mergeWarnings(rep.Warnings, rowWarns...)

	for _, row := range rows {
		if row.Failed {
			e.logger.Warn("screening: knockout failed",
				slog.String("reaction", row.Candidate),
				slog.String("error", row.Error),
			)
			rep.Failed = append(rep.Failed, row)
			continue
		}
		rep.Ranked = append(rep.Ranked, row)
	}
	sort.SliceStable(rep.Ranked, func(i, j int) bool {
		a, b := rep.Ranked[i], rep.Ranked[j]
		if a.ImprovementPercent != b.ImprovementPercent {
			return a.ImprovementPercent > b.ImprovementPercent
		}
		return a.Candidate < b.Candidate
	})
	return rep, nil
}

func (e *Engine) solveScenario(ctx context.Context, base *network.Model, sc scenario.Scenario, obj network.Objective, substrate string) (fba.Result, []scenario.Warning, error) {
	m, warns, err := e.builder.Build(base, sc)
	if err != nil {
		return fba.Result{}, warns, err
	}
	res, err := e.session.Solve(ctx, m, obj, e.solveOpts(substrate)...)
	return res, warns, err
}

// mergeWarnings appends every warning of src not already in dst, keyed by
// kind and id, keeping first-seen order.
func mergeWarnings(dst []scenario.Warning, src ...[]scenario.Warning) []scenario.Warning {
	seen := make(map[[2]string]bool, len(dst))
	for _, w := range dst {
		seen[[2]string{w.Kind, w.ID}] = true
	}
	for _, ws := range src {
		for _, w := range ws {
			key := [2]string{w.Kind, w.ID}
			if seen[key] {
				continue
			}
			seen[key] = true
			dst = append(dst, w)
		}
	}
	return dst
}

func (e *Engine) solveOpts(substrate string) []fba.SolveOption {
	if substrate == "" {
		return nil
	}
	return []fba.SolveOption{fba.WithSubstrate(substrate)}
}
