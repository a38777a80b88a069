package screening

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/starford/redoxflux/internal/fba"
	"github.com/starford/redoxflux/internal/network"
	"github.com/starford/redoxflux/internal/scenario"
)

// TradeoffRequest describes a growth/production trade-off scan.
type TradeoffRequest struct {
	Base      scenario.Scenario
	Objective network.Objective
	Substrate string
	Floors    []float64
}

// TradeoffRow is the outcome at one growth floor.
type TradeoffRow struct {
	GrowthFloor     float64    `json:"growth_floor"`
	Growth          float64    `json:"growth"`
	Production      float64    `json:"production"`
	SubstrateUptake float64    `json:"substrate_uptake"`
	Status          fba.Status `json:"status"`
	Error           string     `json:"error,omitempty"`
}

// TradeoffReport lists rows in floor order with the scenario warnings of
// every solve.
type TradeoffReport struct {
	Rows     []TradeoffRow      `json:"rows"`
	Warnings []scenario.Warning `json:"warnings,omitempty"`
}

// GrowthTradeoff solves the objective once per growth floor. Floors the
// network cannot sustain come back with a non-optimal status and zero
// values, including floors above the growth reaction's upper bound. A
// network without a growth reaction fails the whole scan.
func (e *Engine) GrowthTradeoff(ctx context.Context, base *network.Model, req TradeoffRequest) (TradeoffReport, error) {
	rows := make([]TradeoffRow, len(req.Floors))
	rowWarns := make([][]scenario.Warning, len(req.Floors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, floor := range req.Floors {
		g.Go(func() error {
			floorSc, err := scenario.GrowthFloor(base, floor)
			if errors.Is(err, scenario.ErrNoGrowthReaction) {
				return err
			}
			if err != nil {
				rows[i] = TradeoffRow{GrowthFloor: floor, Status: fba.StatusInfeasible, Error: err.Error()}
				return nil
			}
			res, warns, err := e.solveScenario(gctx, base, req.Base.With(floorSc), req.Objective, req.Substrate)
			rowWarns[i] = warns
			if err != nil {
				return err
			}
			rows[i] = TradeoffRow{
				GrowthFloor:     floor,
				Growth:          res.GrowthRate,
				Production:      res.ObjectiveValue,
				SubstrateUptake: res.SubstrateUptake,
				Status:          res.Status,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TradeoffReport{}, fmt.Errorf("screening: tradeoff: %w", err)
	}
	return TradeoffReport{Rows: rows, Warnings: mergeWarnings(nil, rowWarns...)}, nil
}
