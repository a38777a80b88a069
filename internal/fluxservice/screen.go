package fluxservice

import (
	"context"
	"fmt"

	"github.com/starford/redoxflux/internal/scenario"
	"github.com/starford/redoxflux/internal/screening"
)

// KnockoutScreenRequest screens single knockouts on top of a production
// scenario. Empty Candidates selects the configured defaults.
type KnockoutScreenRequest struct {
	ProductionRequest
	Candidates []string `json:"candidates"`
}

// KnockoutScreenResult wraps the ranked screen.
type KnockoutScreenResult struct {
	RunID   string `json:"run_id,omitempty"`
	Product string `json:"product"`
	screening.KnockoutReport
}

// ScreenKnockouts ranks single-reaction knockouts by their effect on
// production of req.Product.
func (s *Service) ScreenKnockouts(ctx context.Context, req KnockoutScreenRequest) (KnockoutScreenResult, error) {
	p, err := s.resolve(req.ProductionRequest)
	if err != nil {
		return KnockoutScreenResult{}, err
	}
	cands := req.Candidates
	if len(cands) == 0 {
		cands = s.candidates
	}
	rep, err := s.screener.ScreenKnockouts(ctx, p.base, screening.KnockoutRequest{
		Base:       p.scenario,
		Objective:  p.objective,
		Substrate:  p.substrate.Exchange,
		Candidates: cands,
	})
	if err != nil {
		return KnockoutScreenResult{}, fmt.Errorf("fluxservice: %w", err)
	}
	out := KnockoutScreenResult{Product: p.product.Key, KnockoutReport: rep}
	best := rep.Baseline.ObjectiveValue
	if len(rep.Ranked) > 0 {
		best = rep.Ranked[0].Result.ObjectiveValue
	}
	out.RunID = s.record(ctx, KindKnockouts, p.product.Key, string(rep.Baseline.Status), best, out)
	return out, nil
}

// SubstrateScreenResult wraps a substrate preference screen.
type SubstrateScreenResult struct {
	RunID   string `json:"run_id,omitempty"`
	Product string `json:"product"`
	screening.SubstrateReport
}

// ScreenSubstrates optimizes req.Product once per catalog substrate at its
// default uptake. req.Substrate and req.Uptake are ignored.
func (s *Service) ScreenSubstrates(ctx context.Context, req ProductionRequest) (SubstrateScreenResult, error) {
	p, err := s.resolve(req)
	if err != nil {
		return SubstrateScreenResult{}, err
	}
	opts := make([]screening.SubstrateOption, len(s.catalog.Substrates))
	for i, sub := range s.catalog.Substrates {
		opts[i] = screening.SubstrateOption{Name: sub.Key, Exchange: sub.Exchange, Uptake: sub.DefaultUptake}
	}
	rep, err := s.screener.ScreenSubstrates(ctx, p.base, screening.SubstrateRequest{
		Base:       p.scenario,
		Objective:  p.objective,
		Substrates: opts,
	})
	if err != nil {
		return SubstrateScreenResult{}, fmt.Errorf("fluxservice: %w", err)
	}
	out := SubstrateScreenResult{Product: p.product.Key, SubstrateReport: rep}
	var best float64
	for _, row := range rep.Rows {
		if row.Name == rep.Best {
			best = row.Result.ObjectiveValue
		}
	}
	status := "optimal"
	if rep.Best == "" {
		status = "infeasible"
	}
	out.RunID = s.record(ctx, KindSubstrates, p.product.Key, status, best, out)
	return out, nil
}

// TradeoffResult is a growth/production trade-off curve.
type TradeoffResult struct {
	RunID     string                  `json:"run_id,omitempty"`
	Product   string                  `json:"product"`
	Substrate string                  `json:"substrate"`
	Rows      []screening.TradeoffRow `json:"rows"`
	Warnings  []scenario.Warning      `json:"warnings,omitempty"`
}

// GrowthTradeoff scans growth floors for a cellular production scenario.
// Empty floors selects the configured defaults. req.System and
// req.GrowthFloor are overridden.
func (s *Service) GrowthTradeoff(ctx context.Context, req ProductionRequest, floors []float64) (TradeoffResult, error) {
	req.System = SystemCellular
	req.GrowthFloor = 0
	p, err := s.resolve(req)
	if err != nil {
		return TradeoffResult{}, err
	}
	if len(floors) == 0 {
		floors = s.floors
	}
	rep, err := s.screener.GrowthTradeoff(ctx, p.base, screening.TradeoffRequest{
		Base:      p.scenario,
		Objective: p.objective,
		Substrate: p.substrate.Exchange,
		Floors:    floors,
	})
	if err != nil {
		return TradeoffResult{}, fmt.Errorf("fluxservice: %w", err)
	}
	out := TradeoffResult{Product: p.product.Key, Substrate: p.substrate.Key, Rows: rep.Rows, Warnings: rep.Warnings}
	var peak float64
	for _, r := range rep.Rows {
		peak = max(peak, r.Production)
	}
	out.RunID = s.record(ctx, KindTradeoff, p.product.Key, "optimal", peak, out)
	return out, nil
}
