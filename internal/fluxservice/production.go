package fluxservice

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/redoxflux/internal/apperr"
	"github.com/starford/redoxflux/internal/catalog"
	"github.com/starford/redoxflux/internal/fba"
	"github.com/starford/redoxflux/internal/network"
	"github.com/starford/redoxflux/internal/scenario"
)

// System selects how the production scenario treats growth.
type System string

// System values.
const (
	SystemCellular System = "cellular"
	SystemCellFree System = "cell_free"
)

// CompareGrowthFloor is the growth floor of the cellular side of a
// cellular vs cell-free comparison.
const CompareGrowthFloor = 0.1

// ProductionRequest describes a product optimization.
type ProductionRequest struct {
	Product   string  `json:"product"`
	System    System  `json:"system"`
	Substrate string  `json:"substrate"`
	Uptake    float64 `json:"uptake"`
	// GrowthFloor applies to cellular systems only; 0 leaves growth free.
	GrowthFloor float64  `json:"growth_floor"`
	Knockouts   []string `json:"knockouts"`
	// Weights replaces the product objective with a weighted sum of
	// reaction fluxes when set.
	Weights map[string]float64 `json:"weights"`
}

// Validate implements validation.Validatable.
func (r ProductionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Product, validation.Required),
		validation.Field(&r.System, validation.In(SystemCellular, SystemCellFree)),
		validation.Field(&r.Uptake, validation.Min(0.0)),
		validation.Field(&r.GrowthFloor, validation.Min(0.0)),
	)
}

// ProductionResult is the outcome of one product optimization.
type ProductionResult struct {
	RunID     string             `json:"run_id,omitempty"`
	Product   string             `json:"product"`
	System    System             `json:"system"`
	Substrate string             `json:"substrate"`
	Result    fba.Result         `json:"result"`
	Warnings  []scenario.Warning `json:"warnings,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// plan is a resolved production request.
type plan struct {
	base      *network.Model
	product   catalog.Product
	substrate catalog.Substrate
	scenario  scenario.Scenario
	objective network.Objective
}

func (s *Service) resolve(req ProductionRequest) (plan, error) {
	if req.System == "" {
		req.System = SystemCellFree
	}
	if req.Substrate == "" {
		req.Substrate = s.catalog.Substrates[0].Key
	}
	if err := req.Validate(); err != nil {
		return plan{}, fmt.Errorf("%w: %v", apperr.ErrInvalidRequest, err)
	}
	product, err := s.catalog.Product(req.Product)
	if err != nil {
		return plan{}, err
	}
	sub, err := s.catalog.Substrate(req.Substrate)
	if err != nil {
		return plan{}, err
	}
	base := s.holder.Model()
	if !base.HasMetabolite(product.Metabolite) {
		return plan{}, fmt.Errorf("fluxservice: %w: %s: metabolite %s is not in network %s",
			apperr.ErrUnknownProduct, product.Key, product.Metabolite, base.ID)
	}

	demand := product.Demand(s.catalog.DemandCap)
	var sc scenario.Scenario
	switch req.System {
	case SystemCellFree:
		sc = scenario.CellFree(base, s.productDemands(base, product)...)
	default:
		sc = scenario.Scenario{Name: string(SystemCellular), Demands: []scenario.Demand{demand}}
		if req.GrowthFloor > 0 {
			floor, err := scenario.GrowthFloor(base, req.GrowthFloor)
			if err != nil {
				return plan{}, fmt.Errorf("%w: %v", apperr.ErrInvalidRequest, err)
			}
			sc = sc.With(floor)
		}
	}
	sc = sc.With(scenario.Medium(s.catalog.Medium(sub, req.Uptake)))
	if len(req.Knockouts) > 0 {
		sc = sc.With(scenario.Knockout(req.Knockouts...))
	}

	var obj network.Objective = network.SingleReaction{ID: demand.ID}
	if len(req.Weights) > 0 {
		obj = network.WeightedSum{Weights: req.Weights}
	}
	return plan{base: base, product: product, substrate: sub, scenario: sc, objective: obj}, nil
}

// productDemands returns the target's demand followed by one demand per
// other catalog product whose metabolite is in base.
func (s *Service) productDemands(base *network.Model, target catalog.Product) []scenario.Demand {
	out := []scenario.Demand{target.Demand(s.catalog.DemandCap)}
	for _, p := range s.catalog.Products {
		if p.Key == target.Key {
			continue
		}
		if !base.HasMetabolite(p.Metabolite) {
			s.logger.Debug("fluxservice: product sink skipped",
				slog.String("product", p.Key),
				slog.String("metabolite", p.Metabolite),
			)
			continue
		}
		out = append(out, p.Demand(s.catalog.DemandCap))
	}
	return out
}

func (s *Service) solvePlan(ctx context.Context, p plan) (fba.Result, []scenario.Warning, error) {
	m, warns, err := s.builder.Build(p.base, p.scenario)
	if err != nil {
		return fba.Result{}, warns, fmt.Errorf("fluxservice: build scenario: %w", err)
	}
	res, err := s.session.Solve(ctx, m, p.objective, fba.WithSubstrate(p.substrate.Exchange))
	if err != nil {
		return fba.Result{}, warns, fmt.Errorf("fluxservice: %w", err)
	}
	return res, warns, nil
}

func (s *Service) optimize(ctx context.Context, req ProductionRequest) (ProductionResult, error) {
	p, err := s.resolve(req)
	if err != nil {
		return ProductionResult{}, err
	}
	res, warns, err := s.solvePlan(ctx, p)
	if err != nil {
		return ProductionResult{}, err
	}
	sys := req.System
	if sys == "" {
		sys = SystemCellFree
	}
	return ProductionResult{
		Product:   p.product.Key,
		System:    sys,
		Substrate: p.substrate.Key,
		Result:    res,
		Warnings:  warns,
	}, nil
}

// OptimizeProduct maximizes production of req.Product and records the run.
func (s *Service) OptimizeProduct(ctx context.Context, req ProductionRequest) (ProductionResult, error) {
	out, err := s.optimize(ctx, req)
	if err != nil {
		return ProductionResult{}, err
	}
	out.RunID = s.record(ctx, KindOptimize, out.Product+"/"+string(out.System),
		string(out.Result.Status), out.Result.ObjectiveValue, out)
	return out, nil
}

// OptimizeAll optimizes every catalog product. Products the network
// cannot produce come back with Error set instead of failing the batch.
func (s *Service) OptimizeAll(ctx context.Context, system System, substrate string, uptake float64) ([]ProductionResult, error) {
	out := make([]ProductionResult, 0, len(s.catalog.Products))
	for _, key := range s.catalog.ProductKeys() {
		r, err := s.OptimizeProduct(ctx, ProductionRequest{Product: key, System: system, Substrate: substrate, Uptake: uptake})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r = ProductionResult{Product: key, System: system, Substrate: substrate, Error: err.Error()}
		}
		out = append(out, r)
	}
	return out, nil
}

// SystemComparison contrasts a growth-floored cellular system with a
// cell-free one.
type SystemComparison struct {
	RunID       string           `json:"run_id,omitempty"`
	Product     string           `json:"product"`
	Cellular    ProductionResult `json:"cellular"`
	CellFree    ProductionResult `json:"cell_free"`
	Improvement float64          `json:"improvement_factor"`
}

// CompareSystems optimizes product in both systems. Improvement is
// cell_free / cellular, or 0 when the cellular rate is 0.
func (s *Service) CompareSystems(ctx context.Context, product, substrate string, uptake float64) (SystemComparison, error) {
	cell, err := s.optimize(ctx, ProductionRequest{
		Product: product, System: SystemCellular, Substrate: substrate, Uptake: uptake, GrowthFloor: CompareGrowthFloor,
	})
	if err != nil {
		return SystemComparison{}, err
	}
	free, err := s.optimize(ctx, ProductionRequest{
		Product: product, System: SystemCellFree, Substrate: substrate, Uptake: uptake,
	})
	if err != nil {
		return SystemComparison{}, err
	}
	cmp := SystemComparison{Product: cell.Product, Cellular: cell, CellFree: free}
	if rate := cell.Result.ObjectiveValue; rate != 0 {
		cmp.Improvement = free.Result.ObjectiveValue / rate
	}
	status := "optimal"
	if !cell.Result.Optimal() || !free.Result.Optimal() {
		status = "partial"
	}
	cmp.RunID = s.record(ctx, KindCompare, cmp.Product, status, cmp.Improvement, cmp)
	return cmp, nil
}

// PathwayReport is an optimization plus where it routes flux.
type PathwayReport struct {
	ProductionResult
	Usage fba.PathwayUsage `json:"usage"`
}

// Pathways optimizes req and reports the active reactions and key pathways.
func (s *Service) Pathways(ctx context.Context, req ProductionRequest, top int) (PathwayReport, error) {
	out, err := s.optimize(ctx, req)
	if err != nil {
		return PathwayReport{}, err
	}
	return PathwayReport{
		ProductionResult: out,
		Usage:            fba.AnalyzePathways(out.Result, fba.DefaultPathways(), top),
	}, nil
}

// ExportScenario returns the network req would be solved on, as YAML.
func (s *Service) ExportScenario(req ProductionRequest) ([]byte, []scenario.Warning, error) {
	p, err := s.resolve(req)
	if err != nil {
		return nil, nil, err
	}
	sc := p.scenario
	sc.Objective = p.objective
	m, warns, err := s.builder.Build(p.base, sc)
	if err != nil {
		return nil, warns, fmt.Errorf("fluxservice: build scenario: %w", err)
	}
	m.ID = fmt.Sprintf("%s_%s_%s", p.base.ID, p.product.Key, sc.Name)
	data, err := network.Encode(m)
	if err != nil {
		return nil, warns, fmt.Errorf("fluxservice: encode: %w", err)
	}
	return data, warns, nil
}
