package fluxservice

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/redoxflux/internal/apperr"
	"github.com/starford/redoxflux/internal/catalog"
	"github.com/starford/redoxflux/internal/electrochem"
	"github.com/starford/redoxflux/internal/fba"
)

// Nernst returns the equilibrium potential of pair at the given pool.
// A non-positive concentration yields the standard potential.
func (s *Service) Nernst(pair string, oxidized, reduced float64) (float64, error) {
	return s.electro.Nernst(pair, oxidized, reduced)
}

// RateRequest evaluates the electrochemical rate of one pair. A zero pool
// selects the configured pool of the pair.
type RateRequest struct {
	Pair      string  `json:"pair"`
	Potential float64 `json:"potential"`
	Oxidized  float64 `json:"oxidized"`
	Reduced   float64 `json:"reduced"`
}

// Validate implements validation.Validatable.
func (r RateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Pair, validation.Required),
		validation.Field(&r.Oxidized, validation.Min(0.0)),
		validation.Field(&r.Reduced, validation.Min(0.0)),
	)
}

// RateResult is a rate breakdown plus the hourly regeneration rate.
type RateResult struct {
	electrochem.Rate
	PerHour float64 `json:"regeneration_rate_per_hour"`
}

// Rate evaluates the electrochemical regeneration rate.
func (s *Service) Rate(req RateRequest) (RateResult, error) {
	if err := req.Validate(); err != nil {
		return RateResult{}, fmt.Errorf("%w: %v", apperr.ErrInvalidRequest, err)
	}
	if req.Oxidized == 0 && req.Reduced == 0 {
		r, perHour, err := s.electro.RegenerationRate(req.Potential, req.Pair)
		if err != nil {
			return RateResult{}, err
		}
		return RateResult{Rate: r, PerHour: perHour}, nil
	}
	r, err := s.electro.ElectrochemicalRate(req.Potential, req.Pair, req.Oxidized, req.Reduced)
	if err != nil {
		return RateResult{}, err
	}
	return RateResult{Rate: r, PerHour: r.Rate * 3600}, nil
}

// EnhanceRequest asks for the electrochemically enhanced production of a
// product at one potential. The baseline is the cell-free optimum.
type EnhanceRequest struct {
	Product   string  `json:"product"`
	Substrate string  `json:"substrate"`
	Uptake    float64 `json:"uptake"`
	Potential float64 `json:"potential"`
	// Cap <= 0 selects the configured enhancement cap.
	Cap  float64 `json:"cap"`
	Pair string  `json:"pair"`
}

// EnhanceResult is an enhancement with its baseline.
type EnhanceResult struct {
	RunID    string                  `json:"run_id,omitempty"`
	Baseline fba.Result              `json:"baseline"`
	Result   electrochem.Enhancement `json:"enhancement"`
}

// baseline solves the cell-free production scenario for product.
func (s *Service) baseline(ctx context.Context, product, substrate string, uptake float64) (catalog.Product, fba.Result, error) {
	out, err := s.optimize(ctx, ProductionRequest{
		Product: product, System: SystemCellFree, Substrate: substrate, Uptake: uptake,
	})
	if err != nil {
		return catalog.Product{}, fba.Result{}, err
	}
	p, err := s.catalog.Product(out.Product)
	if err != nil {
		return catalog.Product{}, fba.Result{}, err
	}
	return p, out.Result, nil
}

func (s *Service) capOr(c float64) float64 {
	if c > 0 {
		return c
	}
	return s.sweep.EnhancementCap
}

// Enhance evaluates the enhancement model at req.Potential.
func (s *Service) Enhance(ctx context.Context, req EnhanceRequest) (EnhanceResult, error) {
	prod, base, err := s.baseline(ctx, req.Product, req.Substrate, req.Uptake)
	if err != nil {
		return EnhanceResult{}, err
	}
	enh, err := s.electro.Enhance(base, electrochem.EnhanceParams{
		Product:   prod.Key,
		Carbons:   prod.Carbons,
		Potential: req.Potential,
		Cap:       s.capOr(req.Cap),
		Pair:      req.Pair,
	})
	if err != nil {
		return EnhanceResult{}, fmt.Errorf("fluxservice: enhance %s: %w", prod.Key, err)
	}
	out := EnhanceResult{Baseline: base, Result: enh}
	out.RunID = s.record(ctx, KindEnhance, fmt.Sprintf("%s@%gV", prod.Key, req.Potential), enh.Status, enh.EnhancedRate, out)
	return out, nil
}

// SweepRequest scans Steps potentials from Start to Stop. Steps <= 0 takes
// the whole configured range.
type SweepRequest struct {
	Product   string  `json:"product"`
	Substrate string  `json:"substrate"`
	Uptake    float64 `json:"uptake"`
	Start     float64 `json:"start"`
	Stop      float64 `json:"stop"`
	Steps     int     `json:"steps"`
	Cap       float64 `json:"cap"`
	Pair      string  `json:"pair"`
}

// SweepResult is the outcome of a potential sweep.
type SweepResult struct {
	RunID    string     `json:"run_id,omitempty"`
	Product  string     `json:"product"`
	Baseline fba.Result `json:"baseline"`
	electrochem.SweepResult
}

// Sweep finds the applied potential with the highest enhanced production
// rate. The baseline is solved once; each point only runs the kinetics.
func (s *Service) Sweep(ctx context.Context, req SweepRequest) (SweepResult, error) {
	if req.Steps <= 0 {
		req.Start, req.Stop, req.Steps = s.sweep.Start, s.sweep.Stop, s.sweep.Steps
	}
	prod, base, err := s.baseline(ctx, req.Product, req.Substrate, req.Uptake)
	if err != nil {
		return SweepResult{}, err
	}
	params := electrochem.EnhanceParams{
		Product: prod.Key,
		Carbons: prod.Carbons,
		Cap:     s.capOr(req.Cap),
		Pair:    req.Pair,
	}
	eval := electrochem.EvaluatorFunc(func(_ context.Context, e float64) (electrochem.Enhancement, error) {
		p := params
		p.Potential = e
		return s.electro.Enhance(base, p)
	})
	res, err := s.sweeper.Optimize(ctx, eval, electrochem.Linspace(req.Start, req.Stop, req.Steps))
	out := SweepResult{Product: prod.Key, Baseline: base, SweepResult: res}
	if err != nil {
		s.record(ctx, KindSweep, prod.Key, electrochem.StatusFailed, 0, out)
		return out, fmt.Errorf("fluxservice: sweep %s: %w", prod.Key, err)
	}
	out.RunID = s.record(ctx, KindSweep, prod.Key, res.Best.Status, res.Best.EnhancedRate, out)
	return out, nil
}

// RegenerationResult compares cofactor regeneration systems for a product.
type RegenerationResult struct {
	RunID    string                      `json:"run_id,omitempty"`
	Product  string                      `json:"product"`
	Baseline fba.Result                  `json:"baseline"`
	Rows     []electrochem.ComparisonRow `json:"systems"`
}

// CompareRegeneration evaluates the standard regeneration systems against
// the cell-free baseline of product.
func (s *Service) CompareRegeneration(ctx context.Context, product, substrate string, uptake float64) (RegenerationResult, error) {
	prod, base, err := s.baseline(ctx, product, substrate, uptake)
	if err != nil {
		return RegenerationResult{}, err
	}
	rows, err := s.electro.CompareRegeneration(base, prod.Key, prod.Carbons, electrochem.DefaultRegenerationSystems())
	if err != nil {
		return RegenerationResult{}, fmt.Errorf("fluxservice: compare regeneration %s: %w", prod.Key, err)
	}
	out := RegenerationResult{Product: prod.Key, Baseline: base, Rows: rows}
	var best float64
	for _, r := range rows {
		best = max(best, r.ProductionRate)
	}
	out.RunID = s.record(ctx, KindRegeneration, prod.Key, string(base.Status), best, out)
	return out, nil
}
