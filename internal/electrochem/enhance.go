package electrochem

import (
	"errors"
	"fmt"
	"math"

	"github.com/starford/redoxflux/internal/fba"
)

// ErrBaselineNotOptimal is returned by Enhance when the baseline result did
// not reach an optimum.
var ErrBaselineNotOptimal = errors.New("electrochem: baseline optimization failed")

// Enhancement status values.
const (
	StatusEnhanced = "enhanced"
	StatusFailed   = "failed"
)

// Rate-limiting factors.
const (
	LimitCofactor  = "cofactor_regeneration"
	LimitEnzymatic = "enzymatic"
)

// productEnergyFactor turns rate * carbons into the rough product energy
// rate used for efficiency (37 kJ per carbon-equivalent).
const productEnergyFactor = 12 * 1000 * 37

// EnhanceParams selects the product and operating point.
type EnhanceParams struct {
	Product string
	// Carbons is the chain length of the product; acetyl units = Carbons/2.
	Carbons   int
	Potential float64
	// Cap is the externally asserted ceiling on rate enhancement.
	Cap float64
	// Pair is the regenerated redox pair; empty selects the configured default.
	Pair string
}

// Enhancement is the outcome of the enhancement model. Rates are in the
// flux units of the baseline (mmol/gDW/h), power in W.
type Enhancement struct {
	Status             string  `json:"status"`
	Product            string  `json:"product"`
	Pair               string  `json:"pair,omitempty"`
	Potential          float64 `json:"applied_potential"`
	BaselineRate       float64 `json:"baseline_production_rate,omitempty"`
	EnhancedRate       float64 `json:"enhanced_production_rate,omitempty"`
	EnhancementActual  float64 `json:"enhancement_factor_actual,omitempty"`
	NADPHDemand        float64 `json:"nadph_requirement,omitempty"`
	ATPDemand          float64 `json:"atp_requirement,omitempty"`
	RegenerationRate   float64 `json:"regeneration_rate,omitempty"`
	ElectricalPower    float64 `json:"electrical_power,omitempty"`
	EnergyEfficiency   float64 `json:"energy_efficiency,omitempty"`
	RateLimitingFactor string  `json:"rate_limiting_factor,omitempty"`
	Error              string  `json:"error,omitempty"`
}

// Enhance derives the cofactor-limited production rate reachable when the
// cofactor of p.Pair is regenerated electrochemically at p.Potential. A
// non-optimal baseline yields a failed Enhancement and ErrBaselineNotOptimal.
func (m *Model) Enhance(baseline fba.Result, p EnhanceParams) (Enhancement, error) {
	out := Enhancement{Product: p.Product, Potential: p.Potential}
	if !baseline.Optimal() {
		out.Status = StatusFailed
		out.Error = ErrBaselineNotOptimal.Error()
		return out, fmt.Errorf("%w: status %s", ErrBaselineNotOptimal, baseline.Status)
	}
	acetyl := p.Carbons / 2
	if acetyl < 1 {
		return Enhancement{}, fmt.Errorf("electrochem: %s: carbon count %d has no acetyl unit", p.Product, p.Carbons)
	}
	if p.Cap <= 0 {
		return Enhancement{}, fmt.Errorf("electrochem: enhancement cap must be positive, got %g", p.Cap)
	}
	pair := p.Pair
	if pair == "" {
		pair = m.cfg.RegenerationPair
	}
	_, regen, err := m.RegenerationRate(p.Potential, pair)
	if err != nil {
		return Enhancement{}, err
	}

	rate := baseline.ObjectiveValue
	target := rate * p.Cap
	limited := math.Min(regen/float64(acetyl*2), target)
	power := math.Abs(p.Potential) * regen * 2 * m.cfg.Constants.Faraday / 3600
	energy := limited * float64(p.Carbons) * productEnergyFactor

	out.Status = StatusEnhanced
	out.Pair = pair
	out.BaselineRate = rate
	out.EnhancedRate = limited
	out.NADPHDemand = rate * float64(acetyl) * 2
	out.ATPDemand = rate * float64(acetyl)
	out.RegenerationRate = regen
	out.ElectricalPower = power
	if rate != 0 {
		out.EnhancementActual = limited / rate
	}
	if power > 0 {
		out.EnergyEfficiency = energy / power * 100
	}
	if limited < target {
		out.RateLimitingFactor = LimitCofactor
	} else {
		out.RateLimitingFactor = LimitEnzymatic
	}
	return out, nil
}
