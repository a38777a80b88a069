// Package electrochem models electrochemical cofactor regeneration: Nernst
// potentials, Butler-Volmer kinetics capped by mass transport, and the
// production enhancement a regeneration rate can support.
package electrochem

import (
	"errors"
	"fmt"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrUnknownPair is returned for a redox pair missing from the catalog.
var ErrUnknownPair = errors.New("electrochem: unknown redox pair")

// HighFieldThreshold is the |overpotential| in volts above which the
// exponential Butler-Volmer branch replaces the linear one.
const HighFieldThreshold = 0.1

// Constants are the physical and electrode parameters of the model.
type Constants struct {
	Faraday     float64 `yaml:"faraday"`      // C/mol
	GasConstant float64 `yaml:"gas_constant"` // J/(mol K)
	Temperature float64 `yaml:"temperature"`  // K
	// ExchangeCurrentDensity is i0 in A/cm2.
	ExchangeCurrentDensity float64 `yaml:"exchange_current_density"`
	ElectrodeArea          float64 `yaml:"electrode_area"`             // cm2
	TransportCoefficient   float64 `yaml:"mass_transport_coefficient"` // cm/s
	TransferCoefficient    float64 `yaml:"transfer_coefficient"`
	Electrons              float64 `yaml:"electrons"`
}

// DefaultConstants returns the cell-free electrode defaults at 25 C.
func DefaultConstants() Constants {
	return Constants{
		Faraday:                96485,
		GasConstant:            8.314,
		Temperature:            298.15,
		ExchangeCurrentDensity: 1e-4,
		ElectrodeArea:          10,
		TransportCoefficient:   1e-3,
		TransferCoefficient:    0.5,
		Electrons:              2,
	}
}

// Validate implements validation.Validatable.
func (c Constants) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Faraday, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.GasConstant, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.Temperature, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.ExchangeCurrentDensity, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.ElectrodeArea, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.TransportCoefficient, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.TransferCoefficient, validation.Required, validation.Min(0.0).Exclusive(), validation.Max(1.0)),
		validation.Field(&c.Electrons, validation.Required, validation.Min(0.0).Exclusive()),
	)
}

// Pool is a cofactor pool in mM.
type Pool struct {
	Oxidized float64 `yaml:"oxidized" json:"oxidized"`
	Reduced  float64 `yaml:"reduced" json:"reduced"`
}

// Redox pair names.
const (
	PairNAD  = "NAD+/NADH"
	PairNADP = "NADP+/NADPH"
)

// Config is the read-only state of a Model.
type Config struct {
	Constants Constants `yaml:"constants"`
	// Pairs maps a redox pair to its standard potential in volts vs SHE.
	Pairs map[string]float64 `yaml:"redox_pairs"`
	// Pools maps a redox pair to the cofactor pool used for regeneration.
	Pools map[string]Pool `yaml:"pools"`
	// RegenerationPair is the pair Enhance regenerates when none is named.
	RegenerationPair string `yaml:"regeneration_pair"`
}

// DefaultConfig returns the standard pair catalog with 0.5/0.5 mM pools.
func DefaultConfig() Config {
	return Config{
		Constants: DefaultConstants(),
		Pairs: map[string]float64{
			PairNAD:     -0.32,
			PairNADP:    -0.32,
			"FAD/FADH2": -0.22,
			"FMN/FMNH2": -0.22,
			"O2/H2O":    0.82,
			"H+/H2":     0.00,
		},
		Pools: map[string]Pool{
			PairNAD:  {Oxidized: 0.5, Reduced: 0.5},
			PairNADP: {Oxidized: 0.5, Reduced: 0.5},
		},
		RegenerationPair: PairNADP,
	}
}

// Validate implements validation.Validatable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Constants),
		validation.Field(&c.Pairs, validation.Required),
		validation.Field(&c.Pools, validation.By(func(any) error {
			for pair, p := range c.Pools {
				if _, ok := c.Pairs[pair]; !ok {
					return fmt.Errorf("pool %q has no redox pair", pair)
				}
				if p.Oxidized < 0 || p.Reduced < 0 {
					return fmt.Errorf("pool %q: concentrations must not be negative", pair)
				}
			}
			return nil
		})),
		validation.Field(&c.RegenerationPair, validation.Required, validation.By(func(any) error {
			if _, ok := c.Pools[c.RegenerationPair]; !ok {
				return fmt.Errorf("no pool for %q", c.RegenerationPair)
			}
			return nil
		})),
	)
}

// Model evaluates the kinetics. It holds no mutable state.
type Model struct {
	cfg Config
}

// New validates cfg and returns a Model over a private copy of it.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("electrochem: config: %w", err)
	}
	cp := cfg
	cp.Pairs = make(map[string]float64, len(cfg.Pairs))
	for k, v := range cfg.Pairs {
		cp.Pairs[k] = v
	}
	cp.Pools = make(map[string]Pool, len(cfg.Pools))
	for k, v := range cfg.Pools {
		cp.Pools[k] = v
	}
	return &Model{cfg: cp}, nil
}

// thermalVoltage is R*T/F.
func (m *Model) thermalVoltage() float64 {
	c := m.cfg.Constants
	return c.GasConstant * c.Temperature / c.Faraday
}

// StandardPotential returns E0 of pair.
func (m *Model) StandardPotential(pair string) (float64, error) {
	e, ok := m.cfg.Pairs[pair]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}
	return e, nil
}

// Pool returns the configured pool of pair.
func (m *Model) Pool(pair string) (Pool, error) {
	p, ok := m.cfg.Pools[pair]
	if !ok {
		return Pool{}, fmt.Errorf("%w: no pool for %s", ErrUnknownPair, pair)
	}
	return p, nil
}

// Nernst returns E0 - RT/(nF) ln(red/ox). E0 is returned unchanged when
// either concentration is not positive.
func (m *Model) Nernst(pair string, oxidized, reduced float64) (float64, error) {
	e0, err := m.StandardPotential(pair)
	if err != nil {
		return 0, err
	}
	if oxidized <= 0 || reduced <= 0 {
		return e0, nil
	}
	return e0 - m.thermalVoltage()/m.cfg.Constants.Electrons*math.Log(reduced/oxidized), nil
}

// Branch names which Butler-Volmer approximation produced the current.
type Branch string

// Branch values.
const (
	BranchLinear   Branch = "linear"
	BranchCathodic Branch = "cathodic"
	BranchAnodic   Branch = "anodic"
)

// Rate is the breakdown of one electrochemical rate evaluation. Rates are
// in mmol/s.
type Rate struct {
	Pair           string  `json:"pair"`
	Potential      float64 `json:"applied_potential"`
	Nernst         float64 `json:"nernst_potential"`
	Overpotential  float64 `json:"overpotential"`
	Branch         Branch  `json:"branch"`
	CurrentDensity float64 `json:"current_density"` // A/cm2
	Current        float64 `json:"current"`         // A
	KineticRate    float64 `json:"kinetic_rate"`
	TransportLimit float64 `json:"transport_limit"`
	Rate           float64 `json:"rate"`
	TransportBound bool    `json:"transport_limited"`
}

// ElectrochemicalRate returns the regeneration rate of pair at the applied
// potential: the Faraday rate of the Butler-Volmer current, capped by the
// diffusion limit k*A*C_ox.
func (m *Model) ElectrochemicalRate(potential float64, pair string, oxidized, reduced float64) (Rate, error) {
	nernst, err := m.Nernst(pair, oxidized, reduced)
	if err != nil {
		return Rate{}, err
	}
	c := m.cfg.Constants
	eta := potential - nernst
	r := Rate{Pair: pair, Potential: potential, Nernst: nernst, Overpotential: eta}

	vt := m.thermalVoltage()
	switch {
	case eta > HighFieldThreshold:
		r.Branch = BranchAnodic
		r.CurrentDensity = c.ExchangeCurrentDensity * math.Exp(c.TransferCoefficient*eta/vt)
	case eta < -HighFieldThreshold:
		r.Branch = BranchCathodic
		r.CurrentDensity = -c.ExchangeCurrentDensity * math.Exp(c.TransferCoefficient*math.Abs(eta)/vt)
	default:
		r.Branch = BranchLinear
		r.CurrentDensity = c.ExchangeCurrentDensity * eta / vt
	}
	r.Current = r.CurrentDensity * c.ElectrodeArea

	// mol/s to mmol/s; n electrons per cofactor turnover.
	r.KineticRate = math.Abs(r.Current) * 1000 / (c.Electrons * c.Faraday)
	// Concentration mM is mol/cm3 * 1e6.
	r.TransportLimit = c.TransportCoefficient * c.ElectrodeArea * oxidized * 1e-6 * 1000

	r.Rate = math.Min(r.KineticRate, r.TransportLimit)
	r.TransportBound = r.TransportLimit < r.KineticRate
	return r, nil
}

// RegenerationRate evaluates ElectrochemicalRate on the configured pool of
// pair and converts it to mmol/h.
func (m *Model) RegenerationRate(potential float64, pair string) (Rate, float64, error) {
	pool, err := m.Pool(pair)
	if err != nil {
		return Rate{}, 0, err
	}
	r, err := m.ElectrochemicalRate(potential, pair, pool.Oxidized, pool.Reduced)
	if err != nil {
		return Rate{}, 0, err
	}
	return r, r.Rate * 3600, nil
}

// Faraday returns the configured Faraday constant.
func (m *Model) Faraday() float64 { return m.cfg.Constants.Faraday }

// RegenerationPair returns the default pair used by Enhance.
func (m *Model) RegenerationPair() string { return m.cfg.RegenerationPair }
