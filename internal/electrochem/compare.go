package electrochem

import (
	"fmt"

	"github.com/starford/redoxflux/internal/fba"
)

// System kinds.
const (
	KindEnzymatic       = "enzymatic"
	KindElectrochemical = "electrochemical"
)

// RegenerationSystem is one cofactor regeneration option to compare.
// Enzymatic systems scale the baseline by Factor at a fixed Power;
// electrochemical systems run Enhance at Potential with Cap.
type RegenerationSystem struct {
	Name          string  `yaml:"name" json:"name"`
	Kind          string  `yaml:"kind" json:"kind"`
	Pair          string  `yaml:"pair,omitempty" json:"pair,omitempty"`
	Potential     float64 `yaml:"potential,omitempty" json:"potential,omitempty"`
	Cap           float64 `yaml:"cap,omitempty" json:"cap,omitempty"`
	Factor        float64 `yaml:"factor,omitempty" json:"factor,omitempty"`
	Power         float64 `yaml:"power,omitempty" json:"power,omitempty"`
	Advantages    string  `yaml:"advantages,omitempty" json:"advantages,omitempty"`
	Disadvantages string  `yaml:"disadvantages,omitempty" json:"disadvantages,omitempty"`
}

// DefaultRegenerationSystems returns the enzymatic baseline, NADH and NADPH
// electrodes, and a hybrid configuration.
func DefaultRegenerationSystems() []RegenerationSystem {
	return []RegenerationSystem{
		{Name: "Enzymatic (baseline)", Kind: KindEnzymatic, Factor: 1,
			Advantages: "Simple, proven", Disadvantages: "Rate limited, expensive cofactors"},
		{Name: "Electrochemical NADH", Kind: KindElectrochemical, Pair: PairNAD, Potential: -0.4, Cap: 5,
			Advantages: "Fast regeneration, decoupled", Disadvantages: "Electrode fouling, complexity"},
		{Name: "Electrochemical NADPH", Kind: KindElectrochemical, Pair: PairNADP, Potential: -0.5, Cap: 8,
			Advantages: "High rate, continuous", Disadvantages: "High overpotential needed"},
		{Name: "Hybrid (enzymatic + electrochemical)", Kind: KindEnzymatic, Factor: 3, Power: 0.5,
			Advantages: "Balanced approach, lower overpotential", Disadvantages: "Complex control, dual systems"},
	}
}

// ComparisonRow is one system's outcome.
type ComparisonRow struct {
	System            string  `json:"system"`
	ProductionRate    float64 `json:"production_rate"`
	EnhancementFactor float64 `json:"enhancement_factor"`
	Power             float64 `json:"power_requirement"`
	Advantages        string  `json:"advantages,omitempty"`
	Disadvantages     string  `json:"disadvantages,omitempty"`
	Failed            bool    `json:"failed,omitempty"`
	Error             string  `json:"error,omitempty"`
}

// CompareRegeneration evaluates every system against the same baseline.
// An electrochemical system that fails is kept as a failed row.
func (m *Model) CompareRegeneration(baseline fba.Result, product string, carbons int, systems []RegenerationSystem) ([]ComparisonRow, error) {
	if !baseline.Optimal() {
		return nil, fmt.Errorf("%w: status %s", ErrBaselineNotOptimal, baseline.Status)
	}
	rows := make([]ComparisonRow, 0, len(systems))
	for _, sys := range systems {
		row := ComparisonRow{System: sys.Name, Advantages: sys.Advantages, Disadvantages: sys.Disadvantages}
		switch sys.Kind {
		case KindEnzymatic:
			row.ProductionRate = baseline.ObjectiveValue * sys.Factor
			row.EnhancementFactor = sys.Factor
			row.Power = sys.Power
		case KindElectrochemical:
			enh, err := m.Enhance(baseline, EnhanceParams{
				Product:   product,
				Carbons:   carbons,
				Potential: sys.Potential,
				Cap:       sys.Cap,
				Pair:      sys.Pair,
			})
			if err != nil {
				row.Failed, row.Error = true, err.Error()
				break
			}
			row.ProductionRate = enh.EnhancedRate
			row.EnhancementFactor = enh.EnhancementActual
			row.Power = enh.ElectricalPower
		default:
			row.Failed, row.Error = true, fmt.Sprintf("unknown system kind %q", sys.Kind)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
