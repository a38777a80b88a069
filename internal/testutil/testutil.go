// Package testutil provides shared fixtures: a toy flux network, scripted
// solvers, and temporary run stores.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/starford/redoxflux/internal/catalog"
	"github.com/starford/redoxflux/internal/electrochem"
	"github.com/starford/redoxflux/internal/fba"
	"github.com/starford/redoxflux/internal/fluxservice"
	"github.com/starford/redoxflux/internal/network"
	"github.com/starford/redoxflux/internal/resultstore"
	"github.com/starford/redoxflux/internal/scenario"
	"github.com/starford/redoxflux/internal/screening"
	"github.com/starford/redoxflux/internal/solver"
)

// ToyYAML is a six-reaction network: glucose is split into two acetyl-CoA,
// which feeds maintenance, biomass, octanoyl-CoA synthesis and acetate
// overflow. With 10 glucose the octanoyl-CoA demand tops out at 4.75
// (cellular, maintenance floor 1), 5.0 (cell-free) and 4.5 (growth floor 0.1).
const ToyYAML = `id: toy
growth_reaction: BIOMASS_Ec_toy
metabolites:
  - {id: glc__D_e, name: D-Glucose, compartment: e}
  - {id: accoa_c, name: Acetyl-CoA, compartment: c}
  - {id: occoa_c, name: Octanoyl-CoA, compartment: c}
  - {id: ac_e, name: Acetate, compartment: e}
reactions:
  - id: EX_glc__D_e
    name: D-Glucose exchange
    lower_bound: -1000
    upper_bound: 1000
    stoichiometry: {glc__D_e: -1}
  - id: GLYC
    name: lumped glycolysis
    lower_bound: 0
    upper_bound: 1000
    stoichiometry: {glc__D_e: -1, accoa_c: 2}
  - id: ATPM
    name: ATP maintenance requirement
    lower_bound: 1
    upper_bound: 1000
    stoichiometry: {accoa_c: -1}
  - id: BIOMASS_Ec_toy
    name: Biomass objective function
    lower_bound: 0
    upper_bound: 1000
    stoichiometry: {accoa_c: -10}
  - id: FAS8
    name: octanoyl-CoA synthesis
    lower_bound: 0
    upper_bound: 1000
    stoichiometry: {accoa_c: -4, occoa_c: 1}
  - id: PTAr
    name: acetate overflow
    lower_bound: 0
    upper_bound: 1000
    stoichiometry: {accoa_c: -1, ac_e: 1}
  - id: EX_ac_e
    name: Acetate exchange
    lower_bound: 0
    upper_bound: 1000
    stoichiometry: {ac_e: -1}
`

// ToyNetwork decodes ToyYAML.
func ToyNetwork(t testing.TB) *network.Model {
	t.Helper()
	m, err := network.Decode("toy.yaml", []byte(ToyYAML))
	if err != nil {
		t.Fatalf("decode toy network: %v", err)
	}
	return m
}

// Recorder is a solver that answers with a scripted function and records
// every model it was handed.
type Recorder struct {
	mu     sync.Mutex
	fn     solver.Func
	models []*network.Model
}

// NewRecorder returns a Recorder answering with fn.
func NewRecorder(fn solver.Func) *Recorder {
	return &Recorder{fn: fn}
}

// Solve implements solver.Solver.
func (r *Recorder) Solve(ctx context.Context, m *network.Model) (solver.Solution, error) {
	r.mu.Lock()
	r.models = append(r.models, m)
	r.mu.Unlock()
	return r.fn(ctx, m)
}

// Models returns the models seen so far.
func (r *Recorder) Models() []*network.Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*network.Model(nil), r.models...)
}

// Optimal returns a solver.Func that reports value for the objective and
// the given fluxes.
func Optimal(value float64, fluxes map[string]float64) solver.Func {
	return func(context.Context, *network.Model) (solver.Solution, error) {
		out := make(map[string]float64, len(fluxes))
		for k, v := range fluxes {
			out[k] = v
		}
		return solver.Solution{Status: solver.StatusOptimal, ObjectiveValue: value, Fluxes: out}, nil
	}
}

// KnockoutRates returns a solver.Func whose objective value depends on which
// reaction of rates is knocked out (bounds forced to (0,0)); baseline is
// reported when none is.
func KnockoutRates(baseline float64, rates map[string]float64) solver.Func {
	return func(_ context.Context, m *network.Model) (solver.Solution, error) {
		value := baseline
		for id, rate := range rates {
			if r, ok := m.Reaction(id); ok && r.LowerBound == 0 && r.UpperBound == 0 {
				value = rate
			}
		}
		return solver.Solution{Status: solver.StatusOptimal, ObjectiveValue: value, Fluxes: map[string]float64{}}, nil
	}
}

// TestStore opens a run store on a temporary sqlite file.
func TestStore(t *testing.T) *resultstore.Store {
	t.Helper()
	f, err := os.CreateTemp("", "redoxflux-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	st, err := resultstore.Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// ToyCatalog matches ToyNetwork: octanoic acid is producible, butanoic acid
// is not; glucose feeds the network, acetate cannot.
func ToyCatalog() catalog.Catalog {
	return catalog.Catalog{
		Products: []catalog.Product{
			{Key: "octanoic_acid", Metabolite: "occoa_c", Carbons: 8},
			{Key: "butanoic_acid", Metabolite: "btcoa_c", Carbons: 4},
		},
		Substrates: []catalog.Substrate{
			{Key: "glucose", Exchange: "EX_glc__D_e", DefaultUptake: 10},
			{Key: "acetate", Exchange: "EX_ac_e", DefaultUptake: 15},
		},
		DemandCap: scenario.DefaultDemandCap,
	}
}

// Service returns a service over ToyNetwork and ToyCatalog, solved with
// the LP solver and recording into a temporary run store.
func Service(t *testing.T, events fluxservice.Publisher) *fluxservice.Service {
	t.Helper()
	return ServiceOn(t, ToyNetwork(t), ToyCatalog(), events)
}

// ServiceOn is Service over a caller-supplied network and catalog.
func ServiceOn(t *testing.T, m *network.Model, cat catalog.Catalog, events fluxservice.Publisher) *fluxservice.Service {
	t.Helper()
	builder := scenario.NewBuilder(nil)
	session := fba.NewSession(solver.NewLP(0))
	em, err := electrochem.New(electrochem.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	svc, err := fluxservice.NewService(fluxservice.Deps{
		Holder:   network.NewHolder(m, "toysum"),
		Builder:  builder,
		Session:  session,
		Screener: screening.NewEngine(builder, session, 2, nil),
		Electro:  em,
		Sweeper:  electrochem.NewSweeper(electrochem.WithWorkers(2)),
		Catalog:  cat,
		Runs:     TestStore(t),
		Events:   events,
	})
	if err != nil {
		t.Fatal(err)
	}
	return svc
}
