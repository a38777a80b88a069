package electrochem

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/starford/redoxflux/internal/fba"
)

func newModel(t *testing.T, mutate func(*Config)) *Model {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func near(a, b, rel float64) bool {
	return math.Abs(a-b) <= rel*math.Max(math.Abs(a), math.Abs(b))
}

func TestNernst_EqualConcentrationsGiveStandard(t *testing.T) {
	m := newModel(t, nil)
	for pair, e0 := range DefaultConfig().Pairs {
		for _, c := range []float64{0.01, 0.5, 2, 100} {
			got, err := m.Nernst(pair, c, c)
			if err != nil {
				t.Fatal(err)
			}
			if got != e0 {
				t.Errorf("Nernst(%s, %g, %g) = %g, want %g", pair, c, c, got, e0)
			}
		}
	}
}

func TestNernst_ZeroConcentration(t *testing.T) {
	m := newModel(t, nil)
	for _, tc := range [][2]float64{{0, 1}, {1, 0}, {0, 0}} {
		got, err := m.Nernst(PairNADP, tc[0], tc[1])
		if err != nil {
			t.Fatal(err)
		}
		if got != -0.32 {
			t.Errorf("Nernst(ox=%g, red=%g) = %g, want -0.32", tc[0], tc[1], got)
		}
	}
}

func TestNernst_ShiftsWithRatio(t *testing.T) {
	m := newModel(t, nil)
	// More reduced form lowers the potential by RT/2F * ln(10).
	got, err := m.Nernst(PairNAD, 0.1, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := -0.32 - 8.314*298.15/(2*96485)*math.Log(10)
	if !near(got, want, 1e-12) {
		t.Errorf("Nernst = %g, want %g", got, want)
	}
}

func TestNernst_UnknownPair(t *testing.T) {
	m := newModel(t, nil)
	if _, err := m.Nernst("ATP/ADP", 1, 1); !errors.Is(err, ErrUnknownPair) {
		t.Errorf("err = %v, want ErrUnknownPair", err)
	}
}

func TestElectrochemicalRate_Branches(t *testing.T) {
	m := newModel(t, nil)
	vt := 8.314 * 298.15 / 96485

	lin, err := m.ElectrochemicalRate(-0.30, PairNADP, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if lin.Branch != BranchLinear || lin.TransportBound {
		t.Fatalf("linear point = %+v", lin)
	}
	wantLin := 1e-4 * 0.02 / vt * 10 * 1000 / (2 * 96485)
	if !near(lin.Rate, wantLin, 1e-9) {
		t.Errorf("linear rate = %g, want %g", lin.Rate, wantLin)
	}

	cat, err := m.ElectrochemicalRate(-0.50, PairNADP, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Branch != BranchCathodic || cat.CurrentDensity >= 0 {
		t.Errorf("cathodic point = %+v", cat)
	}
	wantKinetic := 1e-4 * math.Exp(0.5*0.18/vt) * 10 * 1000 / (2 * 96485)
	if !near(cat.KineticRate, wantKinetic, 1e-9) {
		t.Errorf("kinetic rate = %g, want %g", cat.KineticRate, wantKinetic)
	}
	if !cat.TransportBound || !near(cat.Rate, 5e-6, 1e-12) {
		t.Errorf("rate = %g, want transport limit 5e-6", cat.Rate)
	}

	an, err := m.ElectrochemicalRate(0.0, PairNADP, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if an.Branch != BranchAnodic || an.CurrentDensity <= 0 {
		t.Errorf("anodic point = %+v", an)
	}
}

func TestElectrochemicalRate_TransportDominates(t *testing.T) {
	m := newModel(t, nil)
	prev := math.Inf(1)
	for _, e := range Linspace(-0.45, -1.5, 22) {
		r, err := m.ElectrochemicalRate(e, PairNADP, 0.5, 0.5)
		if err != nil {
			t.Fatal(err)
		}
		if r.Rate > r.TransportLimit {
			t.Errorf("E=%g: rate %g above transport limit %g", e, r.Rate, r.TransportLimit)
		}
		if r.Rate > prev {
			t.Errorf("E=%g: rate rose from %g to %g once transport bound", e, prev, r.Rate)
		}
		prev = r.Rate
	}
}

func TestElectrochemicalRate_TransportScalesWithOxidized(t *testing.T) {
	m := newModel(t, nil)
	lo, _ := m.ElectrochemicalRate(-0.9, PairNADP, 0.5, 0.5)
	hi, _ := m.ElectrochemicalRate(-0.9, PairNADP, 1.0, 0.5)
	if !near(hi.TransportLimit, 2*lo.TransportLimit, 1e-12) {
		t.Errorf("transport limits %g and %g", lo.TransportLimit, hi.TransportLimit)
	}
}

func TestEnhance_CofactorLimited(t *testing.T) {
	m := newModel(t, nil)
	baseline := fba.NewResult("DM_occoa_c", 5, nil)
	enh, err := m.Enhance(baseline, EnhanceParams{Product: "octanoic_acid", Carbons: 8, Potential: -0.5, Cap: 10})
	if err != nil {
		t.Fatal(err)
	}
	regen := 5e-6 * 3600
	wantRate := regen / 8
	if enh.Status != StatusEnhanced || enh.Pair != PairNADP {
		t.Fatalf("enhancement = %+v", enh)
	}
	if !near(enh.RegenerationRate, regen, 1e-9) || !near(enh.EnhancedRate, wantRate, 1e-9) {
		t.Errorf("regen = %g rate = %g", enh.RegenerationRate, enh.EnhancedRate)
	}
	if enh.RateLimitingFactor != LimitCofactor {
		t.Errorf("limit = %s", enh.RateLimitingFactor)
	}
	if enh.NADPHDemand != 40 || enh.ATPDemand != 20 {
		t.Errorf("demands = %g NADPH, %g ATP", enh.NADPHDemand, enh.ATPDemand)
	}
	wantPower := 0.5 * regen * 2 * 96485 / 3600
	if !near(enh.ElectricalPower, wantPower, 1e-9) {
		t.Errorf("power = %g, want %g", enh.ElectricalPower, wantPower)
	}
	wantEff := wantRate * 8 * 12 * 1000 * 37 / wantPower * 100
	if !near(enh.EnergyEfficiency, wantEff, 1e-9) {
		t.Errorf("efficiency = %g, want %g", enh.EnergyEfficiency, wantEff)
	}
	if !near(enh.EnhancementActual, wantRate/5, 1e-9) {
		t.Errorf("actual enhancement = %g", enh.EnhancementActual)
	}
}

func TestEnhance_CapBinds(t *testing.T) {
	m := newModel(t, func(c *Config) { c.Constants.TransportCoefficient = 1e3 })
	baseline := fba.NewResult("DM_occoa_c", 0.001, nil)
	enh, err := m.Enhance(baseline, EnhanceParams{Product: "octanoic_acid", Carbons: 8, Potential: -0.5, Cap: 10})
	if err != nil {
		t.Fatal(err)
	}
	if !near(enh.EnhancedRate, 0.01, 1e-9) || enh.RateLimitingFactor != LimitEnzymatic {
		t.Errorf("rate = %g limit = %s", enh.EnhancedRate, enh.RateLimitingFactor)
	}
}

func TestEnhance_ZeroPowerGivesZeroEfficiency(t *testing.T) {
	m := newModel(t, nil)
	enh, err := m.Enhance(fba.NewResult("x", 5, nil), EnhanceParams{Product: "p", Carbons: 8, Potential: 0, Cap: 10})
	if err != nil {
		t.Fatal(err)
	}
	if enh.ElectricalPower != 0 || enh.EnergyEfficiency != 0 {
		t.Errorf("power = %g efficiency = %g", enh.ElectricalPower, enh.EnergyEfficiency)
	}
}

func TestEnhance_FailedBaseline(t *testing.T) {
	m := newModel(t, nil)
	enh, err := m.Enhance(fba.Failed(fba.StatusInfeasible, "x", ""), EnhanceParams{Product: "p", Carbons: 8, Potential: -0.5, Cap: 10})
	if !errors.Is(err, ErrBaselineNotOptimal) {
		t.Fatalf("err = %v", err)
	}
	if enh.Status != StatusFailed || enh.EnhancedRate != 0 || enh.RateLimitingFactor != "" {
		t.Errorf("enhancement = %+v", enh)
	}
}

func TestEnhance_RejectsBadParams(t *testing.T) {
	m := newModel(t, nil)
	base := fba.NewResult("x", 5, nil)
	if _, err := m.Enhance(base, EnhanceParams{Product: "p", Carbons: 1, Potential: -0.5, Cap: 10}); err == nil {
		t.Error("expected error for one-carbon product")
	}
	if _, err := m.Enhance(base, EnhanceParams{Product: "p", Carbons: 8, Potential: -0.5, Cap: 0}); err == nil {
		t.Error("expected error for zero cap")
	}
	if _, err := m.Enhance(base, EnhanceParams{Product: "p", Carbons: 8, Potential: -0.5, Cap: 10, Pair: "O2/H2O"}); !errors.Is(err, ErrUnknownPair) {
		t.Errorf("pair without pool: err = %v", err)
	}
}

func scripted(rates map[float64]float64) EvaluatorFunc {
	return func(_ context.Context, e float64) (Enhancement, error) {
		r, ok := rates[e]
		if !ok {
			return Enhancement{}, errors.New("no data")
		}
		return Enhancement{Status: StatusEnhanced, Potential: e, EnhancedRate: r}, nil
	}
}

func TestSweep_SelectsMaximum(t *testing.T) {
	s := NewSweeper(WithWorkers(2))
	res, err := s.Optimize(context.Background(), scripted(map[float64]float64{-0.8: 2, -0.5: 5, -0.2: 1}), []float64{-0.8, -0.5, -0.2})
	if err != nil {
		t.Fatal(err)
	}
	if res.BestPotential != -0.5 || res.Best.EnhancedRate != 5 {
		t.Errorf("best = %g (%g)", res.BestPotential, res.Best.EnhancedRate)
	}
	if len(res.Points) != 3 || res.Points[0].Potential != -0.8 {
		t.Errorf("points = %+v", res.Points)
	}
}

func TestSweep_TiePrefersLowerMagnitude(t *testing.T) {
	res, err := NewSweeper().Optimize(context.Background(),
		scripted(map[float64]float64{-0.8: 5, -0.3: 5, -0.5: 1}), []float64{-0.8, -0.5, -0.3})
	if err != nil {
		t.Fatal(err)
	}
	if res.BestPotential != -0.3 {
		t.Errorf("best = %g, want -0.3", res.BestPotential)
	}
}

type okCounter struct{ ok, failed int }

func (c *okCounter) ObservePoint(ok bool) {
	if ok {
		c.ok++
	} else {
		c.failed++
	}
}

func TestSweep_IsolatesFailures(t *testing.T) {
	eval := EvaluatorFunc(func(_ context.Context, e float64) (Enhancement, error) {
		switch e {
		case -0.8:
			panic("electrode exploded")
		case -0.6:
			return Enhancement{Status: StatusFailed}, nil
		case -0.4:
			return Enhancement{}, errors.New("solver error")
		}
		return Enhancement{Status: StatusEnhanced, EnhancedRate: 1}, nil
	})
	obs := &okCounter{}
	res, err := NewSweeper(WithWorkers(1), WithPointObserver(obs)).Optimize(context.Background(), eval, []float64{-0.8, -0.6, -0.4, -0.2})
	if err != nil {
		t.Fatal(err)
	}
	if res.BestPotential != -0.2 {
		t.Errorf("best = %g", res.BestPotential)
	}
	failed := 0
	for _, p := range res.Points {
		if p.Failed {
			failed++
		}
	}
	if failed != 3 || obs.failed != 3 || obs.ok != 1 {
		t.Errorf("failed points = %d, observer = %+v", failed, obs)
	}
}

func TestSweep_AllFail(t *testing.T) {
	_, err := NewSweeper().Optimize(context.Background(), scripted(nil), []float64{-0.8, -0.5})
	if !errors.Is(err, ErrNoFeasiblePotential) {
		t.Errorf("err = %v", err)
	}
	if _, err := NewSweeper().Optimize(context.Background(), scripted(nil), nil); !errors.Is(err, ErrNoFeasiblePotential) {
		t.Errorf("empty range: err = %v", err)
	}
}

func TestLinspace(t *testing.T) {
	got := Linspace(-0.8, -0.2, 13)
	if len(got) != 13 || got[0] != -0.8 || got[12] != -0.2 || math.Abs(got[6]+0.5) > 1e-12 {
		t.Errorf("Linspace = %v", got)
	}
	if Linspace(0, 1, 0) != nil || len(Linspace(3, 9, 1)) != 1 {
		t.Error("degenerate sizes")
	}
}

func TestCompareRegeneration(t *testing.T) {
	m := newModel(t, nil)
	rows, err := m.CompareRegeneration(fba.NewResult("DM_occoa_c", 5, nil), "octanoic_acid", 8, DefaultRegenerationSystems())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].ProductionRate != 5 || rows[0].EnhancementFactor != 1 || rows[0].Power != 0 {
		t.Errorf("enzymatic row = %+v", rows[0])
	}
	if rows[3].ProductionRate != 15 || rows[3].Power != 0.5 {
		t.Errorf("hybrid row = %+v", rows[3])
	}
	for _, r := range rows[1:3] {
		if r.Failed || r.Power <= 0 {
			t.Errorf("electrochemical row = %+v", r)
		}
	}

	if _, err := m.CompareRegeneration(fba.Failed(fba.StatusError, "x", ""), "p", 8, nil); !errors.Is(err, ErrBaselineNotOptimal) {
		t.Errorf("err = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Constants.TransferCoefficient = 1.5
	if _, err := New(cfg); err == nil {
		t.Error("expected error for alpha > 1")
	}
	cfg = DefaultConfig()
	cfg.RegenerationPair = "FAD/FADH2"
	if _, err := New(cfg); err == nil {
		t.Error("expected error for regeneration pair without pool")
	}
}
