package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/starford/redoxflux/internal/network"
)

// DefaultTolerance is the reduced-cost tolerance handed to the simplex.
const DefaultTolerance = 1e-9

// boundCap replaces infinite bounds; flux models use ±1000 for "open".
const boundCap = 1e6

// LP solves flux balance problems with gonum's dense simplex. It is meant
// for small and medium networks and for tests; genome-scale models should
// plug a dedicated solver into the same interface.
type LP struct {
	Tolerance float64
}

// NewLP returns an LP solver. A non-positive tol selects DefaultTolerance.
func NewLP(tol float64) *LP {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return &LP{Tolerance: tol}
}

var _ Solver = (*LP)(nil)

// Solve converts the model to standard form and runs the simplex.
//
// Each flux v_j in [l_j, u_j] becomes v_j = l_j + x_j with x_j >= 0 and a
// slack s_j >= 0 such that x_j + s_j = u_j - l_j. Mass balance rows S·v = 0
// become S·x = -S·l. Linearly dependent balance rows are dropped first
// because the simplex needs a constraint matrix of full row rank.
func (s *LP) Solve(ctx context.Context, m *network.Model) (Solution, error) {
	if m == nil {
		return Solution{}, errors.New("solver: nil model")
	}
	ids := m.ReactionIDs()
	n := len(ids)
	if n == 0 {
		return Solution{}, fmt.Errorf("solver: model %q has no reactions", m.ID)
	}
	col := make(map[string]int, n)
	lower := make([]float64, n)
	upper := make([]float64, n)
	obj := make([]float64, n)
	for j, id := range ids {
		r := m.Reactions[id]
		col[id] = j
		lower[j] = clampBound(r.LowerBound)
		upper[j] = clampBound(r.UpperBound)
		obj[j] = r.ObjectiveCoefficient
	}

	var balance [][]float64
	var rhs []float64
	for _, met := range m.MetaboliteIDs() {
		row := make([]float64, n)
		touched := false
		for _, id := range ids {
			if c, ok := m.Reactions[id].Stoichiometry[met]; ok && c != 0 {
				row[col[id]] = c
				touched = true
			}
		}
		if !touched {
			continue
		}
		b := 0.0
		for j, c := range row {
			b -= c * lower[j]
		}
		balance = append(balance, row)
		rhs = append(rhs, b)
	}
	keep := independentRows(balance)

	rows := len(keep) + n
	A := mat.NewDense(rows, 2*n, nil)
	b := make([]float64, rows)
	for i, k := range keep {
		for j, v := range balance[k] {
			if v != 0 {
				A.Set(i, j, v)
			}
		}
		b[i] = rhs[k]
	}
	for j := 0; j < n; j++ {
		r := len(keep) + j
		A.Set(r, j, 1)
		A.Set(r, n+j, 1)
		b[r] = upper[j] - lower[j]
	}

	c := make([]float64, 2*n)
	offset := 0.0
	for j := 0; j < n; j++ {
		c[j] = -obj[j]
		offset += obj[j] * lower[j]
	}

	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}

	optF, x, err := lp.Simplex(c, A, b, s.Tolerance, nil)
	switch {
	case err == nil:
	case errors.Is(err, lp.ErrInfeasible):
		return Solution{Status: StatusInfeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return Solution{Status: StatusUnbounded}, nil
	case errors.Is(err, lp.ErrSingular):
		return Solution{Status: StatusSingular}, nil
	default:
		return Solution{Status: StatusNumeric}, nil
	}

	fluxes := make(map[string]float64, n)
	for j, id := range ids {
		v := lower[j] + x[j]
		if math.Abs(v) < s.Tolerance {
			v = 0
		}
		fluxes[id] = v
	}
	return Solution{
		Status:         StatusOptimal,
		ObjectiveValue: -optF + offset,
		Fluxes:         fluxes,
	}, nil
}

func clampBound(v float64) float64 {
	switch {
	case math.IsInf(v, 1) || v > boundCap:
		return boundCap
	case math.IsInf(v, -1) || v < -boundCap:
		return -boundCap
	}
	return v
}

// independentRows returns the indices of a maximal linearly independent
// subset of rows, by Gaussian elimination against the rows kept so far.
func independentRows(rows [][]float64) []int {
	type pivotRow struct {
		col int
		vec []float64
	}
	var basis []pivotRow
	var keep []int
	for i, row := range rows {
		v := append([]float64(nil), row...)
		scale := 0.0
		for _, x := range v {
			scale = math.Max(scale, math.Abs(x))
		}
		if scale == 0 {
			continue
		}
		for _, p := range basis {
			if f := v[p.col]; f != 0 {
				for j := range v {
					v[j] -= f * p.vec[j]
				}
			}
		}
		pc, best := -1, 0.0
		for j, x := range v {
			if a := math.Abs(x); a > best {
				pc, best = j, a
			}
		}
		if pc < 0 || best <= 1e-9*scale {
			continue
		}
		inv := 1 / v[pc]
		for j := range v {
			v[j] *= inv
		}
		basis = append(basis, pivotRow{col: pc, vec: v})
		keep = append(keep, i)
	}
	return keep
}
