package screening

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/starford/redoxflux/internal/fba"
	"github.com/starford/redoxflux/internal/network"
	"github.com/starford/redoxflux/internal/scenario"
)

// SubstrateOption is one carbon source to try.
type SubstrateOption struct {
	Name     string  `json:"name"`
	Exchange string  `json:"exchange"`
	Uptake   float64 `json:"uptake"`
}

// SubstrateRequest describes a substrate preference screen.
type SubstrateRequest struct {
	Base       scenario.Scenario
	Objective  network.Objective
	Substrates []SubstrateOption
}

// SubstrateRow is the outcome for one substrate.
type SubstrateRow struct {
	SubstrateOption
	Result fba.Result `json:"result"`
	Failed bool       `json:"failed,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// SubstrateReport lists rows in request order and names the substrate with
// the highest optimal objective value.
type SubstrateReport struct {
	Rows     []SubstrateRow     `json:"rows"`
	Best     string             `json:"best,omitempty"`
	Warnings []scenario.Warning `json:"warnings,omitempty"`
}

// ScreenSubstrates solves once per substrate. Each run opens that
// substrate's exchange to its uptake and closes the exchanges of the other
// listed substrates; the medium leaves every other exchange as it is.
// A failing substrate is recorded and does not stop the batch.
func (e *Engine) ScreenSubstrates(ctx context.Context, base *network.Model, req SubstrateRequest) (SubstrateReport, error) {
	rows := make([]SubstrateRow, len(req.Substrates))
	rowWarns := make([][]scenario.Warning, len(req.Substrates))
	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, sub := range req.Substrates {
		g.Go(func() error {
			medium := make(map[string]float64, len(req.Substrates))
			for _, other := range req.Substrates {
				medium[other.Exchange] = 0
			}
			medium[sub.Exchange] = sub.Uptake
			row := SubstrateRow{SubstrateOption: sub}
			res, warns, err := e.solveScenario(ctx, base, req.Base.With(scenario.Medium(medium)), req.Objective, sub.Exchange)
			rowWarns[i] = warns
			switch {
			case err != nil:
				row.Failed, row.Error = true, err.Error()
			case !res.Optimal():
				row.Result = res
				row.Failed, row.Error = true, string(res.Status)
			default:
				row.Result = res
			}
			rows[i] = row
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return SubstrateReport{}, fmt.Errorf("screening: %w", err)
	}

	rep := SubstrateReport{Rows: rows, Warnings: mergeWarnings(nil, rowWarns...)}
	best := -1.0
	for _, r := range rows {
		if !r.Failed && r.Result.ObjectiveValue > best {
			best = r.Result.ObjectiveValue
			rep.Best = r.Name
		}
	}
	return rep, nil
}
