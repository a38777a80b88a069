// Package fluxservice coordinates the base network, scenario building,
// optimization, screening and the electrochemical model behind one API
// used by the HTTP, MCP and CLI front-ends.
package fluxservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/redoxflux/internal/apperr"
	"github.com/starford/redoxflux/internal/catalog"
	"github.com/starford/redoxflux/internal/electrochem"
	"github.com/starford/redoxflux/internal/fba"
	"github.com/starford/redoxflux/internal/network"
	"github.com/starford/redoxflux/internal/resultstore"
	"github.com/starford/redoxflux/internal/scenario"
	"github.com/starford/redoxflux/internal/screening"
	"github.com/starford/redoxflux/internal/sse"
)

// Run kinds.
const (
	KindOptimize     = "optimize"
	KindCompare      = "compare"
	KindKnockouts    = "screen_knockouts"
	KindSubstrates   = "screen_substrates"
	KindTradeoff     = "tradeoff"
	KindEnhance      = "electrochem_enhance"
	KindSweep        = "electrochem_sweep"
	KindRegeneration = "electrochem_compare"
)

const defaultRunListCap = 50

// Publisher receives run notifications. *sse.Broker implements it.
type Publisher interface {
	PublishRun(ev sse.RunEvent)
}

// SweepDefaults fills sweep requests that omit their range.
type SweepDefaults struct {
	Start          float64
	Stop           float64
	Steps          int
	EnhancementCap float64
}

// DefaultSweep is the -0.8..-0.2 V range in 13 points with a 10x cap.
func DefaultSweep() SweepDefaults {
	return SweepDefaults{Start: -0.8, Stop: -0.2, Steps: 13, EnhancementCap: 10}
}

// Deps are the collaborators of a Service. Runs and Events are optional.
type Deps struct {
	Holder   *network.Holder
	Builder  *scenario.Builder
	Session  *fba.Session
	Screener *screening.Engine
	Electro  *electrochem.Model
	Sweeper  *electrochem.Sweeper
	Catalog  catalog.Catalog
	Runs     resultstore.RunStore
	Events   Publisher
	Logger   *slog.Logger
	Sweep    SweepDefaults
	// Floors are the default growth floors of a trade-off scan.
	Floors []float64
	// Candidates are the default knockout candidates.
	Candidates []string
}

// Service is the application facade.
type Service struct {
	holder     *network.Holder
	builder    *scenario.Builder
	session    *fba.Session
	screener   *screening.Engine
	electro    *electrochem.Model
	sweeper    *electrochem.Sweeper
	catalog    catalog.Catalog
	runs       resultstore.RunStore
	events     Publisher
	logger     *slog.Logger
	sweep      SweepDefaults
	floors     []float64
	candidates []string
}

// DefaultCandidates are the overflow and fermentation reactions screened
// when a request names none.
func DefaultCandidates() []string {
	return []string{"ACALD", "PTAr", "ACKr", "LDH_D", "PFL"}
}

// DefaultFloors are the growth floors 0, 0.1, ..., 0.8.
func DefaultFloors() []float64 {
	return electrochem.Linspace(0, 0.8, 9)
}

// NewService checks d and returns a Service.
func NewService(d Deps) (*Service, error) {
	switch {
	case d.Holder == nil || d.Holder.Model() == nil:
		return nil, errors.New("fluxservice: network holder is empty")
	case d.Builder == nil || d.Session == nil || d.Screener == nil:
		return nil, errors.New("fluxservice: builder, session and screener are required")
	case d.Electro == nil || d.Sweeper == nil:
		return nil, errors.New("fluxservice: electrochemical model and sweeper are required")
	}
	if err := d.Catalog.Validate(); err != nil {
		return nil, fmt.Errorf("fluxservice: catalog: %w", err)
	}
	s := &Service{
		holder:     d.Holder,
		builder:    d.Builder,
		session:    d.Session,
		screener:   d.Screener,
		electro:    d.Electro,
		sweeper:    d.Sweeper,
		catalog:    d.Catalog,
		runs:       d.Runs,
		events:     d.Events,
		logger:     d.Logger,
		sweep:      d.Sweep,
		floors:     d.Floors,
		candidates: d.Candidates,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.sweep.Steps <= 0 {
		s.sweep = DefaultSweep()
	}
	if len(s.floors) == 0 {
		s.floors = DefaultFloors()
	}
	if len(s.candidates) == 0 {
		s.candidates = DefaultCandidates()
	}
	return s, nil
}

// Catalog returns the product and substrate catalog.
func (s *Service) Catalog() catalog.Catalog { return s.catalog }

// Network returns the current base network snapshot.
func (s *Service) Network() *network.Snapshot { return s.holder.Load() }

// record persists a run and announces it. Persistence failures are logged,
// never returned: the computed result is still valid.
func (s *Service) record(ctx context.Context, kind, label, status string, value float64, payload any) string {
	ev := sse.RunEvent{Kind: kind, Label: label, Status: status}
	if s.runs != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.Error("fluxservice: encode run payload", slog.String("kind", kind), slog.String("error", err.Error()))
		}
		run, err := s.runs.SaveRun(ctx, resultstore.Run{
			Kind:            kind,
			Label:           label,
			Status:          status,
			ObjectiveValue:  value,
			NetworkChecksum: s.holder.Load().Checksum,
			Payload:         data,
		})
		if err != nil {
			s.logger.Error("fluxservice: save run", slog.String("kind", kind), slog.String("error", err.Error()))
		} else {
			ev.ID = run.ID
		}
	}
	if s.events != nil {
		s.events.PublishRun(ev)
	}
	s.logger.Info("fluxservice: run finished",
		slog.String("kind", kind),
		slog.String("label", label),
		slog.String("status", status),
		slog.Float64("value", value),
	)
	return ev.ID
}

// ListRuns lists recorded runs. Without a store the list is empty.
func (s *Service) ListRuns(ctx context.Context, kind string, limit, offset int) ([]resultstore.Run, int, error) {
	if s.runs == nil {
		return []resultstore.Run{}, 0, nil
	}
	if limit <= 0 || limit > 500 {
		limit = defaultRunListCap
	}
	runs, total, err := s.runs.ListRuns(ctx, resultstore.ListFilter{Kind: kind, Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, err
	}
	if runs == nil {
		runs = []resultstore.Run{}
	}
	return runs, total, nil
}

// GetRun returns one recorded run.
func (s *Service) GetRun(ctx context.Context, id string) (resultstore.Run, error) {
	if s.runs == nil {
		return resultstore.Run{}, fmt.Errorf("fluxservice: run %s: %w", id, apperr.ErrNotFound)
	}
	return s.runs.GetRun(ctx, id)
}
