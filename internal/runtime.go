package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/starford/redoxflux/internal/checksum"
	"github.com/starford/redoxflux/internal/electrochem"
	"github.com/starford/redoxflux/internal/fba"
	"github.com/starford/redoxflux/internal/fluxservice"
	"github.com/starford/redoxflux/internal/network"
	"github.com/starford/redoxflux/internal/observability"
	"github.com/starford/redoxflux/internal/resultstore"
	"github.com/starford/redoxflux/internal/scenario"
	"github.com/starford/redoxflux/internal/screening"
	"github.com/starford/redoxflux/internal/solver"
	"github.com/starford/redoxflux/internal/sse"
	"github.com/starford/redoxflux/internal/storage"
)

// NewLogger builds the slog logger selected by cfg, writing to w.
func NewLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	if cfg.LogFormat == LogFormatText {
		return slog.New(tint.NewHandler(w, &tint.Options{Level: cfg.LogLevel}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// Runtime is the wired application core shared by the HTTP server, the MCP
// server and the one-shot CLI commands.
type Runtime struct {
	Config   *Config
	Logger   *slog.Logger
	Library  *storage.FS
	Holder   *network.Holder
	Service  *fluxservice.Service
	Broker   *sse.Broker
	Metrics  *observability.Collector
	Registry *prometheus.Registry

	runs *resultstore.Store
}

// Open loads the base network and wires every component. Close releases
// the run store and the event broker.
func Open(opts ...Option) (*Runtime, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errors.New("config is required")
	}
	cfg := app.config
	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg.App, os.Stdout)
	}

	lib, err := storage.NewFS(cfg.Network.Dir)
	if err != nil {
		return nil, fmt.Errorf("init network library: %w", err)
	}
	m, sum, err := network.LoadFrom(lib, cfg.Network.File)
	if err != nil {
		return nil, fmt.Errorf("load base network: %w", err)
	}
	logger.Info("network: loaded",
		slog.String("model", m.ID),
		slog.String("file", cfg.Network.File),
		slog.Int("reactions", len(m.Reactions)),
		slog.Int("metabolites", len(m.Metabolites)),
		slog.String("checksum", checksum.Short(sum)),
	)
	if entries, err := lib.List(""); err == nil {
		logger.Debug("network: library scanned", slog.Int("documents", len(entries)))
	}
	holder := network.NewHolder(m, sum)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	var sv solver.Solver = solver.NewLP(cfg.Solver.Tolerance)
	if cfg.Solver.Serialize {
		sv = solver.Serialized(sv)
	}
	session := fba.NewSession(sv,
		fba.WithTimeout(cfg.Solver.Timeout),
		fba.WithLogger(logger),
		fba.WithObserver(metrics),
	)
	builder := scenario.NewBuilder(logger)
	screener := screening.NewEngine(builder, session, cfg.Screening.Workers, logger)

	electro, err := electrochem.New(cfg.Electrochem)
	if err != nil {
		return nil, fmt.Errorf("init electrochemical model: %w", err)
	}
	sweeper := electrochem.NewSweeper(
		electrochem.WithWorkers(cfg.Sweep.Workers),
		electrochem.WithSweepLogger(logger),
		electrochem.WithPointObserver(metrics),
	)

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Library:  lib,
		Holder:   holder,
		Broker:   sse.NewBroker(0),
		Metrics:  metrics,
		Registry: reg,
	}

	deps := fluxservice.Deps{
		Holder:     holder,
		Builder:    builder,
		Session:    session,
		Screener:   screener,
		Electro:    electro,
		Sweeper:    sweeper,
		Catalog:    cfg.Catalog,
		Events:     rt.Broker,
		Logger:     logger,
		Sweep:      cfg.Sweep.Defaults(),
		Floors:     cfg.Screening.Floors,
		Candidates: cfg.Screening.Candidates,
	}
	if cfg.SQLite.Enabled() {
		rt.runs, err = resultstore.Open(cfg.SQLite.Path)
		if err != nil {
			rt.Broker.Close()
			return nil, fmt.Errorf("init run store: %w", err)
		}
		deps.Runs = rt.runs
	}

	rt.Service, err = fluxservice.NewService(deps)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

// ErrBaseNetworkDocument is returned when removing the document the
// runtime serves as its base network.
var ErrBaseNetworkDocument = errors.New("document is the base network")

// Documents lists the network documents in the library.
func (rt *Runtime) Documents() ([]storage.Entry, error) {
	return rt.Library.List("")
}

// RemoveDocument deletes a library document such as an exported scenario.
// The base network cannot be removed.
func (rt *Runtime) RemoveDocument(path string) error {
	if filepath.Clean(path) == filepath.Clean(rt.Config.Network.File) {
		return fmt.Errorf("remove %s: %w", path, ErrBaseNetworkDocument)
	}
	return rt.Library.Delete(path)
}

// OnReload is the watcher callback: it counts the reload and announces the
// new revision to event subscribers.
func (rt *Runtime) OnReload(s *network.Snapshot) {
	rt.Metrics.ObserveReload()
	rt.Broker.PublishNetworkReloaded(s.Model.ID, s.Checksum)
}

// Close releases the run store and stops the event broker.
func (rt *Runtime) Close() error {
	rt.Broker.Close()
	if rt.runs != nil {
		return rt.runs.Close()
	}
	return nil
}
