package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/redoxflux/pkg/config"

	"github.com/starford/redoxflux/internal/fluxservice"
	"github.com/starford/redoxflux/internal/testutil"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !cfg.SQLite.Enabled() {
		t.Error("default config should persist runs")
	}
	if cfg.Sweep.Defaults() != fluxservice.DefaultSweep() {
		t.Errorf("sweep defaults = %+v", cfg.Sweep.Defaults())
	}
}

func TestApplicationConfig_LogFormat(t *testing.T) {
	cfg := ApplicationConfig{HTTP: HTTPConfig{Port: 8080}}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("log format = %q, want json", cfg.LogFormat)
	}
	cfg.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown log format should fail")
	}
}

func TestNetworkConfig_FileMustBeName(t *testing.T) {
	cfg := NetworkConfig{Dir: "./networks", File: "sub/model.yaml"}
	if err := cfg.Validate(); err == nil {
		t.Error("nested network file should fail")
	}
}

func TestSweepConfig_Validate(t *testing.T) {
	cfg := SweepConfig{Start: -0.8, Stop: -0.2, Steps: 0, EnhancementCap: 10}
	if err := cfg.Validate(); err == nil {
		t.Error("zero steps should fail")
	}
	cfg.Steps = 3
	cfg.EnhancementCap = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero cap should fail")
	}
}

func TestSQLiteConfig_Disabled(t *testing.T) {
	if (&SQLiteConfig{}).Enabled() {
		t.Error("empty path should disable persistence")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("REDOXFLUX_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `app:
  log_level: debug
  log_format: text
  http:
    port: 9090
auth:
  mode: token
  token: ${REDOXFLUX_TOKEN}
solver:
  timeout: 5s
  serialize: true
sweep:
  start: -0.6
  stop: -0.3
  steps: 4
  enhancement_cap: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.LogFormat != LogFormatText || cfg.App.HTTP.Port != 9090 {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Auth.Token != "s3cret" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Solver.Timeout != 5*time.Second || !cfg.Solver.Serialize {
		t.Errorf("solver = %+v", cfg.Solver)
	}
	if cfg.Sweep.Steps != 4 || cfg.Sweep.EnhancementCap != 5 {
		t.Errorf("sweep = %+v", cfg.Sweep)
	}
	if cfg.Network.File != "iML1515.yaml" || len(cfg.Catalog.Products) == 0 {
		t.Error("unset sections should keep defaults")
	}
}

func toyConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "toy.yaml"), []byte(testutil.ToyYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	cfg.Network = NetworkConfig{Dir: dir, File: "toy.yaml"}
	cfg.SQLite.Path = filepath.Join(dir, "runs.db")
	cfg.Catalog = testutil.ToyCatalog()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestOpen(t *testing.T) {
	cfg := toyConfig(t)
	rt, err := Open(WithConfig(cfg), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rt.Close()

	out, err := rt.Service.OptimizeProduct(context.Background(), fluxservice.ProductionRequest{Product: "octanoic_acid"})
	if err != nil {
		t.Fatalf("OptimizeProduct: %v", err)
	}
	if out.RunID == "" {
		t.Error("run should be persisted")
	}
	if _, err := rt.Service.GetRun(context.Background(), out.RunID); err != nil {
		t.Errorf("GetRun: %v", err)
	}

	rt.OnReload(rt.Holder.Load())
	if n := testCounter(t, rt, "network_reloads_total"); n != 1 {
		t.Errorf("reloads = %g, want 1", n)
	}
}

func TestRemoveDocument(t *testing.T) {
	cfg := toyConfig(t)
	rt, err := Open(WithConfig(cfg), WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close()

	data, _, err := rt.Service.ExportScenario(fluxservice.ProductionRequest{Product: "octanoic_acid"})
	if err != nil {
		t.Fatal(err)
	}
	if err := rt.Library.Write("scenarios/octanoic.yaml", data); err != nil {
		t.Fatal(err)
	}
	docs, err := rt.Documents()
	if err != nil || len(docs) != 2 {
		t.Fatalf("documents = %+v, %v", docs, err)
	}

	if err := rt.RemoveDocument("scenarios/octanoic.yaml"); err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	if docs, _ := rt.Documents(); len(docs) != 1 {
		t.Errorf("documents after remove = %+v", docs)
	}
	if err := rt.RemoveDocument("./toy.yaml"); !errors.Is(err, ErrBaseNetworkDocument) {
		t.Errorf("removing base network: err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Network.Dir, "toy.yaml")); err != nil {
		t.Errorf("base network removed: %v", err)
	}
}

func TestOpen_MissingNetwork(t *testing.T) {
	cfg := toyConfig(t)
	cfg.Network.File = "absent.yaml"
	if _, err := Open(WithConfig(cfg)); err == nil || !strings.Contains(err.Error(), "load base network") {
		t.Errorf("err = %v", err)
	}
}

func TestOpen_RequiresConfig(t *testing.T) {
	if _, err := Open(); err == nil {
		t.Error("expected error without config")
	}
}

func testCounter(t *testing.T, rt *Runtime, name string) float64 {
	t.Helper()
	families, err := rt.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}
