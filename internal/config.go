package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/redoxflux/internal/catalog"
	"github.com/starford/redoxflux/internal/electrochem"
	"github.com/starford/redoxflux/internal/fluxservice"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig  `yaml:"app"`
	Network     NetworkConfig      `yaml:"network"`
	SQLite      SQLiteConfig       `yaml:"sqlite"`
	Auth        AuthConfig         `yaml:"auth"`
	Solver      SolverConfig       `yaml:"solver"`
	Screening   ScreeningConfig    `yaml:"screening"`
	Electrochem electrochem.Config `yaml:"electrochem"`
	Sweep       SweepConfig        `yaml:"sweep"`
	Catalog     catalog.Catalog    `yaml:"catalog"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Network.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if err := c.Screening.Validate(); err != nil {
		return err
	}
	if err := c.Electrochem.Validate(); err != nil {
		return fmt.Errorf("electrochem: %w", err)
	}
	if err := c.Sweep.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NetworkConfig locates the base network document.
type NetworkConfig struct {
	// Dir is the network library directory.
	Dir string `yaml:"dir"`
	// File is the base network file name inside Dir.
	File string `yaml:"file"`
	// Watch reloads the base network when File changes on disk.
	Watch bool `yaml:"watch"`
}

// Validate validates the network configuration.
func (c *NetworkConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.File, validation.Required, validation.By(func(any) error {
			if strings.ContainsAny(c.File, `/\`) {
				return errors.New("must be a file name inside dir")
			}
			return nil
		})),
	)
}

// SQLiteConfig holds SQLite database configuration. An empty Path
// disables run persistence.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether runs are persisted.
func (c *SQLiteConfig) Enabled() bool { return c.Path != "" }

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// SolverConfig tunes the metabolic solver.
type SolverConfig struct {
	// Timeout bounds one solve; 0 disables the bound.
	Timeout time.Duration `yaml:"timeout"`
	// Tolerance is the simplex tolerance; 0 selects the solver default.
	Tolerance float64 `yaml:"tolerance"`
	// Serialize runs at most one solve at a time.
	Serialize bool `yaml:"serialize"`
}

// Validate validates the solver configuration.
func (c *SolverConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Tolerance, validation.Min(0.0)),
	)
}

// ScreeningConfig sizes the screening worker pool and its defaults.
type ScreeningConfig struct {
	// Workers <= 0 selects GOMAXPROCS.
	Workers    int       `yaml:"workers"`
	Candidates []string  `yaml:"candidates"`
	Floors     []float64 `yaml:"growth_floors"`
}

// Validate validates the screening configuration.
func (c *ScreeningConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Floors, validation.Each(validation.Min(0.0))),
	)
}

// SweepConfig is the default potential sweep.
type SweepConfig struct {
	Start          float64 `yaml:"start"`
	Stop           float64 `yaml:"stop"`
	Steps          int     `yaml:"steps"`
	EnhancementCap float64 `yaml:"enhancement_cap"`
	// Workers <= 0 selects GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// Validate validates the sweep configuration.
func (c *SweepConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Steps, validation.Required, validation.Min(1)),
		validation.Field(&c.EnhancementCap, validation.Required, validation.Min(0.0).Exclusive()),
	)
}

// Defaults converts c to service sweep defaults.
func (c *SweepConfig) Defaults() fluxservice.SweepDefaults {
	return fluxservice.SweepDefaults{Start: c.Start, Stop: c.Stop, Steps: c.Steps, EnhancementCap: c.EnhancementCap}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	sweep := fluxservice.DefaultSweep()
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Network: NetworkConfig{
			Dir:   "./networks",
			File:  "iML1515.yaml",
			Watch: true,
		},
		SQLite: SQLiteConfig{
			Path: "./redoxflux.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Solver: SolverConfig{
			Timeout: 30 * time.Second,
		},
		Screening: ScreeningConfig{
			Candidates: fluxservice.DefaultCandidates(),
			Floors:     fluxservice.DefaultFloors(),
		},
		Electrochem: electrochem.DefaultConfig(),
		Sweep: SweepConfig{
			Start:          sweep.Start,
			Stop:           sweep.Stop,
			Steps:          sweep.Steps,
			EnhancementCap: sweep.EnhancementCap,
		},
		Catalog: catalog.Default(),
	}
}
