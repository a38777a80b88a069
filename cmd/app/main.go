package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/redoxflux/internal"
	"github.com/starford/redoxflux/internal/fluxservice"
	pkgconfig "github.com/starford/redoxflux/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, version, internal.WithConfig(cfg))
}

// oneShot opens the runtime with logs on stderr, runs fn and prints its
// result as JSON on stdout.
func oneShot(fn func(ctx context.Context, cmd *cli.Command, rt *internal.Runtime) (any, error)) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		rt, err := internal.Open(
			internal.WithConfig(cfg),
			internal.WithLogger(internal.NewLogger(cfg.App, os.Stderr)),
		)
		if err != nil {
			return err
		}
		defer rt.Close()

		out, err := fn(ctx, cmd, rt)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

func productionRequest(cmd *cli.Command) fluxservice.ProductionRequest {
	return fluxservice.ProductionRequest{
		Product:     cmd.String("product"),
		System:      fluxservice.System(cmd.String("system")),
		Substrate:   cmd.String("substrate"),
		Uptake:      cmd.Float("uptake"),
		GrowthFloor: cmd.Float("growth-floor"),
		Knockouts:   cmd.StringSlice("knockout"),
	}
}

func productionFlags(productRequired bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "product", Aliases: []string{"p"}, Usage: "Product key", Required: productRequired},
		&cli.StringFlag{Name: "system", Usage: "cell_free or cellular", Value: string(fluxservice.SystemCellFree)},
		&cli.StringFlag{Name: "substrate", Usage: "Substrate key (default: first catalog substrate)"},
		&cli.FloatFlag{Name: "uptake", Usage: "Substrate uptake in mmol/gDW/h; 0 selects the catalog default"},
		&cli.FloatFlag{Name: "growth-floor", Usage: "Minimum growth rate for cellular systems"},
		&cli.StringSliceFlag{Name: "knockout", Aliases: []string{"k"}, Usage: "Reaction id to knock out (repeatable)"},
	}
}

func optimize(ctx context.Context, cmd *cli.Command, rt *internal.Runtime) (any, error) {
	if cmd.Bool("all") {
		req := productionRequest(cmd)
		return rt.Service.OptimizeAll(ctx, req.System, req.Substrate, req.Uptake)
	}
	if cmd.String("product") == "" {
		return nil, errors.New("--product is required unless --all is set")
	}
	return rt.Service.OptimizeProduct(ctx, productionRequest(cmd))
}

func compare(ctx context.Context, cmd *cli.Command, rt *internal.Runtime) (any, error) {
	return rt.Service.CompareSystems(ctx, cmd.String("product"), cmd.String("substrate"), cmd.Float("uptake"))
}

func screenKnockouts(ctx context.Context, cmd *cli.Command, rt *internal.Runtime) (any, error) {
	return rt.Service.ScreenKnockouts(ctx, fluxservice.KnockoutScreenRequest{
		ProductionRequest: productionRequest(cmd),
		Candidates:        cmd.StringSlice("candidate"),
	})
}

func screenSubstrates(ctx context.Context, cmd *cli.Command, rt *internal.Runtime) (any, error) {
	return rt.Service.ScreenSubstrates(ctx, productionRequest(cmd))
}

func sweep(ctx context.Context, cmd *cli.Command, rt *internal.Runtime) (any, error) {
	return rt.Service.Sweep(ctx, fluxservice.SweepRequest{
		Product:   cmd.String("product"),
		Substrate: cmd.String("substrate"),
		Uptake:    cmd.Float("uptake"),
		Start:     cmd.Float("start"),
		Stop:      cmd.Float("stop"),
		Steps:     int(cmd.Int("steps")),
		Cap:       cmd.Float("cap"),
		Pair:      cmd.String("pair"),
	})
}

func export(_ context.Context, cmd *cli.Command, rt *internal.Runtime) (any, error) {
	data, warnings, err := rt.Service.ExportScenario(productionRequest(cmd))
	if err != nil {
		return nil, err
	}
	out := cmd.String("out")
	if err := rt.Library.Write(out, data); err != nil {
		return nil, fmt.Errorf("write scenario: %w", err)
	}
	return map[string]any{"path": out, "bytes": len(data), "warnings": warnings}, nil
}

func listDocuments(_ context.Context, _ *cli.Command, rt *internal.Runtime) (any, error) {
	return rt.Documents()
}

func removeDocument(_ context.Context, cmd *cli.Command, rt *internal.Runtime) (any, error) {
	path := cmd.String("path")
	if err := rt.RemoveDocument(path); err != nil {
		return nil, err
	}
	return map[string]any{"removed": path}, nil
}

func main() {
	cmd := &cli.Command{
		Name:    "redoxflux",
		Usage:   "Metabolic flux scenarios and electrochemical cofactor regeneration for chemical production",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:  "optimize",
				Usage: "Maximize production of one product, or of every product with --all",
				Flags: append(productionFlags(false),
					&cli.BoolFlag{Name: "all", Usage: "Optimize every catalog product"},
				),
				Action: oneShot(optimize),
			},
			{
				Name:  "compare",
				Usage: "Compare cellular and cell-free production of a product",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "product", Aliases: []string{"p"}, Usage: "Product key", Required: true},
					&cli.StringFlag{Name: "substrate", Usage: "Substrate key"},
					&cli.FloatFlag{Name: "uptake", Usage: "Substrate uptake in mmol/gDW/h"},
				},
				Action: oneShot(compare),
			},
			{
				Name:  "screen",
				Usage: "Screen knockouts or substrates",
				Commands: []*cli.Command{
					{
						Name:  "knockouts",
						Usage: "Rank single-reaction knockouts",
						Flags: append(productionFlags(true),
							&cli.StringSliceFlag{Name: "candidate", Usage: "Reaction id to screen (repeatable)"},
						),
						Action: oneShot(screenKnockouts),
					},
					{
						Name:   "substrates",
						Usage:  "Rank catalog substrates",
						Flags:  productionFlags(true),
						Action: oneShot(screenSubstrates),
					},
				},
			},
			{
				Name:  "sweep",
				Usage: "Sweep the applied potential for electrochemically enhanced production",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "product", Aliases: []string{"p"}, Usage: "Product key", Required: true},
					&cli.StringFlag{Name: "substrate", Usage: "Substrate key"},
					&cli.FloatFlag{Name: "uptake", Usage: "Substrate uptake in mmol/gDW/h"},
					&cli.FloatFlag{Name: "start", Usage: "First potential in V"},
					&cli.FloatFlag{Name: "stop", Usage: "Last potential in V"},
					&cli.IntFlag{Name: "steps", Usage: "Number of potentials; 0 selects the configured range"},
					&cli.FloatFlag{Name: "cap", Usage: "Enhancement cap over the baseline rate"},
					&cli.StringFlag{Name: "pair", Usage: "Redox pair (default: configured pair)"},
				},
				Action: oneShot(sweep),
			},
			{
				Name:  "export",
				Usage: "Write the scenario network of a production request into the network library",
				Flags: append(productionFlags(true),
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output path inside the network directory", Required: true},
				),
				Action: oneShot(export),
			},
			{
				Name:  "library",
				Usage: "Inspect the network directory",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List network documents",
						Action: oneShot(listDocuments),
					},
					{
						Name:  "rm",
						Usage: "Remove an exported scenario document",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "path", Usage: "Document path inside the network directory", Required: true},
						},
						Action: oneShot(removeDocument),
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
