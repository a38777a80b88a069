// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes redoxflux tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/redoxflux/internal/fluxservice"
)

const guideURI = "redoxflux://guide"

// Server wraps the MCP server with redoxflux tools.
type Server struct {
	mcp *server.MCPServer
	svc *fluxservice.Service
}

// New creates a new MCP server with all redoxflux tools registered.
func New(svc *fluxservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"redoxflux",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_products",
		mcp.WithDescription("List the producible products, the substrates and the loaded base network."),
	), s.listProducts)

	s.mcp.AddTool(mcp.NewTool("optimize_product",
		mcp.WithDescription("Maximize the production rate of a catalog product with flux balance analysis."),
		mcp.WithString("product", mcp.Required(), mcp.Description("Product key, e.g. octanoic_acid")),
		mcp.WithString("system", mcp.Enum(string(fluxservice.SystemCellFree), string(fluxservice.SystemCellular)),
			mcp.Description("cell_free (default) or cellular")),
		mcp.WithString("substrate", mcp.Description("Substrate key (default: first catalog substrate)")),
		mcp.WithNumber("uptake", mcp.Description("Substrate uptake in mmol/gDW/h; 0 selects the default")),
		mcp.WithNumber("growth_floor", mcp.Description("Minimum growth rate for cellular systems")),
		mcp.WithArray("knockouts", mcp.WithStringItems(), mcp.Description("Reaction ids to knock out")),
	), s.optimizeProduct)

	s.mcp.AddTool(mcp.NewTool("screen_knockouts",
		mcp.WithDescription("Rank single-reaction knockouts by their effect on production of a product."),
		mcp.WithString("product", mcp.Required(), mcp.Description("Product key")),
		mcp.WithString("system", mcp.Enum(string(fluxservice.SystemCellFree), string(fluxservice.SystemCellular)),
			mcp.Description("cell_free (default) or cellular")),
		mcp.WithArray("candidates", mcp.WithStringItems(), mcp.Description("Reaction ids to screen (default set when empty)")),
	), s.screenKnockouts)

	s.mcp.AddTool(mcp.NewTool("sweep_potential",
		mcp.WithDescription("Find the applied electrode potential that maximizes cofactor-limited production."),
		mcp.WithString("product", mcp.Required(), mcp.Description("Product key")),
		mcp.WithNumber("start", mcp.Description("First potential in V")),
		mcp.WithNumber("stop", mcp.Description("Last potential in V")),
		mcp.WithNumber("steps", mcp.Description("Number of potentials; 0 selects the configured range")),
		mcp.WithNumber("cap", mcp.Description("Enhancement cap over the baseline rate")),
	), s.sweepPotential)

	s.mcp.AddTool(mcp.NewTool("nernst_potential",
		mcp.WithDescription("Equilibrium potential of a redox pair at given concentrations."),
		mcp.WithString("pair", mcp.Required(), mcp.Description("Redox pair, e.g. NADP+/NADPH")),
		mcp.WithNumber("oxidized", mcp.Required(), mcp.Description("Oxidized form in mM")),
		mcp.WithNumber("reduced", mcp.Required(), mcp.Description("Reduced form in mM")),
	), s.nernstPotential)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Tool Guide",
			mcp.WithResourceDescription("Units, conventions and statuses of the redoxflux tools."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuide,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listProducts(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat := s.svc.Catalog()
	snap := s.svc.Network()
	return jsonResult(map[string]any{
		"products":   cat.Products,
		"substrates": cat.Substrates,
		"network":    snap.Model.ID,
		"checksum":   snap.Checksum,
	})
}

func (s *Server) optimizeProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	product, err := req.RequireString("product")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.OptimizeProduct(ctx, fluxservice.ProductionRequest{
		Product:     product,
		System:      fluxservice.System(req.GetString("system", "")),
		Substrate:   req.GetString("substrate", ""),
		Uptake:      req.GetFloat("uptake", 0),
		GrowthFloor: req.GetFloat("growth_floor", 0),
		Knockouts:   req.GetStringSlice("knockouts", nil),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (s *Server) screenKnockouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	product, err := req.RequireString("product")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.ScreenKnockouts(ctx, fluxservice.KnockoutScreenRequest{
		ProductionRequest: fluxservice.ProductionRequest{
			Product: product,
			System:  fluxservice.System(req.GetString("system", "")),
		},
		Candidates: req.GetStringSlice("candidates", nil),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (s *Server) sweepPotential(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	product, err := req.RequireString("product")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.Sweep(ctx, fluxservice.SweepRequest{
		Product: product,
		Start:   req.GetFloat("start", 0),
		Stop:    req.GetFloat("stop", 0),
		Steps:   req.GetInt("steps", 0),
		Cap:     req.GetFloat("cap", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (s *Server) nernstPotential(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pair, err := req.RequireString("pair")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ox, err := req.RequireFloat("oxidized")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	red, err := req.RequireFloat("reduced")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.Nernst(pair, ox, red)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"pair": pair, "potential": e})
}

func (s *Server) readGuide(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     UsageGuide,
		},
	}, nil
}
