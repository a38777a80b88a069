package mcpserver

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/redoxflux/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	return New(testutil.Service(t, nil), "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_products":
		result, err = srv.listProducts(ctx, req)
	case "optimize_product":
		result, err = srv.optimizeProduct(ctx, req)
	case "screen_knockouts":
		result, err = srv.screenKnockouts(ctx, req)
	case "sweep_potential":
		result, err = srv.sweepPotential(ctx, req)
	case "nernst_potential":
		result, err = srv.nernstPotential(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListProducts(t *testing.T) {
	srv := testServer(t)
	text := resultText(callTool(t, srv, "list_products", map[string]interface{}{}))
	if !strings.Contains(text, "octanoic_acid") || !strings.Contains(text, `"network": "toy"`) {
		t.Errorf("list_products = %s", text)
	}
}

func TestOptimizeProduct(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "optimize_product", map[string]interface{}{
		"product":   "octanoic_acid",
		"system":    "cellular",
		"knockouts": []interface{}{"ATPM"},
	})
	if r.IsError {
		t.Fatalf("optimize_product error: %s", resultText(r))
	}
	var out struct {
		Result struct {
			Value float64 `json:"objective_value"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatal(err)
	}
	if math.Abs(out.Result.Value-5) > 1e-6 {
		t.Errorf("objective = %g, want 5", out.Result.Value)
	}
}

func TestOptimizeProduct_Errors(t *testing.T) {
	srv := testServer(t)
	if r := callTool(t, srv, "optimize_product", map[string]interface{}{}); !r.IsError {
		t.Error("expected error for missing product")
	}
	if r := callTool(t, srv, "optimize_product", map[string]interface{}{"product": "nope"}); !r.IsError {
		t.Error("expected error for unknown product")
	}
}

func TestScreenKnockouts(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "screen_knockouts", map[string]interface{}{
		"product":    "octanoic_acid",
		"system":     "cellular",
		"candidates": []interface{}{"PTAr", "ATPM"},
	})
	text := resultText(r)
	if r.IsError || !strings.Contains(text, `"candidate": "ATPM"`) {
		t.Errorf("screen_knockouts = %s", text)
	}
}

func TestSweepPotential(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "sweep_potential", map[string]interface{}{
		"product": "octanoic_acid",
		"start":   -0.8,
		"stop":    -0.4,
		"steps":   5,
	})
	if r.IsError {
		t.Fatalf("sweep_potential error: %s", resultText(r))
	}
	var out struct {
		Best float64 `json:"optimal_potential"`
	}
	_ = json.Unmarshal([]byte(resultText(r)), &out)
	if math.Abs(out.Best+0.4) > 1e-9 {
		t.Errorf("optimal potential = %g", out.Best)
	}
}

func TestNernstPotential(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "nernst_potential", map[string]interface{}{
		"pair":     "NAD+/NADH",
		"oxidized": 1.0,
		"reduced":  1.0,
	})
	if r.IsError || !strings.Contains(resultText(r), "-0.32") {
		t.Errorf("nernst_potential = %s", resultText(r))
	}
	if r := callTool(t, srv, "nernst_potential", map[string]interface{}{"pair": "NAD+/NADH"}); !r.IsError {
		t.Error("expected error for missing concentrations")
	}
}

func TestReadGuide(t *testing.T) {
	srv := testServer(t)
	contents, err := srv.readGuide(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("readGuide = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || !strings.Contains(tc.Text, "mmol/gDW/h") {
		t.Errorf("guide = %+v", contents[0])
	}
}
