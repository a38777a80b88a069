package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/redoxflux/internal/fluxservice"
	"github.com/starford/redoxflux/internal/testutil"
)

// testEnv builds a router over the toy network. An empty token disables auth.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) http.Handler {
	t.Helper()
	return NewRouter(testutil.Service(t, nil), authEnabled, token, sseHandler)
}

func post(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProducts(t *testing.T) {
	router := testEnv(t, "")
	w := get(router, "/products")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ProductsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Products) != 2 || resp.Network.ID != "toy" || resp.Network.Checksum != "toysum" {
		t.Errorf("products = %+v", resp)
	}
}

func TestOptimize(t *testing.T) {
	router := testEnv(t, "")
	w := post(t, router, "/optimize", map[string]any{"product": "octanoic_acid", "system": "cellular"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var out struct {
		RunID  string `json:"run_id"`
		Result struct {
			Status string  `json:"status"`
			Value  float64 `json:"objective_value"`
			Uptake float64 `json:"substrate_uptake_actual"`
		} `json:"result"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Result.Status != "optimal" || math.Abs(out.Result.Value-4.75) > 1e-6 {
		t.Errorf("result = %+v", out.Result)
	}
	if math.Abs(out.Result.Uptake-10) > 1e-6 {
		t.Errorf("uptake = %g", out.Result.Uptake)
	}
	if out.RunID == "" {
		t.Error("missing run id")
	}

	w = get(router, "/runs/"+out.RunID)
	if w.Code != http.StatusOK {
		t.Errorf("get run = %d", w.Code)
	}
}

func TestOptimize_ErrorMapping(t *testing.T) {
	router := testEnv(t, "")
	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"unknown product", map[string]any{"product": "nope"}, http.StatusNotFound},
		{"unknown substrate", map[string]any{"product": "octanoic_acid", "substrate": "xylose"}, http.StatusBadRequest},
		{"bad system", map[string]any{"product": "octanoic_acid", "system": "plant"}, http.StatusBadRequest},
		{"unknown weight reaction", map[string]any{"product": "octanoic_acid", "weights": map[string]float64{"NOPE": 1}}, http.StatusBadRequest},
		{"unknown field", map[string]any{"product": "octanoic_acid", "colour": "red"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := post(t, router, "/optimize", tc.body); w.Code != tc.want {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestOptimizeAll(t *testing.T) {
	router := testEnv(t, "")
	w := post(t, router, "/optimize/all", map[string]any{"system": "cell_free"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp OptimizeAllResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 2 || resp.Results[1].Error == "" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestCompare(t *testing.T) {
	router := testEnv(t, "")
	w := post(t, router, "/compare", ProductRequest{Product: "octanoic_acid"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out fluxservice.SystemComparison
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if math.Abs(out.Improvement-5/4.5) > 1e-6 {
		t.Errorf("improvement = %g", out.Improvement)
	}
}

func TestScreenKnockouts(t *testing.T) {
	router := testEnv(t, "")
	w := post(t, router, "/screen/knockouts", map[string]any{
		"product":    "octanoic_acid",
		"system":     "cellular",
		"candidates": []string{"ATPM", "PTAr"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var out struct {
		Ranked []struct {
			Candidate string `json:"candidate"`
		} `json:"ranked"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if len(out.Ranked) != 2 || out.Ranked[0].Candidate != "ATPM" {
		t.Errorf("ranked = %+v", out.Ranked)
	}
}

func TestTradeoffAndSubstrates(t *testing.T) {
	router := testEnv(t, "")
	w := post(t, router, "/tradeoff", map[string]any{"product": "octanoic_acid", "floors": []float64{0, 0.5}})
	if w.Code != http.StatusOK {
		t.Fatalf("tradeoff = %d, body = %s", w.Code, w.Body.String())
	}
	w = post(t, router, "/screen/substrates", map[string]any{"product": "octanoic_acid", "system": "cellular"})
	if w.Code != http.StatusOK {
		t.Fatalf("substrates = %d", w.Code)
	}
	var out struct {
		Best string `json:"best"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Best != "glucose" {
		t.Errorf("best = %q", out.Best)
	}
}

func TestTradeoff_UnreachableFloorIsARow(t *testing.T) {
	router := testEnv(t, "")
	w := post(t, router, "/tradeoff", map[string]any{"product": "octanoic_acid", "floors": []float64{0, 2000}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var out struct {
		Rows []struct {
			Floor  float64 `json:"growth_floor"`
			Status string  `json:"status"`
		} `json:"rows"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if len(out.Rows) != 2 || out.Rows[1].Status != "infeasible" {
		t.Errorf("rows = %+v", out.Rows)
	}
}

func TestElectrochemEndpoints(t *testing.T) {
	router := testEnv(t, "")

	w := post(t, router, "/electrochem/nernst", NernstRequest{Pair: "NADP+/NADPH", Oxidized: 0.5, Reduced: 0.5})
	var n NernstResponse
	_ = json.Unmarshal(w.Body.Bytes(), &n)
	if w.Code != http.StatusOK || math.Abs(n.Potential+0.32) > 1e-9 {
		t.Errorf("nernst = %d %+v", w.Code, n)
	}
	if w := post(t, router, "/electrochem/nernst", NernstRequest{Pair: "X/Y"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown pair = %d, want 400", w.Code)
	}
	if w := post(t, router, "/electrochem/rate", map[string]any{"pair": "NADP+/NADPH", "potential": -0.5}); w.Code != http.StatusOK {
		t.Errorf("rate = %d", w.Code)
	}
	if w := post(t, router, "/electrochem/enhance", map[string]any{"product": "octanoic_acid", "potential": -0.5}); w.Code != http.StatusOK {
		t.Errorf("enhance = %d, body = %s", w.Code, w.Body.String())
	}
	if w := post(t, router, "/electrochem/compare", ProductRequest{Product: "octanoic_acid"}); w.Code != http.StatusOK {
		t.Errorf("compare = %d", w.Code)
	}
}

func TestSweep(t *testing.T) {
	router := testEnv(t, "")
	w := post(t, router, "/electrochem/sweep", map[string]any{"product": "octanoic_acid", "start": -0.8, "stop": -0.4, "steps": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var out struct {
		Best   float64 `json:"optimal_potential"`
		Points []any   `json:"points"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if len(out.Points) != 5 || math.Abs(out.Best+0.4) > 1e-9 {
		t.Errorf("sweep = %+v", out)
	}

	w = post(t, router, "/electrochem/sweep", map[string]any{"product": "octanoic_acid", "pair": "X/Y"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("infeasible sweep = %d, want 422", w.Code)
	}
}

func TestListRuns(t *testing.T) {
	router := testEnv(t, "")
	post(t, router, "/optimize", map[string]any{"product": "octanoic_acid"})
	post(t, router, "/compare", ProductRequest{Product: "octanoic_acid"})

	w := get(router, "/runs?kind=compare")
	var resp RunListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Total != 1 || resp.Runs[0].Kind != fluxservice.KindCompare {
		t.Errorf("runs = %d %+v", w.Code, resp)
	}
	if w := get(router, "/runs/missing"); w.Code != http.StatusNotFound {
		t.Errorf("missing run = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")
	if w := get(router, "/products"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// Minimal SSE handler stub: writes headers and blocks until context done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret", sseStub)
	if w := get(router, "/events"); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
