package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/redoxflux/internal/fluxservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *fluxservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *fluxservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Products handles GET /api/products.
//
//	@Summary		List products, substrates and the loaded network
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	ProductsResponse
//	@Security		BearerAuth
//	@Router			/products [get]
func (h *Handler) Products(w http.ResponseWriter, _ *http.Request) {
	cat := h.svc.Catalog()
	snap := h.svc.Network()
	writeJSON(w, http.StatusOK, ProductsResponse{
		Products:   cat.Products,
		Substrates: cat.Substrates,
		Network: NetworkInfo{
			ID:        snap.Model.ID,
			Checksum:  snap.Checksum,
			Reactions: len(snap.Model.Reactions),
			LoadedAt:  snap.LoadedAt,
		},
	})
}

// Optimize handles POST /api/optimize.
//
//	@Summary		Maximize production of one product
//	@Tags			optimize
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ProductionRequest	true	"Production scenario"
//	@Success		200		{object}	fluxservice.ProductionResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/optimize [post]
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req ProductionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.OptimizeProduct(r.Context(), req)
	if err != nil {
		writeError(w, "optimize", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// OptimizeAll handles POST /api/optimize/all.
func (h *Handler) OptimizeAll(w http.ResponseWriter, r *http.Request) {
	var req OptimizeAllRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.OptimizeAll(r.Context(), req.System, req.Substrate, req.Uptake)
	if err != nil {
		writeError(w, "optimize all", err)
		return
	}
	writeJSON(w, http.StatusOK, OptimizeAllResponse{Results: out})
}

// Compare handles POST /api/compare.
//
//	@Summary		Compare cellular and cell-free production
//	@Tags			optimize
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ProductRequest	true	"Product and feed"
//	@Success		200		{object}	fluxservice.SystemComparison
//	@Security		BearerAuth
//	@Router			/compare [post]
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.CompareSystems(r.Context(), req.Product, req.Substrate, req.Uptake)
	if err != nil {
		writeError(w, "compare", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Pathways handles POST /api/pathways.
func (h *Handler) Pathways(w http.ResponseWriter, r *http.Request) {
	var req PathwaysRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.Pathways(r.Context(), req.ProductionRequest, req.Top)
	if err != nil {
		writeError(w, "pathways", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ScreenKnockouts handles POST /api/screen/knockouts.
//
//	@Summary		Rank single-reaction knockouts
//	@Tags			screening
//	@Accept			json
//	@Produce		json
//	@Param			body	body		fluxservice.KnockoutScreenRequest	true	"Scenario and candidates"
//	@Success		200		{object}	fluxservice.KnockoutScreenResult
//	@Security		BearerAuth
//	@Router			/screen/knockouts [post]
func (h *Handler) ScreenKnockouts(w http.ResponseWriter, r *http.Request) {
	var req fluxservice.KnockoutScreenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.ScreenKnockouts(r.Context(), req)
	if err != nil {
		writeError(w, "screen knockouts", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ScreenSubstrates handles POST /api/screen/substrates.
func (h *Handler) ScreenSubstrates(w http.ResponseWriter, r *http.Request) {
	var req ProductionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.ScreenSubstrates(r.Context(), req)
	if err != nil {
		writeError(w, "screen substrates", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Tradeoff handles POST /api/tradeoff.
func (h *Handler) Tradeoff(w http.ResponseWriter, r *http.Request) {
	var req TradeoffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.GrowthTradeoff(r.Context(), req.ProductionRequest, req.Floors)
	if err != nil {
		writeError(w, "tradeoff", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Nernst handles POST /api/electrochem/nernst.
func (h *Handler) Nernst(w http.ResponseWriter, r *http.Request) {
	var req NernstRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.svc.Nernst(req.Pair, req.Oxidized, req.Reduced)
	if err != nil {
		writeError(w, "nernst", err)
		return
	}
	writeJSON(w, http.StatusOK, NernstResponse{Pair: req.Pair, Potential: e})
}

// Rate handles POST /api/electrochem/rate.
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	var req fluxservice.RateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.Rate(req)
	if err != nil {
		writeError(w, "rate", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Enhance handles POST /api/electrochem/enhance.
//
//	@Summary		Electrochemically enhanced production at one potential
//	@Tags			electrochem
//	@Accept			json
//	@Produce		json
//	@Param			body	body		fluxservice.EnhanceRequest	true	"Product and potential"
//	@Success		200		{object}	fluxservice.EnhanceResult
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/electrochem/enhance [post]
func (h *Handler) Enhance(w http.ResponseWriter, r *http.Request) {
	var req fluxservice.EnhanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.Enhance(r.Context(), req)
	if err != nil {
		writeError(w, "enhance", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Sweep handles POST /api/electrochem/sweep.
//
//	@Summary		Find the best applied potential
//	@Tags			electrochem
//	@Accept			json
//	@Produce		json
//	@Param			body	body		fluxservice.SweepRequest	true	"Product and potential range"
//	@Success		200		{object}	fluxservice.SweepResult
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/electrochem/sweep [post]
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	var req fluxservice.SweepRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.Sweep(r.Context(), req)
	if err != nil {
		writeError(w, "sweep", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// CompareRegeneration handles POST /api/electrochem/compare.
func (h *Handler) CompareRegeneration(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.CompareRegeneration(r.Context(), req.Product, req.Substrate, req.Uptake)
	if err != nil {
		writeError(w, "compare regeneration", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ListRuns handles GET /api/runs.
//
//	@Summary		List recorded runs, newest first
//	@Tags			runs
//	@Produce		json
//	@Param			kind	query		string	false	"Filter by run kind"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	RunListResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	runs, total, err := h.svc.ListRuns(r.Context(), q.Get("kind"), limit, offset)
	if err != nil {
		writeError(w, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs, Total: total})
}

// GetRun handles GET /api/runs/{id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
