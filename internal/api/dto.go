package api

import (
	"time"

	"github.com/starford/redoxflux/internal/catalog"
	"github.com/starford/redoxflux/internal/fluxservice"
	"github.com/starford/redoxflux/internal/resultstore"
)

// ProductionRequest is the body of the optimization endpoints.
type ProductionRequest = fluxservice.ProductionRequest

// ProductsResponse lists the catalog.
type ProductsResponse struct {
	Products   []catalog.Product   `json:"products" validate:"required"`
	Substrates []catalog.Substrate `json:"substrates" validate:"required"`
	Network    NetworkInfo         `json:"network"`
}

// NetworkInfo identifies the loaded base network.
type NetworkInfo struct {
	ID        string    `json:"id" example:"iML1515"`
	Checksum  string    `json:"checksum" example:"9f2c..."`
	Reactions int       `json:"reactions" example:"2712"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// OptimizeAllRequest is the body of POST /optimize/all.
type OptimizeAllRequest struct {
	System    fluxservice.System `json:"system" example:"cell_free"`
	Substrate string             `json:"substrate" example:"glucose"`
	Uptake    float64            `json:"uptake" example:"10"`
}

// OptimizeAllResponse wraps one result per catalog product.
type OptimizeAllResponse struct {
	Results []fluxservice.ProductionResult `json:"results" validate:"required"`
}

// ProductRequest names a product and its feed.
type ProductRequest struct {
	Product   string  `json:"product" example:"octanoic_acid" validate:"required"`
	Substrate string  `json:"substrate" example:"glucose"`
	Uptake    float64 `json:"uptake" example:"10"`
}

// TradeoffRequest is the body of POST /tradeoff.
type TradeoffRequest struct {
	fluxservice.ProductionRequest
	Floors []float64 `json:"floors"`
}

// PathwaysRequest is the body of POST /pathways.
type PathwaysRequest struct {
	fluxservice.ProductionRequest
	Top int `json:"top" example:"20"`
}

// NernstRequest is the body of POST /electrochem/nernst.
type NernstRequest struct {
	Pair     string  `json:"pair" example:"NADP+/NADPH" validate:"required"`
	Oxidized float64 `json:"oxidized" example:"0.5"`
	Reduced  float64 `json:"reduced" example:"0.5"`
}

// NernstResponse carries the equilibrium potential in volts.
type NernstResponse struct {
	Pair      string  `json:"pair"`
	Potential float64 `json:"potential"`
}

// RunListResponse wraps paginated run listings.
type RunListResponse struct {
	Runs  []resultstore.Run `json:"runs" validate:"required"`
	Total int               `json:"total" example:"42" validate:"required"`
}
