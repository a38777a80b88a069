// Package catalog lists the products and substrates the service knows how
// to optimize, and the mineral medium every production run starts from.
package catalog

import (
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/redoxflux/internal/apperr"
	"github.com/starford/redoxflux/internal/scenario"
)

// Product is an optimizable output, exposed through a demand reaction on
// its metabolite.
type Product struct {
	Key        string `yaml:"key" json:"key"`
	Metabolite string `yaml:"metabolite" json:"metabolite"`
	Carbons    int    `yaml:"carbons" json:"carbons"`
}

// Validate implements validation.Validatable.
func (p Product) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Key, validation.Required),
		validation.Field(&p.Metabolite, validation.Required),
		validation.Field(&p.Carbons, validation.Required, validation.Min(2)),
	)
}

// DemandID is the id of the product's demand reaction.
func (p Product) DemandID() string { return scenario.DemandPrefix + p.Metabolite }

// Demand returns the product's demand reaction with the given cap.
func (p Product) Demand(cap float64) scenario.Demand {
	return scenario.NewDemand(p.Metabolite, cap)
}

// Substrate is a carbon source fed through an exchange reaction.
type Substrate struct {
	Key           string  `yaml:"key" json:"key"`
	Exchange      string  `yaml:"exchange" json:"exchange"`
	DefaultUptake float64 `yaml:"default_uptake" json:"default_uptake"`
}

// Validate implements validation.Validatable.
func (s Substrate) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Key, validation.Required),
		validation.Field(&s.Exchange, validation.Required),
		validation.Field(&s.DefaultUptake, validation.Min(0.0)),
	)
}

// Catalog is the read-only product and substrate registry.
type Catalog struct {
	Products   []Product          `yaml:"products"`
	Substrates []Substrate        `yaml:"substrates"`
	BaseMedium map[string]float64 `yaml:"base_medium"`
	DemandCap  float64            `yaml:"demand_cap"`
}

// Default returns the fatty acid catalog with glucose, formate and acetate
// as substrates.
func Default() Catalog {
	return Catalog{
		Products: []Product{
			{Key: "butanoic_acid", Metabolite: "btcoa_c", Carbons: 4},
			{Key: "hexanoic_acid", Metabolite: "hxcoa_c", Carbons: 6},
			{Key: "octanoic_acid", Metabolite: "occoa_c", Carbons: 8},
			{Key: "decanoic_acid", Metabolite: "dcacoa_c", Carbons: 10},
			{Key: "dodecanoic_acid", Metabolite: "ddcacoa_c", Carbons: 12},
			{Key: "tetradecanoic_acid", Metabolite: "tdcoa_c", Carbons: 14},
		},
		Substrates: []Substrate{
			{Key: "glucose", Exchange: "EX_glc__D_e", DefaultUptake: 10},
			{Key: "formate", Exchange: "EX_for_e", DefaultUptake: 20},
			{Key: "acetate", Exchange: "EX_ac_e", DefaultUptake: 15},
		},
		BaseMedium: map[string]float64{
			"EX_o2_e":      20,
			"EX_pi_e":      1000,
			"EX_nh4_e":     1000,
			"EX_so4_e":     1000,
			"EX_mg2_e":     1000,
			"EX_k_e":       1000,
			"EX_fe2_e":     1000,
			"EX_ca2_e":     1000,
			"EX_mn2_e":     1000,
			"EX_zn2_e":     1000,
			"EX_cu2_e":     1000,
			"EX_cobalt2_e": 1000,
			"EX_mobd_e":    1000,
		},
		DemandCap: scenario.DefaultDemandCap,
	}
}

// Validate checks entries and key uniqueness.
func (c Catalog) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Products, validation.Required, validation.By(func(any) error {
			seen := map[string]bool{}
			for _, p := range c.Products {
				if seen[p.Key] {
					return fmt.Errorf("duplicate product %q", p.Key)
				}
				seen[p.Key] = true
			}
			return nil
		})),
		validation.Field(&c.Substrates, validation.Required, validation.By(func(any) error {
			seen := map[string]bool{}
			for _, s := range c.Substrates {
				if seen[s.Key] {
					return fmt.Errorf("duplicate substrate %q", s.Key)
				}
				seen[s.Key] = true
			}
			return nil
		})),
		validation.Field(&c.DemandCap, validation.Min(0.0)),
	)
}

// Product looks up a product by key.
func (c Catalog) Product(key string) (Product, error) {
	for _, p := range c.Products {
		if p.Key == key {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("catalog: %w: %s", apperr.ErrUnknownProduct, key)
}

// Substrate looks up a substrate by key.
func (c Catalog) Substrate(key string) (Substrate, error) {
	for _, s := range c.Substrates {
		if s.Key == key {
			return s, nil
		}
	}
	return Substrate{}, fmt.Errorf("catalog: %w: %s", apperr.ErrUnknownSubstrate, key)
}

// ProductKeys returns the product keys in catalog order.
func (c Catalog) ProductKeys() []string {
	keys := make([]string, len(c.Products))
	for i, p := range c.Products {
		keys[i] = p.Key
	}
	return keys
}

// Medium returns the base medium plus sub at uptake, with every other
// catalog substrate closed. uptake <= 0 selects the substrate's default
// uptake.
func (c Catalog) Medium(sub Substrate, uptake float64) map[string]float64 {
	if uptake <= 0 {
		uptake = sub.DefaultUptake
	}
	out := make(map[string]float64, len(c.BaseMedium)+len(c.Substrates))
	for id, v := range c.BaseMedium {
		out[id] = v
	}
	for _, other := range c.Substrates {
		out[other.Exchange] = 0
	}
	out[sub.Exchange] = uptake
	return out
}

// SubstrateExchanges returns every substrate exchange, sorted.
func (c Catalog) SubstrateExchanges() []string {
	ids := make([]string, len(c.Substrates))
	for i, s := range c.Substrates {
		ids[i] = s.Exchange
	}
	sort.Strings(ids)
	return ids
}
