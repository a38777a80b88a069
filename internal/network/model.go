// Package network holds the in-memory stoichiometric network, its YAML
// loader, and the hot-reload plumbing for the base model.
package network

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Reaction is one flux-carrying reaction of the network.
// Stoichiometry maps metabolite id to coefficient (negative = consumed).
type Reaction struct {
	ID                   string             `yaml:"id" json:"id"`
	Name                 string             `yaml:"name,omitempty" json:"name,omitempty"`
	LowerBound           float64            `yaml:"lower_bound" json:"lower_bound"`
	UpperBound           float64            `yaml:"upper_bound" json:"upper_bound"`
	Stoichiometry        map[string]float64 `yaml:"stoichiometry" json:"stoichiometry"`
	ObjectiveCoefficient float64            `yaml:"objective_coefficient,omitempty" json:"objective_coefficient,omitempty"`
	Tags                 []string           `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Reaction tags recognised by the scenario presets.
const (
	TagBiomass     = "biomass"
	TagMaintenance = "maintenance"
	TagExchange    = "exchange"
)

// IsBiomass reports whether r is a growth/biomass reaction.
func (r *Reaction) IsBiomass() bool {
	return r.hasTag(TagBiomass) ||
		strings.Contains(r.ID, "BIOMASS") ||
		strings.Contains(strings.ToLower(r.Name), "biomass")
}

// IsMaintenance reports whether r is an ATP maintenance reaction.
func (r *Reaction) IsMaintenance() bool {
	return r.hasTag(TagMaintenance) ||
		strings.Contains(r.ID, "ATPM") ||
		strings.Contains(strings.ToLower(r.Name), "maintenance")
}

// IsExchange reports whether r exchanges a metabolite with the medium.
func (r *Reaction) IsExchange() bool {
	return r.hasTag(TagExchange) || strings.HasPrefix(r.ID, "EX_")
}

func (r *Reaction) hasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of r.
func (r *Reaction) Clone() *Reaction {
	c := *r
	c.Stoichiometry = make(map[string]float64, len(r.Stoichiometry))
	for m, v := range r.Stoichiometry {
		c.Stoichiometry[m] = v
	}
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	return &c
}

// Validate checks the bound ordering and identifier of r.
func (r *Reaction) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.UpperBound, validation.By(func(any) error {
			if r.LowerBound > r.UpperBound {
				return fmt.Errorf("lower bound %g exceeds upper bound %g", r.LowerBound, r.UpperBound)
			}
			return nil
		})),
	)
}

// Metabolite is a species referenced by reaction stoichiometry.
type Metabolite struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Compartment string `yaml:"compartment,omitempty" json:"compartment,omitempty"`
}

// Model is a stoichiometric network. Reactions and metabolites are two flat
// maps keyed by id; reactions reference metabolites by id only.
type Model struct {
	ID             string
	GrowthReaction string
	Reactions      map[string]*Reaction
	Metabolites    map[string]Metabolite
}

// NewModel returns an empty model.
func NewModel(id string) *Model {
	return &Model{
		ID:          id,
		Reactions:   make(map[string]*Reaction),
		Metabolites: make(map[string]Metabolite),
	}
}

// ErrUnknownReaction is returned when a reaction id is not part of the model.
var ErrUnknownReaction = errors.New("unknown reaction")

// ErrUnknownMetabolite is returned when a metabolite id is not part of the model.
var ErrUnknownMetabolite = errors.New("unknown metabolite")

// Reaction looks up a reaction by id.
func (m *Model) Reaction(id string) (*Reaction, bool) {
	r, ok := m.Reactions[id]
	return r, ok
}

// HasMetabolite reports whether id is a known metabolite.
func (m *Model) HasMetabolite(id string) bool {
	_, ok := m.Metabolites[id]
	return ok
}

// AddMetabolite registers a metabolite, replacing any previous entry with the same id.
func (m *Model) AddMetabolite(met Metabolite) {
	m.Metabolites[met.ID] = met
}

// AddReaction inserts r. Every metabolite it references must already exist.
func (m *Model) AddReaction(r *Reaction) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("network: reaction %q: %w", r.ID, err)
	}
	if _, exists := m.Reactions[r.ID]; exists {
		return fmt.Errorf("network: reaction %q already present", r.ID)
	}
	for met := range r.Stoichiometry {
		if !m.HasMetabolite(met) {
			return fmt.Errorf("network: reaction %q: %w: %s", r.ID, ErrUnknownMetabolite, met)
		}
	}
	m.Reactions[r.ID] = r
	return nil
}

// SetBounds overwrites the bounds of reaction id.
func (m *Model) SetBounds(id string, lower, upper float64) error {
	r, ok := m.Reactions[id]
	if !ok {
		return fmt.Errorf("network: %w: %s", ErrUnknownReaction, id)
	}
	if lower > upper {
		return fmt.Errorf("network: reaction %q: lower bound %g exceeds upper bound %g", id, lower, upper)
	}
	r.LowerBound = lower
	r.UpperBound = upper
	return nil
}

// ReactionIDs returns all reaction ids in sorted order.
func (m *Model) ReactionIDs() []string {
	ids := make([]string, 0, len(m.Reactions))
	for id := range m.Reactions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MetaboliteIDs returns all metabolite ids in sorted order.
func (m *Model) MetaboliteIDs() []string {
	ids := make([]string, 0, len(m.Metabolites))
	for id := range m.Metabolites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a fully independent copy of m.
func (m *Model) Clone() *Model {
	c := &Model{
		ID:             m.ID,
		GrowthReaction: m.GrowthReaction,
		Reactions:      make(map[string]*Reaction, len(m.Reactions)),
		Metabolites:    make(map[string]Metabolite, len(m.Metabolites)),
	}
	for id, r := range m.Reactions {
		c.Reactions[id] = r.Clone()
	}
	for id, met := range m.Metabolites {
		c.Metabolites[id] = met
	}
	return c
}

// Validate checks the structural invariants: every reaction is well formed,
// every referenced metabolite exists, and the growth reaction (if named) exists.
func (m *Model) Validate() error {
	if len(m.Reactions) == 0 {
		return fmt.Errorf("network: model %q has no reactions", m.ID)
	}
	for _, id := range m.ReactionIDs() {
		r := m.Reactions[id]
		if r.ID != id {
			return fmt.Errorf("network: reaction keyed %q carries id %q", id, r.ID)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("network: reaction %q: %w", id, err)
		}
		for met := range r.Stoichiometry {
			if !m.HasMetabolite(met) {
				return fmt.Errorf("network: reaction %q: %w: %s", id, ErrUnknownMetabolite, met)
			}
		}
	}
	if m.GrowthReaction != "" {
		if _, ok := m.Reactions[m.GrowthReaction]; !ok {
			return fmt.Errorf("network: growth reaction: %w: %s", ErrUnknownReaction, m.GrowthReaction)
		}
	}
	return nil
}
