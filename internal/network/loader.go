package network

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// document is the on-disk YAML layout of a network.
type document struct {
	ID             string       `yaml:"id"`
	GrowthReaction string       `yaml:"growth_reaction,omitempty"`
	Metabolites    []Metabolite `yaml:"metabolites"`
	Reactions      []Reaction   `yaml:"reactions"`
}

// LoadError reports a network that could not be obtained or is malformed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("network: load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Decode parses a YAML network document. Metabolites referenced by a
// reaction but not declared are added implicitly so hand-written files
// can stay short; the result is validated before it is returned.
func Decode(source string, data []byte) (*Model, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}

	m := NewModel(doc.ID)
	if m.ID == "" {
		m.ID = source
	}
	m.GrowthReaction = doc.GrowthReaction

	for _, met := range doc.Metabolites {
		if met.ID == "" {
			return nil, &LoadError{Source: source, Err: errors.New("metabolite without id")}
		}
		m.AddMetabolite(met)
	}
	for i := range doc.Reactions {
		r := doc.Reactions[i]
		if r.Stoichiometry == nil {
			r.Stoichiometry = map[string]float64{}
		}
		for met := range r.Stoichiometry {
			if !m.HasMetabolite(met) {
				m.AddMetabolite(Metabolite{ID: met})
			}
		}
		if _, dup := m.Reactions[r.ID]; dup {
			return nil, &LoadError{Source: source, Err: fmt.Errorf("duplicate reaction %q", r.ID)}
		}
		m.Reactions[r.ID] = &r
	}

	if m.GrowthReaction == "" {
		m.GrowthReaction = detectGrowthReaction(m)
	}
	if err := m.Validate(); err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return m, nil
}

// Encode renders m as a YAML network document with deterministic ordering.
func Encode(m *Model) ([]byte, error) {
	doc := document{
		ID:             m.ID,
		GrowthReaction: m.GrowthReaction,
	}
	for _, id := range m.MetaboliteIDs() {
		doc.Metabolites = append(doc.Metabolites, m.Metabolites[id])
	}
	for _, id := range m.ReactionIDs() {
		doc.Reactions = append(doc.Reactions, *m.Reactions[id])
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("network: encode %s: %w", m.ID, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("network: encode %s: %w", m.ID, err)
	}
	return buf.Bytes(), nil
}

// detectGrowthReaction picks the first biomass reaction in id order.
func detectGrowthReaction(m *Model) string {
	for _, id := range m.ReactionIDs() {
		if m.Reactions[id].IsBiomass() {
			return id
		}
	}
	return ""
}
