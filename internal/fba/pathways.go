package fba

import (
	"sort"
	"strings"
)

// ActiveThreshold is the |flux| above which a reaction counts as active.
const ActiveThreshold = 0.001

// Pathway groups reactions by id keyword.
type Pathway struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// DefaultPathways are the central-carbon and lipid pathways reported by
// pathway usage.
func DefaultPathways() []Pathway {
	return []Pathway{
		{Name: "glycolysis", Keywords: []string{"PGI", "PFK", "FBA", "TPI", "GAPD", "PGK", "PGM", "ENO", "PYK"}},
		{Name: "tca_cycle", Keywords: []string{"CS", "ACONTa", "ACONTb", "ICDHyr", "AKGDH", "SUCOAS", "SUCDi", "FUM", "MDH"}},
		{Name: "fatty_acid_synthesis", Keywords: []string{"FACOAL", "ACCOAL", "FASYN"}},
		{Name: "acetyl_coa", Keywords: []string{"PDH", "PTA", "ACK", "ACCOAL"}},
	}
}

// PathwayUsage summarizes where an optimal result routes flux.
type PathwayUsage struct {
	ActiveReactions int                 `json:"active_reactions"`
	TopFluxes       []ActiveFlux        `json:"top_fluxes"`
	Pathways        map[string][]string `json:"key_pathways"`
}

// AnalyzePathways reports the active reactions of res (at most top of them
// in TopFluxes, all when top <= 0) and, per pathway, the active reactions
// whose id contains one of its keywords. Non-optimal results yield an
// empty usage.
func AnalyzePathways(res Result, pathways []Pathway, top int) PathwayUsage {
	usage := PathwayUsage{Pathways: make(map[string][]string, len(pathways))}
	if !res.Optimal() {
		return usage
	}
	active := res.ActiveReactions(ActiveThreshold)
	usage.ActiveReactions = len(active)
	usage.TopFluxes = active
	if top > 0 && len(active) > top {
		usage.TopFluxes = active[:top]
	}
	for _, p := range pathways {
		var hits []string
		for _, a := range active {
			for _, kw := range p.Keywords {
				if strings.Contains(a.Reaction, kw) {
					hits = append(hits, a.Reaction)
					break
				}
			}
		}
		if len(hits) > 0 {
			sort.Strings(hits)
			usage.Pathways[p.Name] = hits
		}
	}
	return usage
}
