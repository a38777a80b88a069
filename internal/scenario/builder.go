package scenario

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/redoxflux/internal/network"
)

// DuplicateReactionError is returned when a demand reaction id collides
// with an existing reaction of different stoichiometry.
type DuplicateReactionError struct {
	ID string
}

func (e *DuplicateReactionError) Error() string {
	return fmt.Sprintf("scenario: reaction %q already exists with conflicting stoichiometry", e.ID)
}

// ErrNoGrowthReaction is returned by presets that need a growth reaction
// when the base network has none.
var ErrNoGrowthReaction = errors.New("scenario: network has no growth reaction")

// Warning kinds.
const (
	WarnUnknownReaction   = "unknown_reaction"
	WarnUnknownExchange   = "unknown_exchange"
	WarnUnknownKnockout   = "unknown_knockout"
	WarnUnknownMetabolite = "unknown_metabolite"
)

// Warning reports a scenario entry that was skipped.
type Warning struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (w Warning) String() string { return w.Kind + ": " + w.ID }

// Builder applies scenarios to base networks.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder returns a Builder. A nil logger discards warnings.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{logger: logger}
}

// Build returns a new model derived from base by sc. base is never
// modified. Entries naming unknown reactions or metabolites are skipped and
// reported as warnings; conflicting demand reactions and invalid bounds are
// errors.
func (b *Builder) Build(base *network.Model, sc Scenario) (*network.Model, []Warning, error) {
	if base == nil {
		return nil, nil, errors.New("scenario: nil base network")
	}
	if err := sc.Validate(); err != nil {
		return nil, nil, fmt.Errorf("scenario: %q: %w", sc.Name, err)
	}
	m := base.Clone()
	var warns []Warning
	warn := func(kind, id, msg string) {
		warns = append(warns, Warning{Kind: kind, ID: id, Message: msg})
		b.logger.Warn("scenario: entry skipped",
			slog.String("scenario", sc.Name),
			slog.String("kind", kind),
			slog.String("id", id),
		)
	}

	for _, id := range sortedKeys(sc.BoundOverrides) {
		bd := sc.BoundOverrides[id]
		if _, ok := m.Reaction(id); !ok {
			warn(WarnUnknownReaction, id, "bound override names an unknown reaction")
			continue
		}
		if err := m.SetBounds(id, bd.Lower, bd.Upper); err != nil {
			return nil, warns, fmt.Errorf("scenario: override: %w", err)
		}
	}

	for _, id := range sortedKeys(sc.Medium) {
		r, ok := m.Reaction(id)
		if !ok {
			warn(WarnUnknownExchange, id, "medium names an unknown exchange reaction")
			continue
		}
		lower := -sc.Medium[id]
		upper := r.UpperBound
		if upper < lower {
			upper = lower
		}
		if err := m.SetBounds(id, lower, upper); err != nil {
			return nil, warns, fmt.Errorf("scenario: medium: %w", err)
		}
	}

	for _, id := range sc.Knockouts {
		if _, ok := m.Reaction(id); !ok {
			warn(WarnUnknownKnockout, id, "knockout names an unknown reaction")
			continue
		}
		if err := m.SetBounds(id, 0, 0); err != nil {
			return nil, warns, fmt.Errorf("scenario: knockout: %w", err)
		}
	}

	for _, d := range sc.Demands {
		if !m.HasMetabolite(d.Metabolite) {
			warn(WarnUnknownMetabolite, d.Metabolite, "demand names an unknown metabolite")
			continue
		}
		if existing, ok := m.Reaction(d.ID); ok {
			if !sameDemand(existing, d.Metabolite) {
				return nil, warns, &DuplicateReactionError{ID: d.ID}
			}
			continue
		}
		if err := m.AddReaction(d.reaction()); err != nil {
			return nil, warns, fmt.Errorf("scenario: demand: %w", err)
		}
	}

	if sc.Objective != nil {
		if err := m.ApplyObjective(sc.Objective); err != nil {
			return nil, warns, fmt.Errorf("scenario: %w", err)
		}
	}
	return m, warns, nil
}

func sameDemand(r *network.Reaction, met string) bool {
	if len(r.Stoichiometry) != 1 {
		return false
	}
	c, ok := r.Stoichiometry[met]
	return ok && c == -1
}
