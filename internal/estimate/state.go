package estimate

import (
	"errors"
	"fmt"
	"math"

	"github.com/Simplici0/buildest/internal/catalog"
)

var (
	// ErrInvalidQuantity rejects a quantity override below one unit.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrUnknownRequirement is returned for ids not present in the session.
	ErrUnknownRequirement = errors.New("unknown requirement")
	// ErrNothingSelected signals that no material line is included.
	ErrNothingSelected = errors.New("no materials selected")
	// ErrNoProject is returned for selection changes before a project is submitted.
	ErrNoProject = errors.New("no project submitted")
)

// Selection is the user's choice for one requirement.
type Selection struct {
	Included          bool    `json:"included"`
	EffectiveQuantity float64 `json:"effective_quantity"`
}

// State is everything one estimation session knows. Entries is parallel to
// Requirements and holds the catalog entry each line was matched to.
// States are values: Apply never modifies its input.
type State struct {
	Params       ProjectParameters    `json:"params"`
	Requirements []Requirement        `json:"requirements"`
	Entries      []catalog.Entry      `json:"entries"`
	Selections   map[string]Selection `json:"selections"`
}

// Submitted reports whether a project has been submitted.
func (s State) Submitted() bool {
	return s.Requirements != nil
}

func (s State) index(id string) int {
	for i, r := range s.Requirements {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s State) withSelection(id string, sel Selection) State {
	next := s
	next.Selections = make(map[string]Selection, len(s.Selections))
	for k, v := range s.Selections {
		next.Selections[k] = v
	}
	next.Selections[id] = sel
	return next
}

// Initialize builds the starting selection for reqs: essential lines are
// always included, the rest follow DefaultIncluded, and every line starts at
// its derived quantity.
func Initialize(reqs []Requirement) map[string]Selection {
	sel := make(map[string]Selection, len(reqs))
	for _, r := range reqs {
		sel[r.ID] = Selection{
			Included:          r.Priority == Essential || r.DefaultIncluded,
			EffectiveQuantity: r.Quantity,
		}
	}
	return sel
}

// Mutation is a state transition accepted by Apply.
type Mutation interface {
	Kind() string
	apply(State) (State, error)
}

// SubmitProject starts a new session state, discarding any selection.
// When Requirements is empty they are derived from Params; otherwise the
// supplied list (for example from image analysis) is used as is.
// Catalog is the already resolved list of entries to match against; an empty
// catalog prices every line at its fallback default.
type SubmitProject struct {
	Params       ProjectParameters
	Requirements []Requirement
	Catalog      []catalog.Entry
}

// SetIncluded changes whether a line counts toward the total. It has no
// effect on essential lines.
type SetIncluded struct {
	RequirementID string
	Included      bool
}

// SetQuantity overrides the effective quantity of a line.
type SetQuantity struct {
	RequirementID string
	Quantity      float64
}

func (SubmitProject) Kind() string { return "submit_project" }
func (SetIncluded) Kind() string   { return "set_included" }
func (SetQuantity) Kind() string   { return "set_quantity" }

// Apply runs m against s and returns the resulting state. On error the
// returned state is s unchanged.
func Apply(s State, m Mutation) (State, error) {
	next, err := m.apply(s)
	if err != nil {
		return s, err
	}
	return next, nil
}

func (m SubmitProject) apply(State) (State, error) {
	if err := m.Params.Validate(); err != nil {
		return State{}, err
	}

	var (
		reqs []Requirement
		err  error
	)
	if len(m.Requirements) > 0 {
		reqs, err = normalizeRequirements(m.Requirements)
	} else {
		reqs, err = Derive(m.Params)
	}
	if err != nil {
		return State{}, err
	}

	entries := make([]catalog.Entry, len(reqs))
	for i, r := range reqs {
		entries[i], _ = catalog.Match(r.MaterialKey, m.Catalog)
	}

	return State{
		Params:       m.Params,
		Requirements: reqs,
		Entries:      entries,
		Selections:   Initialize(reqs),
	}, nil
}

func (m SetIncluded) apply(s State) (State, error) {
	if !s.Submitted() {
		return s, ErrNoProject
	}
	i := s.index(m.RequirementID)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrUnknownRequirement, m.RequirementID)
	}
	if s.Requirements[i].Priority == Essential {
		return s, nil
	}

	sel := s.Selections[m.RequirementID]
	if sel.Included == m.Included {
		return s, nil
	}
	sel.Included = m.Included
	return s.withSelection(m.RequirementID, sel), nil
}

func (m SetQuantity) apply(s State) (State, error) {
	if !s.Submitted() {
		return s, ErrNoProject
	}
	if s.index(m.RequirementID) < 0 {
		return s, fmt.Errorf("%w: %s", ErrUnknownRequirement, m.RequirementID)
	}
	if math.IsNaN(m.Quantity) || math.IsInf(m.Quantity, 0) || m.Quantity < 1 {
		return s, ErrInvalidQuantity
	}

	sel := s.Selections[m.RequirementID]
	sel.EffectiveQuantity = m.Quantity
	return s.withSelection(m.RequirementID, sel), nil
}
