package estimate

import (
	"fmt"
	"math"

	"github.com/Simplici0/buildest/internal/catalog"
)

// Priority ranks how necessary a material line is.
type Priority string

const (
	Essential   Priority = "essential"
	Recommended Priority = "recommended"
	Optional    Priority = "optional"
)

func (p Priority) valid() bool {
	return p == Essential || p == Recommended || p == Optional
}

// Requirement is one derived material line. It is never modified after
// creation; overrides live in the selection.
type Requirement struct {
	ID          string           `json:"id"`
	MaterialKey catalog.Category `json:"material_key"`
	Name        string           `json:"name"`
	Quantity    float64          `json:"quantity"`
	Unit        string           `json:"unit"`
	Priority    Priority         `json:"priority"`
	// DefaultIncluded seeds the selection. Essential lines are included
	// regardless of this flag.
	DefaultIncluded bool `json:"default_included"`
}

// Derive returns the material lines for p in a fixed category order.
// Derived recommended lines start excluded.
func Derive(p ProjectParameters) ([]Requirement, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	coef := coefficientTable[p.ProjectType]
	total := p.TotalArea()

	reqs := make([]Requirement, 0, len(materialLines))
	for _, line := range materialLines {
		if !line.applies(p.ProjectType) {
			continue
		}
		reqs = append(reqs, Requirement{
			ID:              string(line.category),
			MaterialKey:     line.category,
			Name:            line.name,
			Quantity:        math.Round(total * line.coef(coef)),
			Unit:            line.unit,
			Priority:        line.priority,
			DefaultIncluded: line.priority == Essential,
		})
	}
	return reqs, nil
}

// normalizeRequirements checks a caller-supplied list, such as one produced
// by image analysis, and fills in ids from the material key.
func normalizeRequirements(in []Requirement) ([]Requirement, error) {
	out := make([]Requirement, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, r := range in {
		if r.MaterialKey == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("requirements[%d].material_key", i), Message: "is required"}
		}
		if math.IsNaN(r.Quantity) || r.Quantity <= 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("requirements[%d].quantity", i), Message: "must be greater than 0"}
		}
		if r.Priority == "" {
			r.Priority = Recommended
		}
		if !r.Priority.valid() {
			return nil, &ValidationError{Field: fmt.Sprintf("requirements[%d].priority", i), Message: fmt.Sprintf("unknown priority %q", r.Priority)}
		}
		if r.ID == "" {
			r.ID = string(r.MaterialKey)
		}
		if seen[r.ID] {
			return nil, &ValidationError{Field: fmt.Sprintf("requirements[%d].id", i), Message: fmt.Sprintf("duplicate id %q", r.ID)}
		}
		seen[r.ID] = true
		if r.Name == "" {
			r.Name = string(r.MaterialKey)
		}
		if r.Priority == Essential {
			r.DefaultIncluded = true
		}
		out = append(out, r)
	}
	return out, nil
}
