package estimate

import (
	"github.com/shopspring/decimal"

	"github.com/Simplici0/buildest/internal/catalog"
	"github.com/Simplici0/buildest/internal/pricing"
)

// Confidence is reported with every result. Quantities come from fixed
// coefficients, so it does not vary per estimate.
const Confidence = 0.85

// PricedMaterial is a requirement joined with its catalog entry and the
// price that applies at its effective quantity.
type PricedMaterial struct {
	RequirementID     string           `json:"requirement_id"`
	MaterialKey       catalog.Category `json:"material_key"`
	Name              string           `json:"name"`
	Unit              string           `json:"unit"`
	Priority          Priority         `json:"priority"`
	DerivedQuantity   float64          `json:"derived_quantity"`
	EffectiveQuantity float64          `json:"effective_quantity"`
	Included          bool             `json:"included"`
	CatalogID         string           `json:"catalog_id,omitempty"`
	ProductName       string           `json:"product_name"`
	Description       string           `json:"description,omitempty"`
	Fallback          bool             `json:"fallback"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	BasePrice         decimal.Decimal  `json:"base_price"`
	DiscountPercent   int64            `json:"discount_percent"`
	LineTotal         decimal.Decimal  `json:"line_total"`
}

// Result is the estimate as presented to callers.
type Result struct {
	ProjectType        ProjectType      `json:"project_type"`
	TotalArea          float64          `json:"total_area"`
	DurationBand       string           `json:"duration_band"`
	Materials          []PricedMaterial `json:"materials"`
	TotalEstimatedCost decimal.Decimal  `json:"total_estimated_cost"`
	Confidence         float64          `json:"confidence"`
}

// Price computes every line of s from scratch at its effective quantity.
func Price(s State) []PricedMaterial {
	out := make([]PricedMaterial, 0, len(s.Requirements))
	for i, r := range s.Requirements {
		entry := catalog.Fallback(r.MaterialKey)
		if i < len(s.Entries) {
			entry = s.Entries[i]
		}

		sel, ok := s.Selections[r.ID]
		if !ok {
			sel = Selection{Included: r.Priority == Essential || r.DefaultIncluded, EffectiveQuantity: r.Quantity}
		}
		if r.Priority == Essential {
			sel.Included = true
		}

		quote := pricing.Resolve(entry, sel.EffectiveQuantity)
		out = append(out, PricedMaterial{
			RequirementID:     r.ID,
			MaterialKey:       r.MaterialKey,
			Name:              r.Name,
			Unit:              r.Unit,
			Priority:          r.Priority,
			DerivedQuantity:   r.Quantity,
			EffectiveQuantity: sel.EffectiveQuantity,
			Included:          sel.Included,
			CatalogID:         entry.ID,
			ProductName:       entry.Name,
			Description:       entry.Description,
			Fallback:          entry.Synthetic(),
			UnitPrice:         quote.UnitPrice,
			BasePrice:         quote.BasePrice,
			DiscountPercent:   quote.DiscountPercent,
			LineTotal:         pricing.LineTotal(quote.UnitPrice, sel.EffectiveQuantity),
		})
	}
	return out
}

// Total sums unit price times effective quantity over included lines.
func Total(materials []PricedMaterial) decimal.Decimal {
	total := decimal.Zero
	for _, m := range materials {
		if !m.Included {
			continue
		}
		total = total.Add(pricing.LineTotal(m.UnitPrice, m.EffectiveQuantity))
	}
	return total
}

// Evaluate builds the full result for s.
func Evaluate(s State) Result {
	materials := Price(s)
	return Result{
		ProjectType:        s.Params.ProjectType,
		TotalArea:          s.Params.TotalArea(),
		DurationBand:       DurationBand(s.Params.Floors),
		Materials:          materials,
		TotalEstimatedCost: Total(materials),
		Confidence:         Confidence,
	}
}

// SelectedMaterials returns the included lines for a downstream cart. The
// slice is empty, not nil, when nothing is included; callers that need a
// selection should treat that as ErrNothingSelected.
func SelectedMaterials(s State) []PricedMaterial {
	selected := make([]PricedMaterial, 0, len(s.Requirements))
	for _, m := range Price(s) {
		if m.Included {
			selected = append(selected, m)
		}
	}
	return selected
}

// DurationBand maps the floor count to an expected construction duration.
func DurationBand(floors int) string {
	switch {
	case floors <= 1:
		return "3-4 months"
	case floors <= 3:
		return "6-9 months"
	case floors <= 7:
		return "9-15 months"
	default:
		return "15-24 months"
	}
}
