// Package pricing resolves the unit price of a catalog entry for an ordered
// quantity using the entry's quantity slabs.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Simplici0/buildest/internal/catalog"
)

var hundred = decimal.NewFromInt(100)

// Quote is the price that applies to one entry at one quantity.
type Quote struct {
	UnitPrice       decimal.Decimal
	BasePrice       decimal.Decimal
	DiscountPercent int64
	// SlabIndex is the position of the applied slab, or -1 when the base
	// price was used.
	SlabIndex int
}

// Resolve returns the price of entry at quantity. The first slab containing
// quantity wins; without one the base price applies with no discount.
func Resolve(entry catalog.Entry, quantity float64) Quote {
	for i, slab := range entry.Slabs {
		if !slab.Contains(quantity) {
			continue
		}
		return Quote{
			UnitPrice:       slab.PricePerUnit,
			BasePrice:       entry.BasePrice,
			DiscountPercent: DiscountPercent(entry.BasePrice, slab.PricePerUnit),
			SlabIndex:       i,
		}
	}

	return Quote{
		UnitPrice: entry.BasePrice,
		BasePrice: entry.BasePrice,
		SlabIndex: -1,
	}
}

// DiscountPercent returns round((base - unit) / base * 100). A zero base
// price yields zero.
func DiscountPercent(base, unit decimal.Decimal) int64 {
	if base.IsZero() {
		return 0
	}
	return base.Sub(unit).Div(base).Mul(hundred).Round(0).IntPart()
}

// LineTotal returns unitPrice * quantity rounded to paise.
func LineTotal(unitPrice decimal.Decimal, quantity float64) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromFloat(quantity)).Round(2)
}
