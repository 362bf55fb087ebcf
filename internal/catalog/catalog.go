// Package catalog holds the material records that estimates are priced
// against: entries, their quantity slabs and typed per-category specs.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned by stores when an entry id does not exist.
	ErrNotFound = errors.New("catalog entry not found")
	// ErrInvalidEntry wraps every caller-fixable problem with an entry or document.
	ErrInvalidEntry = errors.New("invalid catalog entry")
	// ErrDuplicateID is returned when an entry id is already taken.
	ErrDuplicateID = errors.New("duplicate catalog entry id")
)

// Category tags the kind of material a requirement or entry refers to.
type Category string

const (
	Bricks    Category = "bricks"
	Cement    Category = "cement"
	Steel     Category = "steel"
	Sand      Category = "sand"
	Aggregate Category = "aggregate"
	ReadyMix  Category = "ready_mix"
)

// Categories lists the known categories in derivation order.
var Categories = []Category{Bricks, Cement, Steel, Sand, Aggregate, ReadyMix}

// Known reports whether c is one of the built-in categories.
func (c Category) Known() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Slab is one quantity break. A zero MaxQty means the slab has no upper bound.
type Slab struct {
	MinQty       float64         `json:"min_qty"`
	MaxQty       float64         `json:"max_qty,omitempty"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// Unbounded reports whether the slab extends to infinity.
func (s Slab) Unbounded() bool {
	return s.MaxQty == 0
}

// Contains reports whether quantity falls inside [MinQty, MaxQty].
func (s Slab) Contains(quantity float64) bool {
	if quantity < s.MinQty {
		return false
	}
	return s.Unbounded() || quantity <= s.MaxQty
}

// Entry is a catalog record. An entry with an empty ID is a synthetic
// fallback built locally when nothing in the catalog matched.
type Entry struct {
	ID          string          `json:"id,omitempty"`
	Category    Category        `json:"category,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Slabs       []Slab          `json:"quantity_slabs,omitempty"`
	Specs       *Specs          `json:"specs,omitempty"`
}

// Synthetic reports whether e is a locally built fallback entry.
func (e Entry) Synthetic() bool {
	return e.ID == ""
}

// Clone returns a copy that shares no slices with e.
func (e Entry) Clone() Entry {
	out := e
	if e.Slabs != nil {
		out.Slabs = append([]Slab(nil), e.Slabs...)
	}
	if e.Specs != nil {
		specs := e.Specs.clone()
		out.Specs = &specs
	}
	return out
}

// ValidateSlabs checks that slabs are well formed and cover disjoint ranges.
func ValidateSlabs(slabs []Slab) error {
	ordered := append([]Slab(nil), slabs...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].MinQty < ordered[j].MinQty })

	for i, s := range ordered {
		if s.MinQty < 0 {
			return fmt.Errorf("slab %d: min_qty must be >= 0", i)
		}
		if !s.Unbounded() && s.MaxQty < s.MinQty {
			return fmt.Errorf("slab %d: max_qty %.2f is below min_qty %.2f", i, s.MaxQty, s.MinQty)
		}
		if s.PricePerUnit.IsNegative() {
			return fmt.Errorf("slab %d: price_per_unit must be >= 0", i)
		}
		if i == 0 {
			continue
		}
		prev := ordered[i-1]
		if prev.Unbounded() || s.MinQty <= prev.MaxQty {
			return fmt.Errorf("slab starting at %.2f overlaps slab starting at %.2f", s.MinQty, prev.MinQty)
		}
	}
	return nil
}
