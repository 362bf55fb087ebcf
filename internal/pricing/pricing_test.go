package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/buildest/internal/catalog"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func equalDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(t, want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func tieredEntry(t *testing.T) catalog.Entry {
	return catalog.Entry{
		ID:        "cement-53",
		Name:      "OPC 53 Grade Cement",
		BasePrice: dec(t, "100"),
		Slabs: []catalog.Slab{
			{MinQty: 1, MaxQty: 99, PricePerUnit: dec(t, "100")},
			{MinQty: 100, MaxQty: 499, PricePerUnit: dec(t, "90")},
			{MinQty: 500, PricePerUnit: dec(t, "80")},
		},
	}
}

func TestResolve_SlabsStepWithQuantity(t *testing.T) {
	entry := tieredEntry(t)

	cases := []struct {
		quantity float64
		unit     string
		discount int64
		slab     int
	}{
		{50, "100", 0, 0},
		{99, "100", 0, 0},
		{100, "90", 10, 1},
		{200, "90", 10, 1},
		{499, "90", 10, 1},
		{500, "80", 20, 2},
		{600, "80", 20, 2},
		{1_000_000, "80", 20, 2},
	}

	for _, tc := range cases {
		q := Resolve(entry, tc.quantity)
		equalDecimal(t, "unitPrice", q.UnitPrice, tc.unit)
		equalDecimal(t, "basePrice", q.BasePrice, "100")
		if q.DiscountPercent != tc.discount {
			t.Fatalf("quantity %v: discount = %d, want %d", tc.quantity, q.DiscountPercent, tc.discount)
		}
		if q.SlabIndex != tc.slab {
			t.Fatalf("quantity %v: slab = %d, want %d", tc.quantity, q.SlabIndex, tc.slab)
		}
	}
}

func TestResolve_IsIdempotent(t *testing.T) {
	entry := tieredEntry(t)

	first := Resolve(entry, 250)
	second := Resolve(entry, 250)

	if !first.UnitPrice.Equal(second.UnitPrice) || first.DiscountPercent != second.DiscountPercent {
		t.Fatalf("resolve not idempotent: %+v vs %+v", first, second)
	}
}

func TestResolve_NoSlabMatchUsesBasePrice(t *testing.T) {
	entry := catalog.Entry{
		BasePrice: dec(t, "425"),
		Slabs: []catalog.Slab{
			{MinQty: 100, MaxQty: 200, PricePerUnit: dec(t, "400")},
		},
	}

	below := Resolve(entry, 10)
	equalDecimal(t, "below unitPrice", below.UnitPrice, "425")
	if below.DiscountPercent != 0 || below.SlabIndex != -1 {
		t.Fatalf("expected base price without discount, got %+v", below)
	}

	above := Resolve(entry, 201)
	equalDecimal(t, "above unitPrice", above.UnitPrice, "425")

	empty := Resolve(catalog.Entry{BasePrice: dec(t, "6.5")}, 10000)
	equalDecimal(t, "empty unitPrice", empty.UnitPrice, "6.5")
	if empty.DiscountPercent != 0 {
		t.Fatalf("expected 0 discount for entry without slabs, got %d", empty.DiscountPercent)
	}
}

func TestResolve_ZeroBasePriceHasNoDiscount(t *testing.T) {
	entry := catalog.Entry{
		Slabs: []catalog.Slab{{MinQty: 1, PricePerUnit: dec(t, "50")}},
	}

	q := Resolve(entry, 10)
	equalDecimal(t, "unitPrice", q.UnitPrice, "50")
	if q.DiscountPercent != 0 {
		t.Fatalf("discount = %d, want 0", q.DiscountPercent)
	}
}

func TestDiscountPercent_Rounds(t *testing.T) {
	if got := DiscountPercent(dec(t, "425"), dec(t, "399")); got != 6 {
		t.Fatalf("discount = %d, want 6", got)
	}
	if got := DiscountPercent(dec(t, "3"), dec(t, "2")); got != 33 {
		t.Fatalf("discount = %d, want 33", got)
	}
}

func TestLineTotal(t *testing.T) {
	equalDecimal(t, "100x5", LineTotal(dec(t, "100"), 5), "500")
	equalDecimal(t, "6.5x10000", LineTotal(dec(t, "6.5"), 10000), "65000")
	equalDecimal(t, "65x2.5", LineTotal(dec(t, "65"), 2.5), "162.5")
}
