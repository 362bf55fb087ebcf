package seed

import (
	"context"
	"database/sql"
	"fmt"
)

type slab struct {
	minQty float64
	maxQty sql.NullFloat64
	price  string
}

type entry struct {
	id          string
	category    string
	name        string
	description string
	basePrice   string
	specsJSON   string
	slabs       []slab
}

func upTo(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

// Aggregate and ready-mix are left out on purpose so a fresh install prices
// them from market rates.
var defaultCatalog = []entry{
	{
		id:          "seed-cement-opc53",
		category:    "cement",
		name:        "UltraTech OPC 53 Grade",
		description: "Ordinary portland cement, 50 kg bag",
		basePrice:   "440",
		specsJSON:   `{"cement":{"grade":"53","type":"OPC","bag_kg":50}}`,
		slabs: []slab{
			{minQty: 1, maxQty: upTo(99), price: "440"},
			{minQty: 100, maxQty: upTo(499), price: "420"},
			{minQty: 500, price: "405"},
		},
	},
	{
		id:          "seed-bricks-red-clay",
		category:    "bricks",
		name:        "Red clay bricks, first class",
		description: "Kiln fired, 230 x 110 x 75 mm",
		basePrice:   "7.25",
		specsJSON:   `{"brick":{"class":"first","length_mm":230,"width_mm":110,"height_mm":75}}`,
		slabs: []slab{
			{minQty: 1, maxQty: upTo(4999), price: "7.25"},
			{minQty: 5000, maxQty: upTo(19999), price: "6.9"},
			{minQty: 20000, price: "6.6"},
		},
	},
	{
		id:          "seed-steel-tmt-fe500d",
		category:    "steel",
		name:        "TMT bar Fe500D",
		description: "Thermo-mechanically treated rebar, 12 mm",
		basePrice:   "68",
		specsJSON:   `{"steel":{"grade":"Fe500D","diameter_mm":12}}`,
	},
	{
		id:          "seed-sand-river",
		category:    "sand",
		name:        "River sand",
		description: "Washed, zone II, per cubic meter",
		basePrice:   "1750",
		specsJSON:   `{"sand":{"kind":"river","zone":"II"}}`,
	},
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run inserts the default catalog entries that are missing. Entries already
// present, edited or deactivated are left alone.
func Run(ctx context.Context, db *sql.DB) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	for _, e := range defaultCatalog {
		if err := ensureEntry(ctx, tx, e, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureEntry(ctx context.Context, tx *sql.Tx, e entry, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM catalog_entries WHERE id = ? LIMIT 1)`, e.id).Scan(&exists); err != nil {
		return fmt.Errorf("check catalog entry %s existence: %w", e.id, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_entries (id, category, name, description, base_price, specs_json, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.id, e.category, e.name, e.description, e.basePrice, e.specsJSON, true); err != nil {
		return fmt.Errorf("insert catalog entry %s: %w", e.id, err)
	}

	for i, s := range e.slabs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_slabs (entry_id, position, min_qty, max_qty, price_per_unit)
			VALUES (?, ?, ?, ?, ?)
		`, e.id, i, s.minQty, s.maxQty, s.price); err != nil {
			return fmt.Errorf("insert slab %d for %s: %w", i, e.id, err)
		}
	}

	stats.Inserts++
	return nil
}
