package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source provides the catalog entries an estimate is matched against, in
// catalog order.
type Source interface {
	List(ctx context.Context) ([]Entry, error)
}

// StaticSource serves a fixed, already loaded list of entries.
type StaticSource []Entry

// List returns a copy of the entries.
func (s StaticSource) List(context.Context) ([]Entry, error) {
	out := make([]Entry, 0, len(s))
	for _, e := range s {
		out = append(out, e.Clone())
	}
	return out, nil
}

// SQLStore keeps catalog entries in sqlite.
type SQLStore struct {
	db *sql.DB
}

var _ Source = (*SQLStore)(nil)

// NewSQLStore returns a store backed by db. The schema comes from the goose
// migrations in ./migrations.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// List returns active entries in insertion order.
func (s *SQLStore) List(ctx context.Context) ([]Entry, error) {
	return s.list(ctx, true)
}

// ListAll returns every entry, active or not, in insertion order.
func (s *SQLStore) ListAll(ctx context.Context) ([]Entry, error) {
	return s.list(ctx, false)
}

func (s *SQLStore) list(ctx context.Context, activeOnly bool) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(category, ''), name, COALESCE(description, ''), base_price, COALESCE(specs_json, '')
		FROM catalog_entries
		WHERE (? = 0 OR active)
		ORDER BY rowid
	`, boolInt(activeOnly))
	if err != nil {
		return nil, fmt.Errorf("query catalog entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	index := make(map[string]int)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog entries: %w", err)
	}

	slabs, err := s.db.QueryContext(ctx, `
		SELECT entry_id, min_qty, max_qty, price_per_unit
		FROM catalog_slabs
		ORDER BY entry_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalog slabs: %w", err)
	}
	defer slabs.Close()

	for slabs.Next() {
		var entryID string
		slab, err := scanSlab(slabs, &entryID)
		if err != nil {
			return nil, err
		}
		i, ok := index[entryID]
		if !ok {
			continue
		}
		entries[i].Slabs = append(entries[i].Slabs, slab)
	}
	if err := slabs.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog slabs: %w", err)
	}

	return entries, nil
}

// Get returns one entry by id, active or not.
func (s *SQLStore) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(category, ''), name, COALESCE(description, ''), base_price, COALESCE(specs_json, '')
		FROM catalog_entries
		WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, min_qty, max_qty, price_per_unit
		FROM catalog_slabs
		WHERE entry_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return Entry{}, fmt.Errorf("query catalog slabs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entryID string
		slab, err := scanSlab(rows, &entryID)
		if err != nil {
			return Entry{}, err
		}
		e.Slabs = append(e.Slabs, slab)
	}
	if err := rows.Err(); err != nil {
		return Entry{}, fmt.Errorf("iterate catalog slabs: %w", err)
	}
	return e, nil
}

// Create inserts e, assigning a new id when e.ID is empty, and returns the
// stored entry.
func (s *SQLStore) Create(ctx context.Context, e Entry) (Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("begin create transaction: %w", err)
	}

	created, err := createEntry(ctx, tx, e)
	if err != nil {
		_ = tx.Rollback()
		return Entry{}, err
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit create transaction: %w", err)
	}
	return created, nil
}

// Import inserts all entries in one transaction, preserving their order.
// Nothing is stored when any id is already taken or repeated.
func (s *SQLStore) Import(ctx context.Context, entries []Entry) ([]Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import transaction: %w", err)
	}

	created := make([]Entry, 0, len(entries))
	for _, e := range entries {
		c, err := createEntry(ctx, tx, e)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		created = append(created, c)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import transaction: %w", err)
	}
	return created, nil
}

// Update replaces the fields and slabs of an existing entry.
func (s *SQLStore) Update(ctx context.Context, e Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	specsJSON, err := encodeSpecs(e.Specs)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update transaction: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE catalog_entries
		SET
			category = ?,
			name = ?,
			description = ?,
			base_price = ?,
			specs_json = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, nullString(string(e.Category)), e.Name, e.Description, e.BasePrice.String(), specsJSON, e.ID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update catalog entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update catalog entry: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_slabs WHERE entry_id = ?`, e.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear catalog slabs: %w", err)
	}
	if err := insertSlabs(ctx, tx, e.ID, e.Slabs); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update transaction: %w", err)
	}
	return nil
}

// SetActive toggles whether an entry is offered to the matcher.
func (s *SQLStore) SetActive(ctx context.Context, id string, active bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE catalog_entries
		SET active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, active, id)
	if err != nil {
		return fmt.Errorf("update catalog entry status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update catalog entry status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func createEntry(ctx context.Context, tx *sql.Tx, e Entry) (Entry, error) {
	if err := validateEntry(e); err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	} else {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM catalog_entries WHERE id = ? LIMIT 1)`, e.ID).Scan(&exists); err != nil {
			return Entry{}, fmt.Errorf("check catalog entry %s existence: %w", e.ID, err)
		}
		if exists {
			return Entry{}, fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
	}
	specsJSON, err := encodeSpecs(e.Specs)
	if err != nil {
		return Entry{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO catalog_entries (id, category, name, description, base_price, specs_json, active)
		VALUES (?, ?, ?, ?, ?, ?, TRUE)
	`, e.ID, nullString(string(e.Category)), e.Name, e.Description, e.BasePrice.String(), specsJSON)
	if err != nil {
		return Entry{}, fmt.Errorf("insert catalog entry %q: %w", e.Name, err)
	}

	if err := insertSlabs(ctx, tx, e.ID, e.Slabs); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func insertSlabs(ctx context.Context, tx *sql.Tx, entryID string, slabs []Slab) error {
	for i, slab := range slabs {
		var maxQty sql.NullFloat64
		if !slab.Unbounded() {
			maxQty = sql.NullFloat64{Float64: slab.MaxQty, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_slabs (entry_id, position, min_qty, max_qty, price_per_unit)
			VALUES (?, ?, ?, ?, ?)
		`, entryID, i, slab.MinQty, maxQty, slab.PricePerUnit.String())
		if err != nil {
			return fmt.Errorf("insert catalog slab %d: %w", i, err)
		}
	}
	return nil
}

func validateEntry(e Entry) error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEntry)
	}
	if e.BasePrice.IsNegative() {
		return fmt.Errorf("%w: base_price must be >= 0", ErrInvalidEntry)
	}
	if err := ValidateSlabs(e.Slabs); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e         Entry
		category  string
		basePrice string
		specsJSON string
	)
	if err := row.Scan(&e.ID, &category, &e.Name, &e.Description, &basePrice, &specsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan catalog entry: %w", err)
	}
	e.Category = Category(category)

	price, err := decimal.NewFromString(basePrice)
	if err != nil {
		return Entry{}, fmt.Errorf("parse base_price of %s: %w", e.ID, err)
	}
	e.BasePrice = price

	if specsJSON != "" {
		var specs Specs
		if err := json.Unmarshal([]byte(specsJSON), &specs); err != nil {
			return Entry{}, fmt.Errorf("decode specs of %s: %w", e.ID, err)
		}
		e.Specs = &specs
	}
	return e, nil
}

func scanSlab(row scanner, entryID *string) (Slab, error) {
	var (
		slab   Slab
		maxQty sql.NullFloat64
		price  string
	)
	if err := row.Scan(entryID, &slab.MinQty, &maxQty, &price); err != nil {
		return Slab{}, fmt.Errorf("scan catalog slab: %w", err)
	}
	if maxQty.Valid {
		slab.MaxQty = maxQty.Float64
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return Slab{}, fmt.Errorf("parse slab price of %s: %w", *entryID, err)
	}
	slab.PricePerUnit = p
	return slab, nil
}

func encodeSpecs(specs *Specs) (sql.NullString, error) {
	if specs == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(specs)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode specs: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
