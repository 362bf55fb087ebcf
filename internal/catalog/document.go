package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"
)

const documentSchema = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["entries"],
	"properties": {
		"entries": {
			"type": "array",
			"items": {
				"type": "object",
				"additionalProperties": false,
				"required": ["name", "base_price"],
				"properties": {
					"id": {"type": "string"},
					"category": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"base_price": {"type": "number", "minimum": 0},
					"quantity_slabs": {
						"type": "array",
						"items": {
							"type": "object",
							"additionalProperties": false,
							"required": ["min_qty", "price_per_unit"],
							"properties": {
								"min_qty": {"type": "number", "minimum": 0},
								"max_qty": {"type": "number", "minimum": 0},
								"price_per_unit": {"type": "number", "minimum": 0}
							}
						}
					},
					"specs": {"type": "object"}
				}
			}
		}
	}
}`

var documentSchemaLoader = gojsonschema.NewStringLoader(documentSchema)

type documentEntry struct {
	ID          string          `json:"id"`
	Category    Category        `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Slabs       []documentSlab  `json:"quantity_slabs"`
	Specs       json.RawMessage `json:"specs"`
}

type documentSlab struct {
	MinQty       float64         `json:"min_qty"`
	MaxQty       *float64        `json:"max_qty"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// ParseDocument reads a catalog document of the form {"entries": [...]},
// validates it and returns the entries in document order.
func ParseDocument(r io.Reader) ([]Entry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog document: %w", err)
	}

	result, err := gojsonschema.Validate(documentSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate catalog document: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEntry, joinSchemaErrors(result.Errors()))
	}

	var doc struct {
		Entries []documentEntry `json:"entries"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog document: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Entries))
	seen := make(map[string]bool, len(doc.Entries))
	for i, de := range doc.Entries {
		if de.ID != "" {
			if seen[de.ID] {
				return nil, fmt.Errorf("%w: entry %d repeats id %q", ErrDuplicateID, i, de.ID)
			}
			seen[de.ID] = true
		}
		entry, err := de.toEntry()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s): %w", ErrInvalidEntry, i, de.Name, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ParseEntry reads one entry in the same shape as a document entry.
func ParseEntry(r io.Reader) (Entry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Entry{}, fmt.Errorf("read catalog entry: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"entries":[`)
	buf.Write(raw)
	buf.WriteString(`]}`)

	entries, err := ParseDocument(&buf)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) != 1 {
		return Entry{}, fmt.Errorf("%w: expected a single entry", ErrInvalidEntry)
	}
	return entries[0], nil
}

func (de documentEntry) toEntry() (Entry, error) {
	entry := Entry{
		ID:          de.ID,
		Category:    de.Category,
		Name:        de.Name,
		Description: de.Description,
		BasePrice:   de.BasePrice,
	}

	for _, s := range de.Slabs {
		slab := Slab{MinQty: s.MinQty, PricePerUnit: s.PricePerUnit}
		if s.MaxQty != nil {
			if *s.MaxQty == 0 {
				return Entry{}, fmt.Errorf("max_qty must be omitted or positive")
			}
			slab.MaxQty = *s.MaxQty
		}
		entry.Slabs = append(entry.Slabs, slab)
	}
	if err := ValidateSlabs(entry.Slabs); err != nil {
		return Entry{}, err
	}

	if len(de.Specs) > 0 {
		if de.Category == "" {
			return Entry{}, fmt.Errorf("specs require a category")
		}
		specs, err := DecodeSpecs(de.Category, de.Specs)
		if err != nil {
			return Entry{}, err
		}
		entry.Specs = specs
	}

	return entry, nil
}
