package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// CementSpec describes a bagged cement product.
type CementSpec struct {
	Grade string  `json:"grade"`
	Type  string  `json:"type,omitempty"`
	BagKg float64 `json:"bag_kg,omitempty"`
}

// BrickSpec describes a brick by class and nominal size.
type BrickSpec struct {
	Class    string `json:"class,omitempty"`
	LengthMM int    `json:"length_mm"`
	WidthMM  int    `json:"width_mm"`
	HeightMM int    `json:"height_mm"`
}

// SteelSpec describes reinforcement bars.
type SteelSpec struct {
	Grade      string `json:"grade"`
	DiameterMM int    `json:"diameter_mm,omitempty"`
}

// SandSpec describes sand by kind, e.g. river or m-sand, and grading zone.
type SandSpec struct {
	Kind string `json:"kind"`
	Zone string `json:"zone,omitempty"`
}

// AggregateSpec describes coarse aggregate by nominal size.
type AggregateSpec struct {
	SizeMM int `json:"size_mm"`
}

// ReadyMixSpec describes ready-mix concrete by grade, e.g. M25.
type ReadyMixSpec struct {
	Grade string `json:"grade"`
}

// Specs holds the typed specification of an entry. At most one field is set,
// matching the entry category.
type Specs struct {
	Cement    *CementSpec    `json:"cement,omitempty"`
	Brick     *BrickSpec     `json:"brick,omitempty"`
	Steel     *SteelSpec     `json:"steel,omitempty"`
	Sand      *SandSpec      `json:"sand,omitempty"`
	Aggregate *AggregateSpec `json:"aggregate,omitempty"`
	ReadyMix  *ReadyMixSpec  `json:"ready_mix,omitempty"`
}

func (s Specs) clone() Specs {
	out := Specs{}
	if s.Cement != nil {
		v := *s.Cement
		out.Cement = &v
	}
	if s.Brick != nil {
		v := *s.Brick
		out.Brick = &v
	}
	if s.Steel != nil {
		v := *s.Steel
		out.Steel = &v
	}
	if s.Sand != nil {
		v := *s.Sand
		out.Sand = &v
	}
	if s.Aggregate != nil {
		v := *s.Aggregate
		out.Aggregate = &v
	}
	if s.ReadyMix != nil {
		v := *s.ReadyMix
		out.ReadyMix = &v
	}
	return out
}

var specSchemas = map[Category]string{
	Cement: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["grade"],
		"properties": {
			"grade": {"type": "string", "enum": ["33", "43", "53"]},
			"type": {"type": "string", "enum": ["OPC", "PPC", "PSC"]},
			"bag_kg": {"type": "number", "minimum": 1}
		}
	}`,
	Bricks: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["length_mm", "width_mm", "height_mm"],
		"properties": {
			"class": {"type": "string"},
			"length_mm": {"type": "integer", "minimum": 1},
			"width_mm": {"type": "integer", "minimum": 1},
			"height_mm": {"type": "integer", "minimum": 1}
		}
	}`,
	Steel: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["grade"],
		"properties": {
			"grade": {"type": "string", "enum": ["Fe415", "Fe500", "Fe500D", "Fe550", "Fe550D"]},
			"diameter_mm": {"type": "integer", "minimum": 6, "maximum": 40}
		}
	}`,
	Sand: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["kind"],
		"properties": {
			"kind": {"type": "string", "enum": ["river", "m-sand", "p-sand"]},
			"zone": {"type": "string", "enum": ["I", "II", "III", "IV"]}
		}
	}`,
	Aggregate: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["size_mm"],
		"properties": {
			"size_mm": {"type": "integer", "enum": [6, 10, 12, 20, 40]}
		}
	}`,
	ReadyMix: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["grade"],
		"properties": {
			"grade": {"type": "string", "pattern": "^M[1-9][0-9]$"}
		}
	}`,
}

// DecodeSpecs validates raw against the schema for c and decodes it into the
// matching typed field. Unknown keys are rejected.
func DecodeSpecs(c Category, raw json.RawMessage) (*Specs, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	schema, ok := specSchemas[c]
	if !ok {
		return nil, fmt.Errorf("specs are not supported for category %q", c)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("validate %s specs: %w", c, err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("invalid %s specs: %s", c, joinSchemaErrors(result.Errors()))
	}

	specs := &Specs{}
	var target any
	switch c {
	case Cement:
		specs.Cement = &CementSpec{}
		target = specs.Cement
	case Bricks:
		specs.Brick = &BrickSpec{}
		target = specs.Brick
	case Steel:
		specs.Steel = &SteelSpec{}
		target = specs.Steel
	case Sand:
		specs.Sand = &SandSpec{}
		target = specs.Sand
	case Aggregate:
		specs.Aggregate = &AggregateSpec{}
		target = specs.Aggregate
	case ReadyMix:
		specs.ReadyMix = &ReadyMixSpec{}
		target = specs.ReadyMix
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode %s specs: %w", c, err)
	}
	return specs, nil
}

func joinSchemaErrors(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}
