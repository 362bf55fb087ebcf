package main

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/buildest/internal/estimate"
)

const cliCatalog = `{"entries": [
	{
		"id": "c-1",
		"category": "cement",
		"name": "UltraTech OPC 53 Grade",
		"base_price": 100,
		"quantity_slabs": [
			{"min_qty": 1, "max_qty": 99, "price_per_unit": 100},
			{"min_qty": 100, "price_per_unit": 90}
		]
	}
]}`

func TestParseOverrides(t *testing.T) {
	got, err := parseOverrides([]string{"aggregate"}, []string{" ready_mix "}, []string{"cement=80", "sand = 12.5"})
	require.NoError(t, err)
	assert.Equal(t, []estimate.Mutation{
		estimate.SetIncluded{RequirementID: "aggregate", Included: true},
		estimate.SetIncluded{RequirementID: "ready_mix", Included: false},
		estimate.SetQuantity{RequirementID: "cement", Quantity: 80},
		estimate.SetQuantity{RequirementID: "sand", Quantity: 12.5},
	}, got)

	for _, bad := range []string{"cement", "=5", "cement=lots"} {
		_, err := parseOverrides(nil, nil, []string{bad})
		assert.Error(t, err, bad)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"estimate"}, args...))
	return out.String(), err
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(cliCatalog), 0o600))
	return path
}

func TestRunEstimate_JSON(t *testing.T) {
	out, err := runCLI(t,
		"--area", "1000", "--floors", "1", "--type", "residential",
		"--catalog", writeCatalog(t),
		"--include", "aggregate",
		"--qty", "cement=150",
		"--format", "json",
	)
	require.NoError(t, err)

	var result estimate.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	var cement, aggregate estimate.PricedMaterial
	for _, m := range result.Materials {
		switch m.RequirementID {
		case "cement":
			cement = m
		case "aggregate":
			aggregate = m
		}
	}
	assert.Equal(t, "c-1", cement.CatalogID)
	assert.Equal(t, 150.0, cement.EffectiveQuantity)
	assert.True(t, cement.UnitPrice.Equal(decimal.NewFromInt(90)))
	assert.Equal(t, int64(10), cement.DiscountPercent)
	assert.True(t, aggregate.Included)
	assert.True(t, aggregate.Fallback)
	assert.Equal(t, "3-4 months", result.DurationBand)
}

func TestRunEstimate_Text(t *testing.T) {
	out, err := runCLI(t, "--area", "500", "--floors", "2", "--type", "commercial")
	require.NoError(t, err)

	assert.Contains(t, out, "commercial project, 1,000 sq ft over 2 floor(s)")
	assert.Contains(t, out, "Total:      435,000.00")
	assert.Contains(t, out, "Duration:   6-9 months")
	assert.Contains(t, out, "Confidence: 85%")
}

func TestRunEstimate_MissingDatabaseFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	out, err := runCLI(t, "--area", "1000", "--db", path, "--format", "json")
	require.NoError(t, err)

	var result estimate.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotEmpty(t, result.Materials)
	for _, m := range result.Materials {
		assert.True(t, m.Fallback, m.RequirementID)
	}

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRunEstimate_Errors(t *testing.T) {
	_, err := runCLI(t, "--area", "0")
	assert.Error(t, err)

	_, err = runCLI(t, "--area", "100", "--type", "villa")
	assert.Error(t, err)

	_, err = runCLI(t, "--area", "100", "--qty", "cement=0")
	assert.ErrorIs(t, err, estimate.ErrInvalidQuantity)

	_, err = runCLI(t, "--area", "100", "--catalog", "a.json", "--db", "b.db")
	assert.Error(t, err)

	_, err = runCLI(t, "--area", "100", "--format", "yaml")
	assert.Error(t, err)
}
