package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

var keywords = map[Category][]string{
	Bricks:    {"brick", "fly ash", "aac block"},
	Cement:    {"cement", "portland", "53"},
	Steel:     {"steel", "tmt", "rebar", "fe500"},
	Sand:      {"sand", "m-sand", "msand"},
	Aggregate: {"aggregate", "gravel", "stone chips", "jelly"},
	ReadyMix:  {"ready mix", "ready-mix", "readymix", "rmc"},
}

type fallback struct {
	name  string
	price decimal.Decimal
}

var fallbacks = map[Category]fallback{
	Bricks:    {"Bricks (market rate)", decimal.RequireFromString("6.5")},
	Cement:    {"Cement (market rate)", decimal.NewFromInt(425)},
	Steel:     {"Steel (market rate)", decimal.NewFromInt(65)},
	Sand:      {"Sand (market rate)", decimal.NewFromInt(1800)},
	Aggregate: {"Stone aggregate (market rate)", decimal.NewFromInt(2200)},
	ReadyMix:  {"Ready-mix concrete (market rate)", decimal.NewFromInt(4500)},
}

// Keywords returns the lowercase search terms used to find entries for c.
// Categories outside the built-in set match on their own name.
func Keywords(c Category) []string {
	if kw, ok := keywords[c]; ok {
		return kw
	}
	return []string{strings.ReplaceAll(strings.ToLower(string(c)), "_", " ")}
}

// Fallback builds the synthetic entry used when nothing in the catalog
// matches c. Unknown categories fall back to a zero base price.
func Fallback(c Category) Entry {
	fb, ok := fallbacks[c]
	if !ok {
		return Entry{Category: c, Name: string(c), BasePrice: decimal.Zero}
	}
	return Entry{Category: c, Name: fb.name, BasePrice: fb.price}
}

// Match returns the first entry whose name or description contains one of
// the category keywords, or the synthetic fallback when none does. The
// second return value is false when the fallback was used.
func Match(c Category, entries []Entry) (Entry, bool) {
	kw := Keywords(c)
	for _, e := range entries {
		name := strings.ToLower(e.Name)
		desc := strings.ToLower(e.Description)
		for _, k := range kw {
			if strings.Contains(name, k) || strings.Contains(desc, k) {
				return e.Clone(), true
			}
		}
	}
	return Fallback(c), false
}
