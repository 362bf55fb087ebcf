package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Simplici0/buildest/internal/catalog"
	"github.com/Simplici0/buildest/internal/db"
	"github.com/Simplici0/buildest/internal/estimate"
	"github.com/Simplici0/buildest/internal/logger"
)

func runEstimate(c *cli.Context) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	format := c.String("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}

	lg, err := logger.New(c.String("log-level"), "console")
	if err != nil {
		return err
	}
	defer lg.Sync()

	overrides, err := parseOverrides(c.StringSlice("include"), c.StringSlice("exclude"), c.StringSlice("qty"))
	if err != nil {
		return err
	}

	entries, err := loadCatalog(ctx, lg, c.String("catalog"), c.String("db"))
	if err != nil {
		return err
	}

	pt, err := estimate.ParseProjectType(c.String("type"))
	if err != nil {
		return err
	}

	state, err := estimate.Apply(estimate.State{}, estimate.SubmitProject{
		Params:  estimate.ProjectParameters{Area: c.Float64("area"), Floors: c.Int("floors"), ProjectType: pt},
		Catalog: entries,
	})
	if err != nil {
		return err
	}

	for _, m := range overrides {
		state, err = estimate.Apply(state, m)
		if err != nil {
			return fmt.Errorf("%s: %w", m.Kind(), err)
		}
	}

	result := estimate.Evaluate(state)
	if format == "json" {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return renderText(c.App.Writer, state.Params, result)
}

// loadCatalog reads entries from a document or a database. With neither,
// or when the database cannot be read, every line uses market rates.
func loadCatalog(ctx context.Context, lg *zap.Logger, docPath, dbPath string) ([]catalog.Entry, error) {
	switch {
	case docPath != "" && dbPath != "":
		return nil, fmt.Errorf("--catalog and --db are mutually exclusive")
	case docPath != "":
		f, err := os.Open(docPath)
		if err != nil {
			return nil, fmt.Errorf("open catalog document: %w", err)
		}
		defer f.Close()
		return catalog.ParseDocument(f)
	case dbPath != "":
		// sqlite would create a missing file, leaving an empty database behind.
		if _, err := os.Stat(dbPath); err != nil {
			lg.Warn("catalog database unavailable, pricing from market rates", zap.String("path", dbPath), zap.Error(err))
			return nil, nil
		}
		database, err := db.Open(ctx, dbPath)
		if err != nil {
			lg.Warn("catalog database unavailable, pricing from market rates", zap.String("path", dbPath), zap.Error(err))
			return nil, nil
		}
		defer database.Close()

		entries, err := catalog.NewSQLStore(database).List(ctx)
		if err != nil {
			lg.Warn("catalog unavailable, pricing from market rates", zap.String("path", dbPath), zap.Error(err))
			return nil, nil
		}
		lg.Debug("catalog loaded", zap.Int("entries", len(entries)))
		return entries, nil
	}
	return nil, nil
}

// parseOverrides turns the selection flags into mutations, applied as
// includes, then excludes, then quantities.
func parseOverrides(include, exclude, qty []string) ([]estimate.Mutation, error) {
	out := make([]estimate.Mutation, 0, len(include)+len(exclude)+len(qty))
	for _, id := range include {
		out = append(out, estimate.SetIncluded{RequirementID: strings.TrimSpace(id), Included: true})
	}
	for _, id := range exclude {
		out = append(out, estimate.SetIncluded{RequirementID: strings.TrimSpace(id), Included: false})
	}
	for _, raw := range qty {
		id, value, ok := strings.Cut(raw, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid --qty %q, want id=value", raw)
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --qty %q: %w", raw, err)
		}
		out = append(out, estimate.SetQuantity{RequirementID: id, Quantity: q})
	}
	return out, nil
}

func renderText(w io.Writer, p estimate.ProjectParameters, r estimate.Result) error {
	fmt.Fprintf(w, "%s project, %s sq ft over %d floor(s)\n\n",
		r.ProjectType, humanize.Commaf(r.TotalArea), p.Floors)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tMATERIAL\tPRODUCT\tQUANTITY\tUNIT PRICE\tDISCOUNT\tLINE TOTAL")
	for _, m := range r.Materials {
		mark := "[ ]"
		if m.Included {
			mark = "[x]"
		}
		product := m.ProductName
		if m.Fallback {
			product += " *"
		}
		discount := "-"
		if m.DiscountPercent > 0 {
			discount = fmt.Sprintf("%d%%", m.DiscountPercent)
		}
		fmt.Fprintf(tw, "%s\t%s (%s)\t%s\t%s %s\t%s\t%s\t%s\n",
			mark, m.Name, m.Priority, product,
			humanize.Commaf(m.EffectiveQuantity), m.Unit,
			money(m.UnitPrice), discount, money(m.LineTotal))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal:      %s\n", money(r.TotalEstimatedCost))
	fmt.Fprintf(w, "Duration:   %s\n", r.DurationBand)
	fmt.Fprintf(w, "Confidence: %.0f%%\n", r.Confidence*100)
	fmt.Fprintln(w, "* market rate, no catalog match")
	return nil
}

func money(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.InexactFloat64())
}
