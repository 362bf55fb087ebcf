package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Simplici0/buildest/internal/catalog"
	"github.com/Simplici0/buildest/internal/db"
	"github.com/Simplici0/buildest/internal/migrations"
)

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "seed-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(ctx, database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	database := openMigrated(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		stats, err := Run(ctx, database)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != len(defaultCatalog) {
				t.Fatalf("expected %d inserts in first run, got %d", len(defaultCatalog), stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM catalog_entries`, len(defaultCatalog))
	assertCount(t, database, `SELECT COUNT(*) FROM catalog_slabs WHERE entry_id = 'seed-cement-opc53'`, 3)
}

func TestSeededCatalogMatchesEachSeededCategory(t *testing.T) {
	t.Parallel()

	database := openMigrated(t)
	ctx := context.Background()
	if _, err := Run(ctx, database); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	entries, err := catalog.NewSQLStore(database).List(ctx)
	if err != nil {
		t.Fatalf("list catalog: %v", err)
	}

	for _, e := range defaultCatalog {
		got, matched := catalog.Match(catalog.Category(e.category), entries)
		if !matched {
			t.Fatalf("expected %s to match a seeded entry", e.category)
		}
		if got.ID != e.id {
			t.Fatalf("category %s matched %s, want %s", e.category, got.ID, e.id)
		}
		if got.Specs == nil {
			t.Fatalf("expected specs for %s", e.id)
		}
	}

	for _, c := range []catalog.Category{catalog.Aggregate, catalog.ReadyMix} {
		if _, matched := catalog.Match(c, entries); matched {
			t.Fatalf("expected %s to use the market rate", c)
		}
	}
}

func TestRunKeepsDeactivatedEntries(t *testing.T) {
	t.Parallel()

	database := openMigrated(t)
	ctx := context.Background()
	if _, err := Run(ctx, database); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	store := catalog.NewSQLStore(database)
	if err := store.SetActive(ctx, "seed-sand-river", false); err != nil {
		t.Fatalf("deactivate sand: %v", err)
	}

	stats, err := Run(ctx, database)
	if err != nil {
		t.Fatalf("rerun seed: %v", err)
	}
	if stats.Inserts != 0 {
		t.Fatalf("expected no inserts, got %d", stats.Inserts)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list catalog: %v", err)
	}
	if len(entries) != len(defaultCatalog)-1 {
		t.Fatalf("expected %d active entries, got %d", len(defaultCatalog)-1, len(entries))
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, expected int) {
	t.Helper()

	var count int
	if err := database.QueryRow(query).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count=%d, got %d for query %q", expected, count, query)
	}
}
