package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Simplici0/buildest/internal/catalog"
	"github.com/Simplici0/buildest/internal/db"
	"github.com/Simplici0/buildest/internal/estimate"
	"github.com/Simplici0/buildest/internal/migrations"
	"github.com/Simplici0/buildest/internal/seed"
	"github.com/Simplici0/buildest/internal/session"
)

type failingSource struct{}

func (failingSource) List(context.Context) ([]catalog.Entry, error) {
	return nil, errors.New("catalog offline")
}

func newTestServer(t *testing.T, seeded bool) *server {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "server-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(ctx, database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if seeded {
		if _, err := seed.Run(ctx, database); err != nil {
			t.Fatalf("seed catalog: %v", err)
		}
	}

	store := catalog.NewSQLStore(database)
	return &server{
		db:       database,
		catalog:  store,
		source:   store,
		sessions: session.NewMemoryStore(time.Hour),
		log:      zap.NewNop(),
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectTotal(t *testing.T, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("expected total %d, got %s", want, got)
	}
}

func material(t *testing.T, result estimate.Result, id string) estimate.PricedMaterial {
	t.Helper()
	for _, m := range result.Materials {
		if m.RequirementID == id {
			return m
		}
	}
	t.Fatalf("material %q not in result", id)
	return estimate.PricedMaterial{}
}

func TestEstimateLifecycle(t *testing.T) {
	h := newTestServer(t, false).routes()

	rec := do(t, h, http.MethodPost, "/estimates", `{"area": 500, "floors": 2, "project_type": "commercial"}`)
	expectStatus(t, rec, http.StatusCreated)
	created := decodeBody[estimateResponse](t, rec)
	if created.SessionID == "" {
		t.Fatalf("expected a session id")
	}
	if created.Result.TotalArea != 1000 || created.Result.DurationBand != "6-9 months" {
		t.Fatalf("unexpected result header: %+v", created.Result)
	}
	expectTotal(t, created.Result.TotalEstimatedCost, 435000)

	base := "/estimates/" + created.SessionID

	rec = do(t, h, http.MethodPost, base+"/include", `{"requirement_id": "aggregate", "included": true}`)
	expectStatus(t, rec, http.StatusOK)
	expectTotal(t, decodeBody[estimateResponse](t, rec).Result.TotalEstimatedCost, 490000)

	rec = do(t, h, http.MethodPost, base+"/quantity", `{"requirement_id": "cement", "quantity": 200}`)
	expectStatus(t, rec, http.StatusOK)
	expectTotal(t, decodeBody[estimateResponse](t, rec).Result.TotalEstimatedCost, 541000)

	rec = do(t, h, http.MethodPost, base+"/quantity", `{"requirement_id": "cement", "quantity": 0}`)
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = do(t, h, http.MethodGet, base, "")
	expectStatus(t, rec, http.StatusOK)
	current := decodeBody[estimateResponse](t, rec).Result
	expectTotal(t, current.TotalEstimatedCost, 541000)
	if q := material(t, current, "cement").EffectiveQuantity; q != 200 {
		t.Fatalf("expected cement quantity to stay at 200, got %v", q)
	}

	rec = do(t, h, http.MethodGet, base+"/selection", "")
	expectStatus(t, rec, http.StatusOK)
	selection := decodeBody[selectionResponse](t, rec)
	if len(selection.Materials) != 5 {
		t.Fatalf("expected 5 selected materials, got %d", len(selection.Materials))
	}
	expectTotal(t, selection.Total, 541000)

	rec = do(t, h, http.MethodDelete, base, "")
	expectStatus(t, rec, http.StatusNoContent)
	rec = do(t, h, http.MethodGet, base, "")
	expectStatus(t, rec, http.StatusNotFound)
}

func TestEstimateCreateRejectsInvalidInput(t *testing.T) {
	h := newTestServer(t, false).routes()

	rec := do(t, h, http.MethodPost, "/estimates", `{"area": 0, "floors": 0, "project_type": "villa"}`)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	resp := decodeBody[errorResponse](t, rec)
	if len(resp.Fields) != 3 {
		t.Fatalf("expected 3 field errors, got %+v", resp.Fields)
	}

	rec = do(t, h, http.MethodPost, "/estimates", `{"area": 100,`)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, h, http.MethodPost, "/estimates", `{"area": 100, "floors": 1, "project_type": "residential", "budget": 5}`)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, h, http.MethodPost, "/estimates", `{"area": 100, "project_type": "`+strings.Repeat("x", maxBodyBytes)+`"}`)
	expectStatus(t, rec, http.StatusRequestEntityTooLarge)
}

func TestEstimateMutationErrors(t *testing.T) {
	h := newTestServer(t, false).routes()

	rec := do(t, h, http.MethodPost, "/estimates/missing/include", `{"requirement_id": "aggregate", "included": true}`)
	expectStatus(t, rec, http.StatusNotFound)

	rec = do(t, h, http.MethodPost, "/estimates", `{"area": 1000, "floors": 1, "project_type": "residential"}`)
	expectStatus(t, rec, http.StatusCreated)
	base := "/estimates/" + decodeBody[estimateResponse](t, rec).SessionID

	rec = do(t, h, http.MethodPost, base+"/include", `{"requirement_id": "paint", "included": true}`)
	expectStatus(t, rec, http.StatusNotFound)

	rec = do(t, h, http.MethodPost, base+"/include", `{"requirement_id": "aggregate"}`)
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = do(t, h, http.MethodPost, base+"/include", `{"requirement_id": "cement", "included": false}`)
	expectStatus(t, rec, http.StatusOK)
	if !material(t, decodeBody[estimateResponse](t, rec).Result, "cement").Included {
		t.Fatalf("expected essential cement to stay included")
	}
}

func TestEstimateProjectResubmitResetsSelection(t *testing.T) {
	h := newTestServer(t, false).routes()

	rec := do(t, h, http.MethodPost, "/estimates", `{"area": 1000, "floors": 1, "project_type": "residential"}`)
	base := "/estimates/" + decodeBody[estimateResponse](t, rec).SessionID
	do(t, h, http.MethodPost, base+"/include", `{"requirement_id": "aggregate", "included": true}`)

	rec = do(t, h, http.MethodPost, base+"/project", `{"area": 1000, "floors": 4, "project_type": "Residential"}`)
	expectStatus(t, rec, http.StatusOK)
	result := decodeBody[estimateResponse](t, rec).Result
	if material(t, result, "aggregate").Included {
		t.Fatalf("expected resubmit to discard the aggregate selection")
	}
	if result.TotalArea != 4000 || result.DurationBand != "9-15 months" {
		t.Fatalf("unexpected result header: %+v", result)
	}

	rec = do(t, h, http.MethodPost, base+"/project", `{"area": -1, "floors": 1, "project_type": "residential"}`)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	rec = do(t, h, http.MethodGet, base, "")
	if decodeBody[estimateResponse](t, rec).Result.TotalArea != 4000 {
		t.Fatalf("expected rejected resubmit to keep the previous project")
	}
}

func TestEstimateSelectionConflictWhenNothingSelected(t *testing.T) {
	h := newTestServer(t, false).routes()

	rec := do(t, h, http.MethodPost, "/estimates", `{
		"area": 200, "floors": 1, "project_type": "residential",
		"requirements": [{"material_key": "aggregate", "quantity": 3, "unit": "cubic meters", "priority": "optional"}]
	}`)
	expectStatus(t, rec, http.StatusCreated)
	base := "/estimates/" + decodeBody[estimateResponse](t, rec).SessionID

	rec = do(t, h, http.MethodGet, base+"/selection", "")
	expectStatus(t, rec, http.StatusConflict)
}

func TestEstimateUsesSeededCatalog(t *testing.T) {
	h := newTestServer(t, true).routes()

	rec := do(t, h, http.MethodPost, "/estimates", `{"area": 1000, "floors": 1, "project_type": "residential"}`)
	expectStatus(t, rec, http.StatusCreated)
	created := decodeBody[estimateResponse](t, rec)
	result := created.Result

	cement := material(t, result, "cement")
	if cement.CatalogID != "seed-cement-opc53" || cement.Fallback {
		t.Fatalf("expected cement to match the seeded entry, got %+v", cement)
	}
	if !cement.UnitPrice.Equal(decimal.NewFromInt(440)) || cement.DiscountPercent != 0 {
		t.Fatalf("unexpected cement price: %s (%d%%)", cement.UnitPrice, cement.DiscountPercent)
	}

	bricks := material(t, result, "bricks")
	if !bricks.UnitPrice.Equal(decimal.RequireFromString("6.9")) || bricks.DiscountPercent != 5 {
		t.Fatalf("unexpected bricks price: %s (%d%%)", bricks.UnitPrice, bricks.DiscountPercent)
	}

	if !material(t, result, "aggregate").Fallback {
		t.Fatalf("expected aggregate to use the market rate")
	}

	rec = do(t, h, http.MethodPost, "/estimates/"+created.SessionID+"/quantity", `{"requirement_id": "cement", "quantity": 600}`)
	expectStatus(t, rec, http.StatusOK)
	cement = material(t, decodeBody[estimateResponse](t, rec).Result, "cement")
	if !cement.UnitPrice.Equal(decimal.NewFromInt(405)) || cement.DiscountPercent != 8 {
		t.Fatalf("unexpected cement price after override: %s (%d%%)", cement.UnitPrice, cement.DiscountPercent)
	}
}

func TestEstimateFallsBackWhenCatalogUnavailable(t *testing.T) {
	srv := newTestServer(t, true)
	srv.source = failingSource{}
	h := srv.routes()

	rec := do(t, h, http.MethodPost, "/estimates", `{"area": 1000, "floors": 1, "project_type": "residential"}`)
	expectStatus(t, rec, http.StatusCreated)
	for _, m := range decodeBody[estimateResponse](t, rec).Result.Materials {
		if !m.Fallback {
			t.Fatalf("expected %s to use the market rate", m.RequirementID)
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, false).routes()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	expectStatus(t, rec, http.StatusOK)

	do(t, h, http.MethodPost, "/estimates", `{"area": 100, "floors": 1, "project_type": "industrial"}`)

	rec = do(t, h, http.MethodGet, "/metrics", "")
	expectStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	for _, name := range []string{
		`estimator_estimates_total{project_type="industrial"}`,
		`estimator_catalog_fallbacks_total{material="cement"}`,
		`estimator_mutations_total{kind="submit_project",outcome="ok"}`,
		`estimator_http_request_duration_seconds_count{route=`,
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected metrics to contain %s", name)
		}
	}
}
