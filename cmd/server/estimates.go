package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Simplici0/buildest/internal/catalog"
	"github.com/Simplici0/buildest/internal/estimate"
	"github.com/Simplici0/buildest/internal/metrics"
)

type projectRequest struct {
	Area         float64                `json:"area"`
	Floors       int                    `json:"floors"`
	ProjectType  string                 `json:"project_type"`
	Requirements []estimate.Requirement `json:"requirements,omitempty"`
}

func (req projectRequest) params() estimate.ProjectParameters {
	pt, err := estimate.ParseProjectType(req.ProjectType)
	if err != nil {
		// Validate reports it together with the other fields.
		pt = estimate.ProjectType(req.ProjectType)
	}
	return estimate.ProjectParameters{Area: req.Area, Floors: req.Floors, ProjectType: pt}
}

type includeRequest struct {
	RequirementID string `json:"requirement_id"`
	Included      *bool  `json:"included"`
}

type quantityRequest struct {
	RequirementID string   `json:"requirement_id"`
	Quantity      *float64 `json:"quantity"`
}

type estimateResponse struct {
	SessionID string          `json:"session_id"`
	Result    estimate.Result `json:"result"`
}

type selectionResponse struct {
	SessionID string                    `json:"session_id"`
	Materials []estimate.PricedMaterial `json:"materials"`
	Total     decimal.Decimal           `json:"total"`
}

func (s *server) handleEstimateCreate(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	state, err := s.submit(r.Context(), estimate.State{}, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.sessions.Create(r.Context(), state)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.log.Info("estimate created",
		zap.String("session_id", id),
		zap.String("project_type", string(state.Params.ProjectType)),
		zap.Float64("total_area", state.Params.TotalArea()),
	)
	writeJSON(w, http.StatusCreated, estimateResponse{SessionID: id, Result: estimate.Evaluate(state)})
}

func (s *server) handleEstimateGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, estimateResponse{SessionID: id, Result: estimate.Evaluate(state)})
}

func (s *server) handleEstimateDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleEstimateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	s.update(w, r, estimate.SubmitProject{}.Kind(), func(ctx context.Context, prev estimate.State) (estimate.State, error) {
		return s.submit(ctx, prev, req)
	})
}

func (s *server) handleEstimateInclude(w http.ResponseWriter, r *http.Request) {
	var req includeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Included == nil {
		s.writeError(w, r, &estimate.ValidationError{Field: "included", Message: "is required"})
		return
	}

	s.update(w, r, estimate.SetIncluded{}.Kind(), func(_ context.Context, prev estimate.State) (estimate.State, error) {
		return s.mutate(prev, estimate.SetIncluded{RequirementID: req.RequirementID, Included: *req.Included})
	})
}

func (s *server) handleEstimateQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Quantity == nil {
		s.writeError(w, r, &estimate.ValidationError{Field: "quantity", Message: "is required"})
		return
	}

	s.update(w, r, estimate.SetQuantity{}.Kind(), func(_ context.Context, prev estimate.State) (estimate.State, error) {
		return s.mutate(prev, estimate.SetQuantity{RequirementID: req.RequirementID, Quantity: *req.Quantity})
	})
}

func (s *server) handleEstimateSelection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	selected := estimate.SelectedMaterials(state)
	if len(selected) == 0 {
		s.writeError(w, r, estimate.ErrNothingSelected)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{
		SessionID: id,
		Materials: selected,
		Total:     estimate.Total(selected),
	})
}

// update loads the session, applies fn and stores the result. A failed
// mutation leaves the stored state untouched.
func (s *server) update(w http.ResponseWriter, r *http.Request, kind string, fn func(context.Context, estimate.State) (estimate.State, error)) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	prev, err := s.sessions.Get(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	next, err := fn(ctx, prev)
	if err != nil {
		s.log.Info("estimate change rejected", zap.String("session_id", id), zap.String("kind", kind), zap.Error(err))
		s.writeError(w, r, err)
		return
	}

	if err := s.sessions.Put(ctx, id, next); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("estimate updated", zap.String("session_id", id), zap.String("kind", kind))
	writeJSON(w, http.StatusOK, estimateResponse{SessionID: id, Result: estimate.Evaluate(next)})
}

func (s *server) submit(ctx context.Context, prev estimate.State, req projectRequest) (estimate.State, error) {
	next, err := s.mutate(prev, estimate.SubmitProject{
		Params:       req.params(),
		Requirements: req.Requirements,
		Catalog:      s.loadCatalog(ctx),
	})
	if err != nil {
		return prev, err
	}

	metrics.EstimatesTotal.WithLabelValues(string(next.Params.ProjectType)).Inc()
	for i, e := range next.Entries {
		if e.Synthetic() {
			metrics.CatalogFallbacksTotal.WithLabelValues(string(next.Requirements[i].MaterialKey)).Inc()
		}
	}
	return next, nil
}

func (s *server) mutate(prev estimate.State, m estimate.Mutation) (estimate.State, error) {
	next, err := estimate.Apply(prev, m)

	outcome := "ok"
	if err != nil {
		outcome = "rejected"
		if _, ok := estimate.Fields(err); !ok && !errors.Is(err, estimate.ErrInvalidQuantity) && !errors.Is(err, estimate.ErrUnknownRequirement) {
			outcome = "error"
		}
	}
	metrics.MutationsTotal.WithLabelValues(m.Kind(), outcome).Inc()
	return next, err
}

// loadCatalog never fails: when the catalog cannot be read every line is
// priced from the market-rate defaults.
func (s *server) loadCatalog(ctx context.Context) []catalog.Entry {
	entries, err := s.source.List(ctx)
	if err != nil {
		s.log.Warn("catalog unavailable, pricing from market rates", zap.Error(err))
		return nil
	}
	return entries
}
