package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/buildest/internal/catalog"
)

type catalogListResponse struct {
	Entries []catalog.Entry `json:"entries"`
}

type activeRequest struct {
	Active *bool `json:"active"`
}

func (s *server) handleCatalogList(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))

	var (
		entries []catalog.Entry
		err     error
	)
	if all {
		entries, err = s.catalog.ListAll(r.Context())
	} else {
		entries, err = s.catalog.List(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogListResponse{Entries: entries})
}

func (s *server) handleCatalogCreate(w http.ResponseWriter, r *http.Request) {
	entry, err := catalog.ParseEntry(readBody(w, r))
	if err != nil {
		s.writeError(w, r, invalidEntry(err))
		return
	}

	created, err := s.catalog.Create(r.Context(), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("catalog entry created", zap.String("id", created.ID), zap.String("category", string(created.Category)))
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleCatalogUpdate(w http.ResponseWriter, r *http.Request) {
	entry, err := catalog.ParseEntry(readBody(w, r))
	if err != nil {
		s.writeError(w, r, invalidEntry(err))
		return
	}
	entry.ID = chi.URLParam(r, "id")

	if err := s.catalog.Update(r.Context(), entry); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("catalog entry updated", zap.String("id", entry.ID))
	writeJSON(w, http.StatusOK, entry)
}

func (s *server) handleCatalogSetActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Active == nil {
		s.writeError(w, r, invalidEntry(errors.New("active is required")))
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.catalog.SetActive(r.Context(), id, *req.Active); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *server) handleCatalogImport(w http.ResponseWriter, r *http.Request) {
	entries, err := catalog.ParseDocument(readBody(w, r))
	if err != nil {
		s.writeError(w, r, invalidEntry(err))
		return
	}

	created, err := s.catalog.Import(r.Context(), entries)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("catalog imported", zap.Int("entries", len(created)))
	writeJSON(w, http.StatusCreated, catalogListResponse{Entries: created})
}

// invalidEntry marks a parse failure as a caller error.
func invalidEntry(err error) error {
	if errors.Is(err, catalog.ErrInvalidEntry) || errors.Is(err, catalog.ErrDuplicateID) {
		return err
	}
	return fmt.Errorf("%w: %w", catalog.ErrInvalidEntry, err)
}
