package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/spacecache/spacecache/internal/store"
)

// handleStatus reports document counts and sync freshness.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Status(r.Context())
	if err != nil {
		s.internalError(w, "status", err)
		return
	}

	s.writeJSON(w, http.StatusOK, st)
}

// handleGetDocument is a point lookup with optional resolution:
// GET /v1/documents/{id}?resolve=N.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	depth, ok := s.resolveDepth(w, r)
	if !ok {
		return
	}

	doc, err := s.engine.ByIDResolved(r.Context(), id, depth)
	if err != nil {
		s.internalError(w, "get document", err)
		return
	}

	if doc == nil {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}

	s.writeJSON(w, http.StatusOK, doc)
}

// handleListDocuments runs a predicate query built from the remaining
// query parameters: GET /v1/documents?sys.type=Entry&fields.title=Hello.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	depth, ok := s.resolveDepth(w, r)
	if !ok {
		return
	}

	pred := store.Predicate{}

	for key, values := range r.URL.Query() {
		if key == "resolve" || len(values) == 0 {
			continue
		}

		pred[key] = values[0]
	}

	docs, err := s.engine.FindResolved(r.Context(), pred, depth)
	if err != nil {
		s.internalError(w, "list documents", err)
		return
	}

	if docs == nil {
		docs = []*store.Document{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"total": len(docs),
		"items": docs,
	})
}

// resolveDepth parses the resolve query parameter. Absent means 0 (no
// resolution); negative values clamp to 0 and oversized ones are
// rejected.
func (s *Server) resolveDepth(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("resolve")
	if raw == "" {
		return 0, true
	}

	depth, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "resolve must be an integer")
		return 0, false
	}

	if depth > maxResolveDepth {
		s.writeError(w, http.StatusBadRequest, "resolve depth too large")
		return 0, false
	}

	if depth < 0 {
		depth = 0
	}

	return depth, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}
