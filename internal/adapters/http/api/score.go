// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
)

// ScoreDependencies defines the interface for project score lookups.
type ScoreDependencies interface {
	ProjectScore(ctx context.Context, projectID string) (model.ProjectScore, error)
}

// ScoreHandler handles project score requests.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleGetScore handles GET /projects/{project_id}/score requests.
func (h *ScoreHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_project_score"
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/projects/")
	id, suffix, ok := strings.Cut(rest, "/")
	if !ok || suffix != "score" || id == "" {
		http.NotFound(w, r)
		return
	}
	score, err := h.deps.ProjectScore(r.Context(), id)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, score)
}
