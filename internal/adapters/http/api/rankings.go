// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	service "github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/app"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/placement"
)

// limitAll asks for the full ordering of a scope, ignoring the limit cap.
const limitAll = "all"

// RankingDependencies defines the interface for ranking and placement reads.
type RankingDependencies interface {
	RankScope(ctx context.Context, scope model.Scope, topN int) ([]model.RankedEntry, error)
	ResolvePlacement(ctx context.Context, scope model.Scope, place int) (placement.Placement, error)
	Awards(ctx context.Context, scope model.Scope, topN int) ([]placement.Award, error)
}

// RankingsHandler handles ranking, placement and award requests.
type RankingsHandler struct {
	deps     RankingDependencies
	maxLimit int
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingDependencies, maxLimit int) *RankingsHandler {
	return &RankingsHandler{deps: deps, maxLimit: maxLimit}
}

type rankingResponse struct {
	Scope   string              `json:"scope"`
	Entries []model.RankedEntry `json:"entries"`
}

type awardsResponse struct {
	Scope  string            `json:"scope"`
	Awards []placement.Award `json:"awards"`
}

// HandleGetRankings handles GET /rankings?section=S|level=L&specialty=X[&limit=N|all].
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rankings"
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	scope, limit, err := h.scopeAndLimit(r.URL.Query())
	if err != nil {
		writeDomainError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	entries, err := h.deps.RankScope(r.Context(), scope, limit)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rankingResponse{Scope: scope.Label(), Entries: entries})
}

// HandleGetPlacement handles GET /placements?<scope>&place=N.
func (h *RankingsHandler) HandleGetPlacement(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_placement"
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	scope, err := parseScope(q)
	if err != nil {
		writeDomainError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	place, err := strconv.Atoi(q.Get("place"))
	if err != nil {
		writeDomainError(w, WrapKind(op, ErrBadRequest, errors.New("place must be an integer")))
		return
	}
	p, err := h.deps.ResolvePlacement(r.Context(), scope, place)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGetAwards handles GET /awards?<scope>[&limit=N|all].
func (h *RankingsHandler) HandleGetAwards(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_awards"
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	scope, limit, err := h.scopeAndLimit(r.URL.Query())
	if err != nil {
		writeDomainError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	awards, err := h.deps.Awards(r.Context(), scope, limit)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, awardsResponse{Scope: scope.Label(), Awards: awards})
}

func (h *RankingsHandler) scopeAndLimit(q url.Values) (model.Scope, int, error) {
	scope, err := parseScope(q)
	if err != nil {
		return model.Scope{}, 0, err
	}
	raw := q.Get("limit")
	switch raw {
	case "":
		return scope, 0, nil
	case limitAll:
		return scope, service.AllPlaces, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return model.Scope{}, 0, errors.New("limit must be a positive integer")
	}
	if n > h.maxLimit {
		return model.Scope{}, 0, fmt.Errorf("%w: limit %d above %d", ErrLimitExceeded, n, h.maxLimit)
	}
	return scope, n, nil
}

// parseScope reads either section=S or level=L&specialty=X.
func parseScope(q url.Values) (model.Scope, error) {
	section, level, specialty := q.Get("section"), q.Get("level"), q.Get("specialty")
	switch {
	case section != "" && (level != "" || specialty != ""):
		return model.Scope{}, errors.New("section cannot be combined with level or specialty")
	case section != "":
		return model.SectionScope(section), nil
	case level != "" || specialty != "":
		return model.SpecialtyScope(level, specialty), nil
	default:
		return model.Scope{}, errors.New("section or level and specialty are required")
	}
}
