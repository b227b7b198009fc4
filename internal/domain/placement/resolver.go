// Package placement selects the projects competing in a scope, ranks them and
// maps places to concrete projects and rosters for certificate issuance.
package placement

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/evalerr"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/ranking"
)

const defaultConcurrency = 8

// ProjectLister returns the projects of an organizational unit.
type ProjectLister interface {
	ProjectsBySection(ctx context.Context, sectionID string) ([]model.Project, error)
	ProjectsByLevel(ctx context.Context, levelID string) ([]model.Project, error)
}

// ScoreSource computes a fresh ProjectScore for a project.
type ScoreSource interface {
	Score(ctx context.Context, projectID string) (model.ProjectScore, error)
}

// Placement is a resolved place with the project that earned it.
type Placement struct {
	Entry   model.RankedEntry `json:"entry"`
	Project model.Project     `json:"project"`
	Roster  []model.Student   `json:"roster"`
}

// Award is the hand-off tuple for the certificate renderer.
type Award struct {
	Place             int             `json:"place"`
	ProjectID         string          `json:"project_id"`
	ProjectName       string          `json:"project_name"`
	Roster            []model.Student `json:"roster"`
	ScopeLabel        string          `json:"scope_label"`
	ConsolidatedScore float64         `json:"consolidated_score"`
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithConcurrency bounds how many project scores are computed at once.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// Resolver ranks scopes and resolves placements.
type Resolver struct {
	projects    ProjectLister
	scores      ScoreSource
	concurrency int
}

// NewResolver creates a Resolver over the given collaborators.
func NewResolver(projects ProjectLister, scores ScoreSource, opts ...Option) *Resolver {
	r := &Resolver{projects: projects, scores: scores, concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Members returns the projects competing in scope. For specialty scopes every
// project of the level must carry a well-formed code; one malformed code fails
// the whole request instead of silently dropping the project.
func (r *Resolver) Members(ctx context.Context, scope model.Scope) ([]model.Project, error) {
	const op = "placement.members"
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	switch scope.Kind {
	case model.ScopeSection:
		return r.projects.ProjectsBySection(ctx, scope.SectionID)
	case model.ScopeSpecialty:
		all, err := r.projects.ProjectsByLevel(ctx, scope.LevelID)
		if err != nil {
			return nil, err
		}
		members := make([]model.Project, 0, len(all))
		for _, p := range all {
			code, err := ParseCode(p.Code)
			if err != nil {
				return nil, evalerr.NotFound(op, fmt.Errorf("project %s: %w", p.ID, evalerr.ErrMalformedCode), p.ID)
			}
			if code.Specialty == scope.SpecialtyID {
				members = append(members, p)
			}
		}
		return members, nil
	default:
		return nil, evalerr.Validation(op, evalerr.ErrInvalidScope)
	}
}

// Candidates scores every member of scope. Scores are computed concurrently;
// each is an independent read, so the first failure cancels the rest.
func (r *Resolver) Candidates(ctx context.Context, scope model.Scope) ([]ranking.Candidate, error) {
	members, err := r.Members(ctx, scope)
	if err != nil {
		return nil, err
	}

	out := make([]ranking.Candidate, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, p := range members {
		g.Go(func() error {
			s, err := r.scores.Score(gctx, p.ID)
			if err != nil {
				return err
			}
			out[i] = ranking.Candidate{Project: p, Score: s}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Rank returns the ordered placements of scope, truncated to topN when
// positive.
func (r *Resolver) Rank(ctx context.Context, scope model.Scope, topN int) ([]model.RankedEntry, error) {
	cands, err := r.Candidates(ctx, scope)
	if err != nil {
		return nil, err
	}
	return ranking.Rank(cands, topN), nil
}

// Resolve returns the project holding place in scope.
func (r *Resolver) Resolve(ctx context.Context, scope model.Scope, place int) (Placement, error) {
	const op = "placement.resolve"
	if place < 1 {
		return Placement{}, evalerr.Validation(op, fmt.Errorf("%w: place must be >= 1, got %d", evalerr.ErrOutOfRange, place))
	}

	cands, err := r.Candidates(ctx, scope)
	if err != nil {
		return Placement{}, err
	}
	entries := ranking.Rank(cands, place)
	if len(entries) < place {
		return Placement{}, evalerr.NotFound(op,
			fmt.Errorf("%w: place %d requested, %d evaluated projects in %s", evalerr.ErrPlaceUnavailable, place, len(entries), scope.Label()))
	}

	entry := entries[place-1]
	project := projectByID(cands, entry.ProjectID)
	if len(project.Roster) == 0 {
		return Placement{}, evalerr.New(op, evalerr.ErrDataIntegrity, evalerr.ErrEmptyRoster, project.ID)
	}
	return Placement{Entry: entry, Project: project, Roster: project.Roster}, nil
}

// Awards resolves every place up to topN for the certificate renderer. A
// placed project without students fails the whole batch.
func (r *Resolver) Awards(ctx context.Context, scope model.Scope, topN int) ([]Award, error) {
	const op = "placement.awards"
	cands, err := r.Candidates(ctx, scope)
	if err != nil {
		return nil, err
	}

	entries := ranking.Rank(cands, topN)
	awards := make([]Award, 0, len(entries))
	label := scope.Label()
	for _, e := range entries {
		p := projectByID(cands, e.ProjectID)
		if len(p.Roster) == 0 {
			return nil, evalerr.New(op, evalerr.ErrDataIntegrity, evalerr.ErrEmptyRoster, p.ID)
		}
		awards = append(awards, Award{
			Place:             e.Place,
			ProjectID:         p.ID,
			ProjectName:       p.Name,
			Roster:            p.Roster,
			ScopeLabel:        label,
			ConsolidatedScore: e.ConsolidatedScore,
		})
	}
	return awards, nil
}

func projectByID(cands []ranking.Candidate, id string) model.Project {
	for _, c := range cands {
		if c.Project.ID == id {
			return c.Project
		}
	}
	return model.Project{}
}
