package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/rubric"
)

// MemoryStore is an in-process Store. All methods are safe for concurrent
// use; returned values never alias internal state.
type MemoryStore struct {
	mu           sync.RWMutex
	rubrics      map[string]rubric.Rubric
	projects     map[string]model.Project
	evaluations  map[string][]model.EvaluationRecord // by project id, insertion order
	bySubmission map[string]model.EvaluationRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rubrics:      make(map[string]rubric.Rubric),
		projects:     make(map[string]model.Project),
		evaluations:  make(map[string][]model.EvaluationRecord),
		bySubmission: make(map[string]model.EvaluationRecord),
	}
}

func (s *MemoryStore) Rubric(_ context.Context, id string) (rubric.Rubric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rubrics[id]
	if !ok {
		return rubric.Rubric{}, fmt.Errorf("rubric %s: %w", id, ErrNotFound)
	}
	return cloneRubric(r), nil
}

func (s *MemoryStore) PutRubric(_ context.Context, r rubric.Rubric) error {
	if r.ID == "" {
		return fmt.Errorf("rubric without id: %w", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rubrics[r.ID] = cloneRubric(r)
	return nil
}

func (s *MemoryStore) Project(_ context.Context, id string) (model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return model.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return cloneProject(p), nil
}

func (s *MemoryStore) ProjectsBySection(_ context.Context, sectionID string) ([]model.Project, error) {
	return s.filterProjects(func(p model.Project) bool { return p.SectionID == sectionID }), nil
}

func (s *MemoryStore) ProjectsByLevel(_ context.Context, levelID string) ([]model.Project, error) {
	return s.filterProjects(func(p model.Project) bool { return p.LevelID == levelID }), nil
}

func (s *MemoryStore) filterProjects(keep func(model.Project) bool) []model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Project, 0)
	for _, p := range s.projects {
		if keep(p) {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) PutProject(_ context.Context, p model.Project) error {
	if p.ID == "" {
		return fmt.Errorf("project without id: %w", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = cloneProject(p)
	return nil
}

func (s *MemoryStore) CountProjects(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects), nil
}

func (s *MemoryStore) InsertEvaluation(_ context.Context, rec model.EvaluationRecord) (model.EvaluationRecord, bool, error) {
	if rec.ID == "" || rec.SubmissionID == "" || rec.ProjectID == "" {
		return model.EvaluationRecord{}, false, fmt.Errorf("evaluation needs id, submission id and project id: %w", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.bySubmission[rec.SubmissionID]; ok {
		return cloneRecord(existing), false, nil
	}
	rec = cloneRecord(rec)
	s.evaluations[rec.ProjectID] = append(s.evaluations[rec.ProjectID], rec)
	s.bySubmission[rec.SubmissionID] = rec
	return cloneRecord(rec), true, nil
}

func (s *MemoryStore) EvaluationBySubmission(_ context.Context, submissionID string) (model.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.bySubmission[submissionID]
	if !ok {
		return model.EvaluationRecord{}, fmt.Errorf("submission %s: %w", submissionID, ErrNotFound)
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) EvaluationsByProject(_ context.Context, projectID string) ([]model.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.evaluations[projectID]
	out := make([]model.EvaluationRecord, len(recs))
	for i, r := range recs {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

func (s *MemoryStore) CountEvaluations(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySubmission), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func cloneRubric(r rubric.Rubric) rubric.Rubric {
	criteria := make([]rubric.Criterion, len(r.Criteria))
	for i, c := range r.Criteria {
		c.Levels = append([]rubric.Level(nil), c.Levels...)
		criteria[i] = c
	}
	r.Criteria = criteria
	return r
}

func cloneProject(p model.Project) model.Project {
	p.Roster = append([]model.Student(nil), p.Roster...)
	return p
}

func cloneRecord(r model.EvaluationRecord) model.EvaluationRecord {
	r.Scores = append([]model.CriterionScore(nil), r.Scores...)
	return r
}
