// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/rubric"
)

// Track identifies who produced an evaluation.
type Track string

const (
	TrackInternal Track = "internal" // institution's own teaching staff
	TrackExternal Track = "external" // outside judges
)

// ParseTrack accepts "internal" or "external" in any case.
func ParseTrack(s string) (Track, error) {
	switch t := Track(strings.ToLower(strings.TrimSpace(s))); t {
	case TrackInternal, TrackExternal:
		return t, nil
	default:
		return "", fmt.Errorf("unknown track %q", s)
	}
}

// CriterionScore is the normalized sub-score a judge gave one criterion.
type CriterionScore struct {
	CriterionID      string  `json:"criterion_id"`
	Weight           float64 `json:"weight"`   // weight at submission time
	Obtained         float64 `json:"obtained"` // already weight-scaled under weighted_sum
	LevelDescription string  `json:"level_description,omitempty"`
}

// EvaluationRecord is one judge's immutable evaluation of one project.
type EvaluationRecord struct {
	ID              string                 `json:"id"`
	SubmissionID    string                 `json:"submission_id"`
	ProjectID       string                 `json:"project_id"`
	RubricID        string                 `json:"rubric_id"`
	Track           Track                  `json:"track"`
	Scores          []CriterionScore       `json:"scores"`
	FinalScore      float64                `json:"final_score"`
	AggregationMode rubric.AggregationMode `json:"aggregation_mode"`
	CreatedAt       time.Time              `json:"created_at"`
}

// ProjectScore is the consolidated view of all evaluations of a project.
// A nil average means the track has no evaluations.
type ProjectScore struct {
	ProjectID            string   `json:"project_id"`
	InternalAverage      *float64 `json:"internal_average"`
	ExternalAverage      *float64 `json:"external_average"`
	InternalCount        int      `json:"internal_count"`
	ExternalCount        int      `json:"external_count"`
	ConsolidatedScore    float64  `json:"consolidated_score"`
	TotalEvaluationCount int      `json:"total_evaluation_count"`
}

// Evaluated reports whether at least one evaluation contributed.
func (s ProjectScore) Evaluated() bool { return s.TotalEvaluationCount > 0 }

// Student is a member of a project team.
type Student struct {
	ID       string `json:"id" koanf:"id"`
	FullName string `json:"full_name" koanf:"full_name"`
}

// Project is the read-only project record owned by the store.
type Project struct {
	ID        string    `json:"id" koanf:"id"`
	Code      string    `json:"code" koanf:"code"`
	Name      string    `json:"name" koanf:"name"`
	LevelID   string    `json:"level_id" koanf:"level_id"`
	SectionID string    `json:"section_id,omitempty" koanf:"section_id"`
	Roster    []Student `json:"roster" koanf:"roster"`
}

// RankedEntry is a project's position inside a scope ranking.
type RankedEntry struct {
	Place             int     `json:"place"`
	ProjectID         string  `json:"project_id"`
	ProjectCode       string  `json:"project_code"`
	ProjectName       string  `json:"project_name"`
	ConsolidatedScore float64 `json:"consolidated_score"`
	EvaluationCount   int     `json:"evaluation_count"`
}
