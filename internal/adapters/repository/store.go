// Package repository provides the stores the engine reads rubrics, projects
// and evaluation records from.
package repository

import (
	"context"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/rubric"
)

// RubricStore provides rubric definitions.
type RubricStore interface {
	// Rubric returns ErrNotFound if the rubric is unknown.
	Rubric(ctx context.Context, id string) (rubric.Rubric, error)
	PutRubric(ctx context.Context, r rubric.Rubric) error
}

// ProjectStore provides project records and their rosters.
type ProjectStore interface {
	// Project returns ErrNotFound if the project is unknown.
	Project(ctx context.Context, id string) (model.Project, error)
	ProjectsBySection(ctx context.Context, sectionID string) ([]model.Project, error)
	ProjectsByLevel(ctx context.Context, levelID string) ([]model.Project, error)
	PutProject(ctx context.Context, p model.Project) error
	CountProjects(ctx context.Context) (int, error)
}

// EvaluationStore persists evaluation records. Inserts are atomic per record
// and visible to every subsequent read.
type EvaluationStore interface {
	// InsertEvaluation stores rec unless a record with the same submission id
	// exists, in which case that record is returned with created == false.
	InsertEvaluation(ctx context.Context, rec model.EvaluationRecord) (stored model.EvaluationRecord, created bool, err error)
	// EvaluationBySubmission returns ErrNotFound if no record carries the
	// submission id.
	EvaluationBySubmission(ctx context.Context, submissionID string) (model.EvaluationRecord, error)
	EvaluationsByProject(ctx context.Context, projectID string) ([]model.EvaluationRecord, error)
	CountEvaluations(ctx context.Context) (int, error)
}

// Store bundles every store the engine needs.
type Store interface {
	RubricStore
	ProjectStore
	EvaluationStore
	Close() error
}
