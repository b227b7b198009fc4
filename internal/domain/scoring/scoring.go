// Package scoring turns judge inputs into evaluation records: it scores each
// criterion and aggregates the criterion scores with the rubric's mode.
package scoring

import (
	"fmt"
	"sort"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/evalerr"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/rubric"
)

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithWeightTolerance sets the accepted deviation of a weighted rubric's
// weight sum from 100.
func WithWeightTolerance(tolerance float64) Option {
	return func(b *Builder) {
		if tolerance >= 0 {
			b.weightTolerance = tolerance
		}
	}
}

// Result is the unsaved outcome of one judge's evaluation.
type Result struct {
	Scores          []model.CriterionScore
	FinalScore      float64
	AggregationMode rubric.AggregationMode
}

// Record stamps the result into an EvaluationRecord. Identity, timestamps
// and references are filled by the caller.
func (r Result) Record(projectID, rubricID string, track model.Track) model.EvaluationRecord {
	scores := make([]model.CriterionScore, len(r.Scores))
	copy(scores, r.Scores)
	return model.EvaluationRecord{
		ProjectID:       projectID,
		RubricID:        rubricID,
		Track:           track,
		Scores:          scores,
		FinalScore:      r.FinalScore,
		AggregationMode: r.AggregationMode,
	}
}

// RecordBuilder computes a judge's final score for one rubric.
type RecordBuilder interface {
	Build(r rubric.Rubric, inputs []CriterionInput) (Result, error)
}

// Builder implements RecordBuilder.
type Builder struct {
	weightTolerance float64
}

// NewBuilder creates a Builder with configuration options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{weightTolerance: rubric.DefaultWeightTolerance}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build scores every criterion of r and aggregates the results. Exactly one
// input per criterion is required; scores come back in rubric order.
func (b *Builder) Build(r rubric.Rubric, inputs []CriterionInput) (Result, error) {
	const op = "scoring.build_record"

	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	if err := r.CheckWeights(b.weightTolerance); err != nil {
		return Result{}, err
	}

	byID := make(map[string]Input, len(inputs))
	var unknown, dup []string
	for _, in := range inputs {
		if _, ok := r.Criterion(in.CriterionID); !ok {
			unknown = append(unknown, in.CriterionID)
			continue
		}
		if _, ok := byID[in.CriterionID]; ok {
			dup = append(dup, in.CriterionID)
			continue
		}
		byID[in.CriterionID] = in.Input
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Result{}, evalerr.Validation(op, evalerr.ErrUnknownCriterion, unknown...)
	}
	if len(dup) > 0 {
		sort.Strings(dup)
		return Result{}, evalerr.Validation(op, evalerr.ErrDuplicateInput, dup...)
	}

	var missing []string
	for _, c := range r.Criteria {
		if _, ok := byID[c.ID]; !ok {
			missing = append(missing, c.ID)
		}
	}
	if len(missing) > 0 {
		return Result{}, evalerr.Validation(op, evalerr.ErrMissingCriteria, missing...)
	}

	scores := make([]model.CriterionScore, 0, len(r.Criteria))
	sum := 0.0
	for _, c := range r.Criteria {
		cs, err := EvaluateCriterion(r, c, byID[c.ID])
		if err != nil {
			return Result{}, err
		}
		scores = append(scores, cs)
		sum += cs.Obtained
	}

	var final float64
	switch r.AggregationMode {
	case rubric.WeightedSum:
		final = sum
	case rubric.ArithmeticMean:
		final = sum / float64(len(scores))
	default:
		// Validate already rejected other modes.
		return Result{}, fmt.Errorf("%s: unreachable aggregation mode %q", op, r.AggregationMode)
	}

	return Result{Scores: scores, FinalScore: final, AggregationMode: r.AggregationMode}, nil
}
