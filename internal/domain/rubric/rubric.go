// Package rubric models evaluation instruments: ordered criteria with
// weights and a scoring scale.
package rubric

import (
	"fmt"
	"math"
	"strings"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/evalerr"
)

// Scale and weight constants.
const (
	MinScore = 0.0
	MaxScore = 10.0

	// TotalWeight is what criterion weights add up to under WeightedSum.
	TotalWeight = 100.0

	// DefaultWeightTolerance bounds the accepted deviation from TotalWeight.
	DefaultWeightTolerance = 0.01
)

// AggregationMode selects how criterion scores become a final score.
type AggregationMode string

const (
	WeightedSum    AggregationMode = "weighted_sum"
	ArithmeticMean AggregationMode = "arithmetic_mean"
)

// ScaleType selects the kind of input judges give per criterion.
type ScaleType string

const (
	Continuous                    ScaleType = "continuous"
	DiscreteLevels                ScaleType = "discrete_levels"
	DiscreteLevelsWithDescription ScaleType = "discrete_levels_with_description"
)

// Discrete reports whether judges pick from a fixed set of levels.
func (s ScaleType) Discrete() bool {
	return s == DiscreteLevels || s == DiscreteLevelsWithDescription
}

// allowedBaseValues are the only level values a discrete criterion may offer.
var allowedBaseValues = map[int]bool{2: true, 4: true, 6: true, 8: true, 10: true}

// Level is one selectable grade of a discrete criterion.
type Level struct {
	BaseValue   int    `json:"base_value" koanf:"base_value"`
	Description string `json:"description,omitempty" koanf:"description"`
}

// Criterion is one gradable aspect of a rubric.
type Criterion struct {
	ID          string  `json:"id" koanf:"id"`
	Name        string  `json:"name" koanf:"name"`
	Description string  `json:"description,omitempty" koanf:"description"`
	Weight      float64 `json:"weight" koanf:"weight"`
	Levels      []Level `json:"levels,omitempty" koanf:"levels"`
}

// Level returns the level with the given base value.
func (c Criterion) Level(baseValue int) (Level, bool) {
	for _, l := range c.Levels {
		if l.BaseValue == baseValue {
			return l, true
		}
	}
	return Level{}, false
}

// Rubric is a named evaluation instrument.
type Rubric struct {
	ID              string          `json:"id" koanf:"id"`
	Name            string          `json:"name" koanf:"name"`
	AggregationMode AggregationMode `json:"aggregation_mode" koanf:"aggregation_mode"`
	ScaleType       ScaleType       `json:"scale_type" koanf:"scale_type"`
	Criteria        []Criterion     `json:"criteria" koanf:"criteria"`
}

// Criterion looks up a criterion by id.
func (r Rubric) Criterion(id string) (Criterion, bool) {
	for _, c := range r.Criteria {
		if c.ID == id {
			return c, true
		}
	}
	return Criterion{}, false
}

// WeightSum returns the sum of all criterion weights.
func (r Rubric) WeightSum() float64 {
	sum := 0.0
	for _, c := range r.Criteria {
		sum += c.Weight
	}
	return sum
}

// CheckWeights verifies that weights add up to TotalWeight within tolerance.
// Rubrics aggregated by arithmetic mean are not weight-constrained.
func (r Rubric) CheckWeights(tolerance float64) error {
	const op = "rubric.check_weights"
	if r.AggregationMode != WeightedSum {
		return nil
	}
	if tolerance < 0 {
		tolerance = DefaultWeightTolerance
	}
	if sum := r.WeightSum(); math.Abs(sum-TotalWeight) > tolerance {
		return evalerr.Validation(op, fmt.Errorf("%w: got %.4f", evalerr.ErrWeightSum, sum), r.ID)
	}
	return nil
}

// Validate checks the structural rules a rubric must satisfy before it can
// score anything. Weight totals are checked separately by CheckWeights.
func (r Rubric) Validate() error {
	const op = "rubric.validate"
	invalid := func(format string, args ...any) error {
		return evalerr.Validation(op, fmt.Errorf("%w: "+format, append([]any{evalerr.ErrInvalidRubric}, args...)...), r.ID)
	}

	switch r.AggregationMode {
	case WeightedSum, ArithmeticMean:
	default:
		return invalid("unknown aggregation mode %q", r.AggregationMode)
	}
	switch r.ScaleType {
	case Continuous, DiscreteLevels, DiscreteLevelsWithDescription:
	default:
		return invalid("unknown scale type %q", r.ScaleType)
	}
	if r.ScaleType.Discrete() && r.AggregationMode != WeightedSum {
		return invalid("discrete scales require %s", WeightedSum)
	}
	if len(r.Criteria) == 0 {
		return invalid("no criteria")
	}

	seen := make(map[string]bool, len(r.Criteria))
	for _, c := range r.Criteria {
		if strings.TrimSpace(c.ID) == "" {
			return invalid("criterion without id")
		}
		if seen[c.ID] {
			return invalid("duplicate criterion %q", c.ID)
		}
		seen[c.ID] = true
		if c.Weight < 0 {
			return invalid("criterion %q has negative weight", c.ID)
		}
		if !r.ScaleType.Discrete() {
			continue
		}
		if len(c.Levels) == 0 {
			return invalid("criterion %q has no levels", c.ID)
		}
		values := make(map[int]bool, len(c.Levels))
		for _, l := range c.Levels {
			if !allowedBaseValues[l.BaseValue] {
				return invalid("criterion %q level %d not in {2,4,6,8,10}", c.ID, l.BaseValue)
			}
			if values[l.BaseValue] {
				return invalid("criterion %q repeats level %d", c.ID, l.BaseValue)
			}
			values[l.BaseValue] = true
		}
	}
	return nil
}
