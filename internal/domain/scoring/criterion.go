package scoring

import (
	"fmt"
	"math"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/evalerr"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/rubric"
)

// EvaluateCriterion converts one judge input into the obtained score for c,
// in the units r aggregates: weight-scaled under weighted_sum, raw under
// arithmetic_mean. It has no side effects.
func EvaluateCriterion(r rubric.Rubric, c rubric.Criterion, in Input) (model.CriterionScore, error) {
	const op = "scoring.evaluate_criterion"
	out := model.CriterionScore{CriterionID: c.ID, Weight: c.Weight}

	if r.ScaleType.Discrete() {
		if in.Kind != KindDiscreteLevel {
			return model.CriterionScore{}, evalerr.Validation(op,
				fmt.Errorf("%w: %s expects a level, got %s", evalerr.ErrInputMismatch, r.ScaleType, in.Kind), c.ID)
		}
		if in.Value != math.Trunc(in.Value) {
			return model.CriterionScore{}, evalerr.Validation(op,
				fmt.Errorf("%w: %v", evalerr.ErrUnknownLevel, in.Value), c.ID)
		}
		level, ok := c.Level(int(in.Value))
		if !ok {
			return model.CriterionScore{}, evalerr.Validation(op,
				fmt.Errorf("%w: %d", evalerr.ErrUnknownLevel, int(in.Value)), c.ID)
		}
		if r.ScaleType == rubric.DiscreteLevelsWithDescription && level.Description == "" {
			return model.CriterionScore{}, evalerr.Validation(op,
				fmt.Errorf("%w: level %d has no description", evalerr.ErrInvalidRubric, level.BaseValue), c.ID)
		}
		out.Obtained = float64(level.BaseValue) * c.Weight / rubric.TotalWeight
		out.LevelDescription = level.Description
		return out, nil
	}

	if in.Kind != KindContinuous {
		return model.CriterionScore{}, evalerr.Validation(op,
			fmt.Errorf("%w: %s expects a value, got %s", evalerr.ErrInputMismatch, r.ScaleType, in.Kind), c.ID)
	}
	if math.IsNaN(in.Value) || in.Value < rubric.MinScore || in.Value > rubric.MaxScore {
		return model.CriterionScore{}, evalerr.Validation(op,
			fmt.Errorf("%w: %v not in [%g,%g]", evalerr.ErrOutOfRange, in.Value, rubric.MinScore, rubric.MaxScore), c.ID)
	}
	switch r.AggregationMode {
	case rubric.WeightedSum:
		out.Obtained = in.Value * c.Weight / rubric.TotalWeight
	default:
		out.Obtained = in.Value
	}
	return out, nil
}
