package scoring_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/evalerr"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/rubric"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func continuousRubric(mode rubric.AggregationMode, weights ...float64) rubric.Rubric {
	r := rubric.Rubric{ID: "r-cont", Name: "Continuous", AggregationMode: mode, ScaleType: rubric.Continuous}
	for i, w := range weights {
		r.Criteria = append(r.Criteria, rubric.Criterion{ID: string(rune('a' + i)), Name: "criterion", Weight: w})
	}
	return r
}

func levels(descr bool) []rubric.Level {
	out := make([]rubric.Level, 0, 5)
	for _, v := range []int{2, 4, 6, 8, 10} {
		l := rubric.Level{BaseValue: v}
		if descr {
			l.Description = "level description"
		}
		out = append(out, l)
	}
	return out
}

func TestBuilder_WeightedSum(t *testing.T) {
	Convey("Given a weighted-sum continuous rubric with weights 60/40", t, func() {
		r := continuousRubric(rubric.WeightedSum, 60, 40)
		b := scoring.NewBuilder()

		Convey("When a judge scores 8 and 5", func() {
			res, err := b.Build(r, []scoring.CriterionInput{
				{CriterionID: "a", Input: scoring.Continuous(8)},
				{CriterionID: "b", Input: scoring.Continuous(5)},
			})

			Convey("Then the final score is 8*0.6 + 5*0.4", func() {
				So(err, ShouldBeNil)
				So(res.FinalScore, ShouldAlmostEqual, 6.8, 1e-9)
				So(res.AggregationMode, ShouldEqual, rubric.WeightedSum)
			})

			Convey("And each criterion score is already weight-scaled", func() {
				So(res.Scores, ShouldHaveLength, 2)
				So(res.Scores[0].Obtained, ShouldAlmostEqual, 4.8, 1e-9)
				So(res.Scores[1].Obtained, ShouldAlmostEqual, 2.0, 1e-9)
				So(res.Scores[0].Weight, ShouldEqual, 60)
			})
		})

		Convey("When inputs arrive out of rubric order", func() {
			res, err := b.Build(r, []scoring.CriterionInput{
				{CriterionID: "b", Input: scoring.Continuous(5)},
				{CriterionID: "a", Input: scoring.Continuous(8)},
			})

			Convey("Then scores are returned in rubric order", func() {
				So(err, ShouldBeNil)
				So(res.Scores[0].CriterionID, ShouldEqual, "a")
				So(res.Scores[1].CriterionID, ShouldEqual, "b")
			})
		})

		Convey("When the weights no longer add up to 100", func() {
			r.Criteria[1].Weight = 30
			_, err := b.Build(r, []scoring.CriterionInput{
				{CriterionID: "a", Input: scoring.Continuous(8)},
				{CriterionID: "b", Input: scoring.Continuous(5)},
			})

			Convey("Then the submission is rejected", func() {
				So(errors.Is(err, evalerr.ErrValidation), ShouldBeTrue)
				So(errors.Is(err, evalerr.ErrWeightSum), ShouldBeTrue)
			})
		})

		Convey("When the weight sum is within tolerance", func() {
			r.Criteria[1].Weight = 40.005
			_, err := b.Build(r, []scoring.CriterionInput{
				{CriterionID: "a", Input: scoring.Continuous(8)},
				{CriterionID: "b", Input: scoring.Continuous(5)},
			})

			Convey("Then it is accepted", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When a tighter tolerance is configured", func() {
			r.Criteria[1].Weight = 40.005
			_, err := scoring.NewBuilder(scoring.WithWeightTolerance(0.001)).Build(r, []scoring.CriterionInput{
				{CriterionID: "a", Input: scoring.Continuous(8)},
				{CriterionID: "b", Input: scoring.Continuous(5)},
			})

			Convey("Then the same rubric is rejected", func() {
				So(errors.Is(err, evalerr.ErrWeightSum), ShouldBeTrue)
			})
		})
	})
}

func TestBuilder_ArithmeticMean(t *testing.T) {
	Convey("Given an arithmetic-mean rubric with 3 criteria", t, func() {
		r := continuousRubric(rubric.ArithmeticMean, 0, 0, 0)
		b := scoring.NewBuilder()

		Convey("When a judge scores 10, 6 and 8", func() {
			res, err := b.Build(r, []scoring.CriterionInput{
				{CriterionID: "a", Input: scoring.Continuous(10)},
				{CriterionID: "b", Input: scoring.Continuous(6)},
				{CriterionID: "c", Input: scoring.Continuous(8)},
			})

			Convey("Then the final score is the plain mean", func() {
				So(err, ShouldBeNil)
				So(res.FinalScore, ShouldAlmostEqual, 8.0, 1e-9)
			})

			Convey("And raw values are stored unchanged", func() {
				So(res.Scores[0].Obtained, ShouldEqual, 10)
				So(res.Scores[1].Obtained, ShouldEqual, 6)
			})
		})

		Convey("When weights do not sum to 100", func() {
			r.Criteria[0].Weight = 12

			Convey("Then nothing is enforced for the mean", func() {
				_, err := b.Build(r, []scoring.CriterionInput{
					{CriterionID: "a", Input: scoring.Continuous(1)},
					{CriterionID: "b", Input: scoring.Continuous(2)},
					{CriterionID: "c", Input: scoring.Continuous(3)},
				})
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestBuilder_Discrete(t *testing.T) {
	Convey("Given a discrete-level rubric weighted 50/30/20", t, func() {
		r := rubric.Rubric{
			ID:              "r-disc",
			AggregationMode: rubric.WeightedSum,
			ScaleType:       rubric.DiscreteLevels,
			Criteria: []rubric.Criterion{
				{ID: "a", Weight: 50, Levels: levels(false)},
				{ID: "b", Weight: 30, Levels: levels(false)},
				{ID: "c", Weight: 20, Levels: []rubric.Level{{BaseValue: 2}, {BaseValue: 10}}},
			},
		}
		b := scoring.NewBuilder()

		Convey("When levels 10, 6 and 2 are selected", func() {
			res, err := b.Build(r, []scoring.CriterionInput{
				{CriterionID: "a", Input: scoring.DiscreteLevel(10)},
				{CriterionID: "b", Input: scoring.DiscreteLevel(6)},
				{CriterionID: "c", Input: scoring.DiscreteLevel(2)},
			})

			Convey("Then the final score is the weighted level sum", func() {
				So(err, ShouldBeNil)
				So(res.FinalScore, ShouldAlmostEqual, 5+1.8+0.4, 1e-9)
			})
		})

		Convey("When a level the criterion does not offer is selected", func() {
			_, err := b.Build(r, []scoring.CriterionInput{
				{CriterionID: "a", Input: scoring.DiscreteLevel(10)},
				{CriterionID: "b", Input: scoring.DiscreteLevel(6)},
				{CriterionID: "c", Input: scoring.DiscreteLevel(6)},
			})

			Convey("Then it is rejected naming the criterion", func() {
				So(errors.Is(err, evalerr.ErrUnknownLevel), ShouldBeTrue)
				So(evalerr.FieldsOf(err), ShouldResemble, []string{"c"})
			})
		})

		Convey("When a continuous value is sent to a discrete rubric", func() {
			_, err := b.Build(r, []scoring.CriterionInput{
				{CriterionID: "a", Input: scoring.Continuous(10)},
				{CriterionID: "b", Input: scoring.DiscreteLevel(6)},
				{CriterionID: "c", Input: scoring.DiscreteLevel(2)},
			})

			Convey("Then the input variant is rejected", func() {
				So(errors.Is(err, evalerr.ErrInputMismatch), ShouldBeTrue)
			})
		})
	})

	Convey("Given a discrete rubric with descriptions", t, func() {
		r := rubric.Rubric{
			ID:              "r-desc",
			AggregationMode: rubric.WeightedSum,
			ScaleType:       rubric.DiscreteLevelsWithDescription,
			Criteria:        []rubric.Criterion{{ID: "a", Weight: 100, Levels: levels(true)}},
		}

		Convey("When a described level is selected", func() {
			res, err := scoring.NewBuilder().Build(r, []scoring.CriterionInput{{CriterionID: "a", Input: scoring.DiscreteLevel(8)}})

			Convey("Then the rationale travels with the score", func() {
				So(err, ShouldBeNil)
				So(res.FinalScore, ShouldAlmostEqual, 8.0, 1e-9)
				So(res.Scores[0].LevelDescription, ShouldEqual, "level description")
			})
		})

		Convey("When the selected level has no description", func() {
			r.Criteria[0].Levels[3].Description = ""
			_, err := scoring.NewBuilder().Build(r, []scoring.CriterionInput{{CriterionID: "a", Input: scoring.DiscreteLevel(8)}})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, evalerr.ErrValidation), ShouldBeTrue)
			})
		})
	})
}

func TestBuilder_InputValidation(t *testing.T) {
	Convey("Given a weighted rubric with three criteria", t, func() {
		r := continuousRubric(rubric.WeightedSum, 50, 25, 25)
		b := scoring.NewBuilder()

		Convey("When two criteria are missing", func() {
			_, err := b.Build(r, []scoring.CriterionInput{{CriterionID: "b", Input: scoring.Continuous(5)}})

			Convey("Then the error lists the missing criteria", func() {
				So(errors.Is(err, evalerr.ErrMissingCriteria), ShouldBeTrue)
				So(evalerr.FieldsOf(err), ShouldResemble, []string{"a", "c"})
			})
		})

		Convey("When a value is above 10", func() {
			_, err := b.Build(r, []scoring.CriterionInput{
				{CriterionID: "a", Input: scoring.Continuous(10.5)},
				{CriterionID: "b", Input: scoring.Continuous(5)},
				{CriterionID: "c", Input: scoring.Continuous(5)},
			})

			Convey("Then it is out of range", func() {
				So(errors.Is(err, evalerr.ErrOutOfRange), ShouldBeTrue)
			})
		})

		Convey("When a value is negative", func() {
			_, err := b.Build(r, []scoring.CriterionInput{
				{CriterionID: "a", Input: scoring.Continuous(-1)},
				{CriterionID: "b", Input: scoring.Continuous(5)},
				{CriterionID: "c", Input: scoring.Continuous(5)},
			})

			Convey("Then it is out of range", func() {
				So(errors.Is(err, evalerr.ErrOutOfRange), ShouldBeTrue)
			})
		})

		Convey("When a criterion is graded twice", func() {
			_, err := b.Build(r, []scoring.CriterionInput{
				{CriterionID: "a", Input: scoring.Continuous(1)},
				{CriterionID: "a", Input: scoring.Continuous(2)},
				{CriterionID: "b", Input: scoring.Continuous(5)},
				{CriterionID: "c", Input: scoring.Continuous(5)},
			})

			Convey("Then it is a duplicate", func() {
				So(errors.Is(err, evalerr.ErrDuplicateInput), ShouldBeTrue)
			})
		})

		Convey("When an unknown criterion is graded", func() {
			_, err := b.Build(r, []scoring.CriterionInput{
				{CriterionID: "z", Input: scoring.Continuous(1)},
			})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, evalerr.ErrUnknownCriterion), ShouldBeTrue)
				So(evalerr.FieldsOf(err), ShouldResemble, []string{"z"})
			})
		})

		Convey("When the rubric has no criteria", func() {
			_, err := b.Build(rubric.Rubric{ID: "empty", AggregationMode: rubric.ArithmeticMean, ScaleType: rubric.Continuous}, nil)

			Convey("Then it is an invalid rubric", func() {
				So(errors.Is(err, evalerr.ErrInvalidRubric), ShouldBeTrue)
			})
		})
	})
}

// Any valid input set on a weights-to-100 rubric must match the independently
// computed weighted sum.
func TestBuilder_WeightedSumIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic seed for reproducible testing
	b := scoring.NewBuilder()

	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(6)
		weights := make([]float64, n)
		remaining := 100.0
		for i := 0; i < n-1; i++ {
			weights[i] = float64(rng.Intn(int(remaining/2) + 1))
			remaining -= weights[i]
		}
		weights[n-1] = remaining

		r := continuousRubric(rubric.WeightedSum, weights...)
		inputs := make([]scoring.CriterionInput, n)
		want := 0.0
		for i, c := range r.Criteria {
			v := rng.Float64() * 10
			inputs[i] = scoring.CriterionInput{CriterionID: c.ID, Input: scoring.Continuous(v)}
			want += v * c.Weight / 100
		}

		res, err := b.Build(r, inputs)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", iter, err)
		}
		if d := res.FinalScore - want; d > 1e-6 || d < -1e-6 {
			t.Fatalf("iteration %d: final %v, want %v", iter, res.FinalScore, want)
		}
		if res.FinalScore < 0 || res.FinalScore > 10+1e-9 {
			t.Fatalf("iteration %d: final %v out of [0,10]", iter, res.FinalScore)
		}
	}
}
