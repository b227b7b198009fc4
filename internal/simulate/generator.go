package simulate

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/adapters/repository"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/rubric"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/pkg/logger"
)

// RubricID is the rubric every simulated judge grades with.
const RubricID = "sim-fair"

// cohortYear is the two-digit year stamped on generated project codes.
const cohortYear = 25

// Specialties cycled through when assigning project codes.
var specialties = []string{"A", "B", "C"}

// Judges favor the middle levels; a handful of projects are strong.
var (
	levelValues  = []int{2, 4, 6, 8, 10}
	levelOdds    = []int{1, 2, 4, 4, 2}
	strongOdds   = []int{0, 1, 2, 4, 5}
	strongChance = 0.2
	unjudgedRate = 0.1
)

// Input mirrors one criterion entry of the submission payload.
type Input struct {
	CriterionID string `json:"criterion_id"`
	Level       int    `json:"level"`
}

// Submission mirrors the POST /evaluations payload.
type Submission struct {
	SubmissionID string  `json:"submission_id"`
	ProjectID    string  `json:"project_id"`
	RubricID     string  `json:"rubric_id"`
	Track        string  `json:"track"`
	Inputs       []Input `json:"inputs"`
}

// Plan is a generated cohort and the evaluations its judges hand in.
// Submissions holds each evaluation once; Resends repeats some of them.
type Plan struct {
	Fixtures    repository.Fixtures
	Submissions []Submission
	Resends     []Submission
}

// Rubric returns the simulation rubric: four criteria on discrete levels
// aggregated as a weighted sum.
func Rubric() rubric.Rubric {
	levels := func() []rubric.Level {
		out := make([]rubric.Level, len(levelValues))
		for i, v := range levelValues {
			out[i] = rubric.Level{BaseValue: v}
		}
		return out
	}
	return rubric.Rubric{
		ID:              RubricID,
		Name:            "Simulated science fair",
		AggregationMode: rubric.WeightedSum,
		ScaleType:       rubric.DiscreteLevels,
		Criteria: []rubric.Criterion{
			{ID: "method", Name: "Scientific method", Weight: 40, Levels: levels()},
			{ID: "results", Name: "Results", Weight: 30, Levels: levels()},
			{ID: "poster", Name: "Poster", Weight: 20, Levels: levels()},
			{ID: "pitch", Name: "Pitch", Weight: 10, Levels: levels()},
		},
	}
}

// Generate builds a deterministic plan from cfg.Seed.
func Generate(ctx context.Context, cfg *Config) (Plan, error) {
	if err := cfg.Validate(); err != nil {
		return Plan{}, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible cohorts

	r := Rubric()
	plan := Plan{Fixtures: repository.Fixtures{Rubrics: []rubric.Rubric{r}}}

	// teams numbers codes per level so codes stay unique across sections.
	teams := make(map[int]int, cfg.Levels)
	for s := 0; s < cfg.Sections; s++ {
		level := s%cfg.Levels + 1
		sectionID := fmt.Sprintf("%d%c", level, 'A'+rune(s/cfg.Levels))
		for p := 0; p < cfg.ProjectsPerSection; p++ {
			teams[level]++
			project := model.Project{
				ID:        fmt.Sprintf("prj-%s-%02d", sectionID, p+1),
				Code:      fmt.Sprintf("%s%d%02d-%02d", specialties[(teams[level]-1)%len(specialties)], level, teams[level], cohortYear),
				Name:      fmt.Sprintf("Project %s/%d", sectionID, p+1),
				LevelID:   fmt.Sprintf("L%d", level),
				SectionID: sectionID,
				Roster:    roster(rng, sectionID, p),
			}
			plan.Fixtures.Projects = append(plan.Fixtures.Projects, project)
			if rng.Float64() < unjudgedRate {
				continue
			}
			plan.Submissions = append(plan.Submissions, judge(rng, r, project, cfg.JudgesPerProject)...)
		}
	}

	for i := 0; i < cfg.Resends && len(plan.Submissions) > 0; i++ {
		plan.Resends = append(plan.Resends, plan.Submissions[rng.Intn(len(plan.Submissions))])
	}

	logger.Get().Info(ctx, "generated cohort",
		logger.Int("projects", len(plan.Fixtures.Projects)),
		logger.Int("evaluations", len(plan.Submissions)),
		logger.Int("resends", len(plan.Resends)),
		logger.Any("seed", cfg.Seed))
	return plan, nil
}

// roster returns one to three students.
func roster(rng *rand.Rand, sectionID string, p int) []model.Student {
	n := 1 + rng.Intn(3)
	out := make([]model.Student, n)
	for i := range out {
		id := fmt.Sprintf("stu-%s-%02d-%d", sectionID, p+1, i+1)
		out[i] = model.Student{ID: id, FullName: "Student " + id[4:]}
	}
	return out
}

// judge produces n evaluations of project split across both tracks. Strong
// projects draw from a distribution skewed toward the top levels.
func judge(rng *rand.Rand, r rubric.Rubric, project model.Project, n int) []Submission {
	odds := levelOdds
	if rng.Float64() < strongChance {
		odds = strongOdds
	}
	out := make([]Submission, n)
	for j := range out {
		track := model.TrackInternal
		if j%2 == 1 {
			track = model.TrackExternal
		}
		inputs := make([]Input, len(r.Criteria))
		for i, c := range r.Criteria {
			inputs[i] = Input{CriterionID: c.ID, Level: pick(rng, odds)}
		}
		out[j] = Submission{
			SubmissionID: fmt.Sprintf("sub-%s-%d", project.ID, j+1),
			ProjectID:    project.ID,
			RubricID:     r.ID,
			Track:        string(track),
			Inputs:       inputs,
		}
	}
	return out
}

// pick draws a level value with the given relative odds.
func pick(rng *rand.Rand, odds []int) int {
	total := 0
	for _, o := range odds {
		total += o
	}
	n := rng.Intn(total)
	for i, o := range odds {
		if n < o {
			return levelValues[i]
		}
		n -= o
	}
	return levelValues[len(levelValues)-1]
}
