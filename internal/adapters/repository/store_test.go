package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/rubric"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleRubric() rubric.Rubric {
	return rubric.Rubric{
		ID:              "r1",
		Name:            "Science fair",
		AggregationMode: rubric.WeightedSum,
		ScaleType:       rubric.DiscreteLevelsWithDescription,
		Criteria: []rubric.Criterion{
			{ID: "c1", Name: "Method", Weight: 60, Levels: []rubric.Level{{BaseValue: 2, Description: "weak"}, {BaseValue: 10, Description: "strong"}}},
			{ID: "c2", Name: "Poster", Weight: 40, Levels: []rubric.Level{{BaseValue: 6, Description: "ok"}}},
		},
	}
}

func sampleRecord(id, submission, project string, track model.Track, final float64) model.EvaluationRecord {
	return model.EvaluationRecord{
		ID:              id,
		SubmissionID:    submission,
		ProjectID:       project,
		RubricID:        "r1",
		Track:           track,
		FinalScore:      final,
		AggregationMode: rubric.WeightedSum,
		Scores:          []model.CriterionScore{{CriterionID: "c1", Weight: 60, Obtained: final}},
		CreatedAt:       time.Unix(1_700_000_000, 0).UTC(),
	}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := Open(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Store{"memory": NewMemoryStore(), "sqlite": sqlite}
}

func TestStores(t *testing.T) {
	for name, s := range openStores(t) {
		Convey(fmt.Sprintf("Given a %s store", name), t, func() {
			ctx := context.Background()

			Convey("Rubrics round-trip and unknown ids are not found", func() {
				So(s.PutRubric(ctx, sampleRubric()), ShouldBeNil)
				got, err := s.Rubric(ctx, "r1")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, sampleRubric())

				_, err = s.Rubric(ctx, "missing")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})

			Convey("Projects are listed by section and level in id order", func() {
				So(s.PutProject(ctx, model.Project{ID: "p2", Code: "A102-25", Name: "B", LevelID: "L1", SectionID: "7A",
					Roster: []model.Student{{ID: "s1", FullName: "Ana"}}}), ShouldBeNil)
				So(s.PutProject(ctx, model.Project{ID: "p1", Code: "A101-25", Name: "A", LevelID: "L1", SectionID: "7A"}), ShouldBeNil)
				So(s.PutProject(ctx, model.Project{ID: "p3", Code: "B101-25", Name: "C", LevelID: "L1", SectionID: "7B"}), ShouldBeNil)

				sec, err := s.ProjectsBySection(ctx, "7A")
				So(err, ShouldBeNil)
				So(sec, ShouldHaveLength, 2)
				So(sec[0].ID, ShouldEqual, "p1")
				So(sec[1].Roster[0].FullName, ShouldEqual, "Ana")

				lvl, err := s.ProjectsByLevel(ctx, "L1")
				So(err, ShouldBeNil)
				So(lvl, ShouldHaveLength, 3)

				none, err := s.ProjectsBySection(ctx, "9Z")
				So(err, ShouldBeNil)
				So(none, ShouldNotBeNil)
				So(none, ShouldBeEmpty)

				n, err := s.CountProjects(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)

				_, err = s.Project(ctx, "nope")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})

			Convey("Evaluation inserts are idempotent per submission id", func() {
				first, created, err := s.InsertEvaluation(ctx, sampleRecord("e1", "sub-1", "p1", model.TrackInternal, 7))
				So(err, ShouldBeNil)
				So(created, ShouldBeTrue)
				So(first.ID, ShouldEqual, "e1")

				again, created, err := s.InsertEvaluation(ctx, sampleRecord("e2", "sub-1", "p1", model.TrackInternal, 3))
				So(err, ShouldBeNil)
				So(created, ShouldBeFalse)
				So(again.ID, ShouldEqual, "e1")
				So(again.FinalScore, ShouldEqual, 7)

				_, _, err = s.InsertEvaluation(ctx, sampleRecord("e3", "sub-2", "p1", model.TrackExternal, 9))
				So(err, ShouldBeNil)

				recs, err := s.EvaluationsByProject(ctx, "p1")
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].ID, ShouldEqual, "e1")
				So(recs[1].Track, ShouldEqual, model.TrackExternal)
				So(recs[1].Scores, ShouldResemble, []model.CriterionScore{{CriterionID: "c1", Weight: 60, Obtained: 9}})
				So(recs[1].CreatedAt.Equal(time.Unix(1_700_000_000, 0)), ShouldBeTrue)

				n, err := s.CountEvaluations(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})

			Convey("Evaluations are looked up by submission id", func() {
				_, _, err := s.InsertEvaluation(ctx, sampleRecord("e1", "sub-1", "p1", model.TrackInternal, 7))
				So(err, ShouldBeNil)

				rec, err := s.EvaluationBySubmission(ctx, "sub-1")
				So(err, ShouldBeNil)
				So(rec.ID, ShouldEqual, "e1")
				So(rec.FinalScore, ShouldEqual, 7)

				_, err = s.EvaluationBySubmission(ctx, "sub-404")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})

			Convey("Records without identifiers are invalid", func() {
				_, _, err := s.InsertEvaluation(ctx, model.EvaluationRecord{ID: "x"})
				So(errors.Is(err, ErrInvalid), ShouldBeTrue)
				So(errors.Is(s.PutProject(ctx, model.Project{}), ErrInvalid), ShouldBeTrue)
			})
		})
	}
}

func TestMemoryStore_Isolation(t *testing.T) {
	Convey("Given a memory store holding a project", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		p := model.Project{ID: "p1", SectionID: "7A", Roster: []model.Student{{ID: "s1", FullName: "Ana"}}}
		So(s.PutProject(ctx, p), ShouldBeNil)

		Convey("Mutating a returned value does not change the store", func() {
			got, _ := s.Project(ctx, "p1")
			got.Roster[0].FullName = "changed"
			again, _ := s.Project(ctx, "p1")
			So(again.Roster[0].FullName, ShouldEqual, "Ana")
		})

		Convey("Concurrent inserts of one submission create exactly one record", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			createdCount := 0
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, created, err := s.InsertEvaluation(ctx, sampleRecord(fmt.Sprintf("e%d", i), "same", "p1", model.TrackInternal, 5))
					if err == nil && created {
						mu.Lock()
						createdCount++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()
			So(createdCount, ShouldEqual, 1)
			n, _ := s.CountEvaluations(ctx)
			So(n, ShouldEqual, 1)
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given driver names", t, func() {
		ctx := context.Background()

		Convey("memory returns a MemoryStore", func() {
			s, err := Open(ctx, DriverMemory, "")
			So(err, ShouldBeNil)
			_, ok := s.(*MemoryStore)
			So(ok, ShouldBeTrue)
		})

		Convey("unknown drivers are rejected", func() {
			_, err := Open(ctx, "oracle", "")
			So(errors.Is(err, ErrInvalid), ShouldBeTrue)
		})
	})
}

const fixtureYAML = `
rubrics:
  - id: r1
    name: Science fair
    aggregation_mode: weighted_sum
    scale_type: continuous
    criteria:
      - id: c1
        name: Method
        weight: 60
      - id: c2
        name: Poster
        weight: 40
projects:
  - id: p1
    code: A101-25
    name: Solar Oven
    level_id: L1
    section_id: 7A
    roster:
      - id: s1
        full_name: Ana
`

func TestLoadFixtures(t *testing.T) {
	Convey("Given a fixtures file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "fixtures.yaml")
		So(os.WriteFile(path, []byte(fixtureYAML), 0o600), ShouldBeNil)
		ctx := context.Background()
		s := NewMemoryStore()

		Convey("When it is loaded", func() {
			fx, err := LoadFixtures(ctx, path, s)

			Convey("Then rubrics and projects are seeded", func() {
				So(err, ShouldBeNil)
				So(fx.Rubrics, ShouldHaveLength, 1)
				r, err := s.Rubric(ctx, "r1")
				So(err, ShouldBeNil)
				So(r.Criteria[1].Weight, ShouldEqual, 40)
				p, err := s.Project(ctx, "p1")
				So(err, ShouldBeNil)
				So(p.Roster[0].FullName, ShouldEqual, "Ana")
			})
		})

		Convey("When a rubric is invalid", func() {
			bad := filepath.Join(dir, "bad.yaml")
			So(os.WriteFile(bad, []byte("rubrics:\n  - id: r2\n    aggregation_mode: median\n    scale_type: continuous\n"), 0o600), ShouldBeNil)
			_, err := LoadFixtures(ctx, bad, s)

			Convey("Then loading fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the file is missing", func() {
			_, err := LoadFixtures(ctx, filepath.Join(dir, "nope.yaml"), s)
			So(err, ShouldNotBeNil)
		})

		Convey("When the loaded fixtures are written back out", func() {
			fx, err := ReadFixtures(path)
			So(err, ShouldBeNil)
			out := filepath.Join(dir, "nested", "copy.yaml")
			So(WriteFixtures(out, fx), ShouldBeNil)

			Convey("Then they read back unchanged", func() {
				again, err := ReadFixtures(out)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, fx)
			})
		})
	})
}
