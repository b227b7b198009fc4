package placement_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/evalerr"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/placement"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeProjects struct {
	projects []model.Project
	err      error
}

func (f *fakeProjects) ProjectsBySection(_ context.Context, sectionID string) ([]model.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Project
	for _, p := range f.projects {
		if p.SectionID == sectionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjects) ProjectsByLevel(_ context.Context, levelID string) ([]model.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Project
	for _, p := range f.projects {
		if p.LevelID == levelID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeScores struct {
	mu     sync.Mutex
	scores map[string]float64
	err    error
	calls  int
}

func (f *fakeScores) Score(_ context.Context, projectID string) (model.ProjectScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return model.ProjectScore{}, f.err
	}
	s, ok := f.scores[projectID]
	if !ok {
		return model.ProjectScore{ProjectID: projectID}, nil
	}
	return model.ProjectScore{ProjectID: projectID, ConsolidatedScore: s, TotalEvaluationCount: 1}, nil
}

func roster(names ...string) []model.Student {
	out := make([]model.Student, len(names))
	for i, n := range names {
		out[i] = model.Student{ID: "s-" + n, FullName: n}
	}
	return out
}

func TestParseCode(t *testing.T) {
	Convey("Given project identifier codes", t, func() {
		Convey("A dashed code decodes into its parts", func() {
			c, err := placement.ParseCode("A301-25")
			So(err, ShouldBeNil)
			So(c, ShouldResemble, placement.Code{Specialty: "A", Level: 3, Team: 1, Year: 25})
			So(c.String(), ShouldEqual, "A301-25")
		})

		Convey("The compact form and lower-case letters are accepted", func() {
			c, err := placement.ParseCode(" b21224 ")
			So(err, ShouldBeNil)
			So(c.Specialty, ShouldEqual, "B")
			So(c.Level, ShouldEqual, 2)
			So(c.Team, ShouldEqual, 12)
			So(c.Year, ShouldEqual, 24)
		})

		Convey("Malformed codes are rejected as not found", func() {
			for _, bad := range []string{"", "A3-01-25", "13012-5", "AB01-25", "A301-2", "A301--25", "A30125X", "ſ301-25", "ı301-25", "Ａ301-25"} {
				_, err := placement.ParseCode(bad)
				So(errors.Is(err, evalerr.ErrMalformedCode), ShouldBeTrue)
				So(errors.Is(err, evalerr.ErrNotFound), ShouldBeTrue)
			}
		})
	})
}

func TestResolver(t *testing.T) {
	Convey("Given a section with four evaluated projects and one unevaluated", t, func() {
		projects := &fakeProjects{projects: []model.Project{
			{ID: "p1", Code: "A101-25", Name: "Solar Oven", SectionID: "7A", LevelID: "L1", Roster: roster("Ana")},
			{ID: "p2", Code: "A102-25", Name: "Water Filter", SectionID: "7A", LevelID: "L1", Roster: roster("Luis", "Marta")},
			{ID: "p3", Code: "A103-25", Name: "Wind Vane", SectionID: "7A", LevelID: "L1", Roster: roster("Eva")},
			{ID: "p4", Code: "A104-25", Name: "Compost", SectionID: "7A", LevelID: "L1"},
			{ID: "p5", Code: "A105-25", Name: "Unjudged", SectionID: "7A", LevelID: "L1", Roster: roster("Zoe")},
			{ID: "p6", Code: "A106-25", Name: "Elsewhere", SectionID: "7B", LevelID: "L1", Roster: roster("Ian")},
		}}
		scores := &fakeScores{scores: map[string]float64{"p1": 9.5, "p2": 9.5, "p3": 8.0, "p4": 7.0, "p6": 10}}
		r := placement.NewResolver(projects, scores, placement.WithConcurrency(2))
		ctx := context.Background()
		scope := model.SectionScope("7A")

		Convey("When ranking the top 3", func() {
			entries, err := r.Rank(ctx, scope, 3)

			Convey("Then only the section's evaluated projects are placed", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 3)
				So(entries[0].ProjectID, ShouldEqual, "p1")
				So(entries[1].ProjectID, ShouldEqual, "p2")
				So(entries[2].ProjectID, ShouldEqual, "p3")
			})
		})

		Convey("When resolving second place", func() {
			pl, err := r.Resolve(ctx, scope, 2)

			Convey("Then the project and its roster are returned", func() {
				So(err, ShouldBeNil)
				So(pl.Entry.Place, ShouldEqual, 2)
				So(pl.Project.Name, ShouldEqual, "Water Filter")
				So(pl.Roster, ShouldHaveLength, 2)
			})
		})

		Convey("When resolving a place held by a project without students", func() {
			_, err := r.Resolve(ctx, scope, 4)

			Convey("Then it is a data integrity error", func() {
				So(errors.Is(err, evalerr.ErrDataIntegrity), ShouldBeTrue)
				So(errors.Is(err, evalerr.ErrEmptyRoster), ShouldBeTrue)
				So(evalerr.FieldsOf(err), ShouldResemble, []string{"p4"})
			})
		})

		Convey("When resolving a place beyond the evaluated projects", func() {
			_, err := r.Resolve(ctx, scope, 5)

			Convey("Then it is not found", func() {
				So(errors.Is(err, evalerr.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err, evalerr.ErrPlaceUnavailable), ShouldBeTrue)
			})
		})

		Convey("When resolving place 0", func() {
			_, err := r.Resolve(ctx, scope, 0)

			Convey("Then it is a validation error", func() {
				So(errors.Is(err, evalerr.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When building awards for the top 3", func() {
			awards, err := r.Awards(ctx, scope, 3)

			Convey("Then each carries place, roster and scope label", func() {
				So(err, ShouldBeNil)
				So(awards, ShouldHaveLength, 3)
				So(awards[0].Place, ShouldEqual, 1)
				So(awards[0].ProjectName, ShouldEqual, "Solar Oven")
				So(awards[2].ScopeLabel, ShouldEqual, "section 7A")
				So(awards[1].Roster[1].FullName, ShouldEqual, "Marta")
			})
		})

		Convey("When building awards that reach the project without students", func() {
			_, err := r.Awards(ctx, scope, 0)

			Convey("Then the batch fails", func() {
				So(errors.Is(err, evalerr.ErrEmptyRoster), ShouldBeTrue)
			})
		})

		Convey("When the score source is unavailable", func() {
			scores.err = evalerr.Transient("test", errors.New("connection refused"))
			_, err := r.Rank(ctx, scope, 3)

			Convey("Then the transient error propagates", func() {
				So(errors.Is(err, evalerr.ErrTransient), ShouldBeTrue)
			})
		})
	})

	Convey("Given a level with two specialties", t, func() {
		projects := &fakeProjects{projects: []model.Project{
			{ID: "m1", Code: "M401-25", Name: "Robot Arm", LevelID: "L4", Roster: roster("A")},
			{ID: "m2", Code: "M402-25", Name: "Line Follower", LevelID: "L4", Roster: roster("B")},
			{ID: "e1", Code: "E401-25", Name: "Smart Grid", LevelID: "L4", Roster: roster("C")},
			{ID: "x1", Code: "M501-25", Name: "Other level", LevelID: "L5", Roster: roster("D")},
		}}
		scores := &fakeScores{scores: map[string]float64{"m1": 6, "m2": 8, "e1": 10, "x1": 10}}
		r := placement.NewResolver(projects, scores)
		ctx := context.Background()

		Convey("When ranking the M specialty", func() {
			entries, err := r.Rank(ctx, model.SpecialtyScope("L4", "m"), 3)

			Convey("Then only that specialty's projects on that level compete", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].ProjectID, ShouldEqual, "m2")
				So(entries[1].ProjectID, ShouldEqual, "m1")
			})
		})

		Convey("When a project on the level has a malformed code", func() {
			projects.projects = append(projects.projects, model.Project{ID: "bad", Code: "garbage", LevelID: "L4"})
			_, err := r.Rank(ctx, model.SpecialtyScope("L4", "M"), 3)

			Convey("Then the request fails naming the project", func() {
				So(errors.Is(err, evalerr.ErrMalformedCode), ShouldBeTrue)
				So(evalerr.FieldsOf(err), ShouldResemble, []string{"bad"})
			})
		})

		Convey("When the specialty is not a letter", func() {
			_, err := r.Rank(ctx, model.SpecialtyScope("L4", "mech"), 3)

			Convey("Then the scope is invalid", func() {
				So(errors.Is(err, evalerr.ErrInvalidScope), ShouldBeTrue)
			})
		})

		Convey("When the specialty has no evaluated projects", func() {
			entries, err := r.Rank(ctx, model.SpecialtyScope("L4", "Q"), 3)

			Convey("Then the ranking is empty without error", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When resolving third place with only two ranked projects", func() {
			_, err := r.Resolve(ctx, model.SpecialtyScope("L4", "M"), 3)

			Convey("Then it is not found", func() {
				So(errors.Is(err, evalerr.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
