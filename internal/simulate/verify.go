package simulate

import (
	"fmt"
	"math"
	"net/url"
	"sort"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/rubric"
)

// scoreEpsilon bounds the accepted drift between the served score and the
// recomputation, which sums in a different order.
const scoreEpsilon = 1e-6

// Expectation is the independently recomputed outcome of a plan.
type Expectation struct {
	Scores map[string]float64 // consolidated score of every evaluated project
	Counts map[string]int     // evaluations per project
}

// Expect recomputes every project's consolidated score from the plan without
// going through the scoring packages.
func Expect(plan Plan, internalWeight float64) Expectation {
	weights := make(map[string]float64)
	for _, r := range plan.Fixtures.Rubrics {
		for _, c := range r.Criteria {
			weights[r.ID+"/"+c.ID] = c.Weight
		}
	}

	type tally struct {
		sum   [2]float64
		count [2]int
	}
	tallies := make(map[string]*tally)
	for _, s := range plan.Submissions {
		final := 0.0
		for _, in := range s.Inputs {
			final += float64(in.Level) * weights[s.RubricID+"/"+in.CriterionID] / rubric.TotalWeight
		}
		t := tallies[s.ProjectID]
		if t == nil {
			t = &tally{}
			tallies[s.ProjectID] = t
		}
		k := 0
		if s.Track == string(model.TrackExternal) {
			k = 1
		}
		t.sum[k] += final
		t.count[k]++
	}

	out := Expectation{Scores: make(map[string]float64, len(tallies)), Counts: make(map[string]int, len(tallies))}
	for id, t := range tallies {
		var score float64
		switch {
		case t.count[0] > 0 && t.count[1] > 0:
			score = internalWeight*t.sum[0]/float64(t.count[0]) + (1-internalWeight)*t.sum[1]/float64(t.count[1])
		case t.count[0] > 0:
			score = t.sum[0] / float64(t.count[0])
		default:
			score = t.sum[1] / float64(t.count[1])
		}
		out.Scores[id] = score
		out.Counts[id] = t.count[0] + t.count[1]
	}
	return out
}

// Order returns the ids of the evaluated members in expected place order:
// score descending, then code, then id.
func (e Expectation) Order(members []model.Project) []string {
	pool := make([]model.Project, 0, len(members))
	for _, p := range members {
		if _, ok := e.Scores[p.ID]; ok {
			pool = append(pool, p)
		}
	}
	round := func(x float64) float64 { return math.Round(x/scoreEpsilon) * scoreEpsilon }
	sort.Slice(pool, func(i, j int) bool {
		a, b := round(e.Scores[pool[i].ID]), round(e.Scores[pool[j].ID])
		if a != b {
			return a > b
		}
		if pool[i].Code != pool[j].Code {
			return pool[i].Code < pool[j].Code
		}
		return pool[i].ID < pool[j].ID
	})
	ids := make([]string, len(pool))
	for i, p := range pool {
		ids[i] = p.ID
	}
	return ids
}

// Check compares a served ranking against the expected order.
func (e Expectation) Check(scope string, members []model.Project, got []model.RankedEntry) error {
	want := e.Order(members)
	if len(got) != len(want) {
		return fmt.Errorf("%s: %d entries served, %d expected", scope, len(got), len(want))
	}
	for i, entry := range got {
		if entry.Place != i+1 {
			return fmt.Errorf("%s: entry %d has place %d", scope, i, entry.Place)
		}
		if entry.ProjectID != want[i] {
			return fmt.Errorf("%s: place %d is %s, expected %s", scope, entry.Place, entry.ProjectID, want[i])
		}
		if d := math.Abs(entry.ConsolidatedScore - e.Scores[entry.ProjectID]); d > scoreEpsilon {
			return fmt.Errorf("%s: %s scored %.6f, expected %.6f", scope, entry.ProjectID, entry.ConsolidatedScore, e.Scores[entry.ProjectID])
		}
		if entry.EvaluationCount != e.Counts[entry.ProjectID] {
			return fmt.Errorf("%s: %s has %d evaluations, expected %d", scope, entry.ProjectID, entry.EvaluationCount, e.Counts[entry.ProjectID])
		}
	}
	return nil
}

// scopeQuery is a ranking request together with the projects it covers.
type scopeQuery struct {
	label   string
	query   url.Values
	members []model.Project
}

// scopes enumerates every section and every level specialty of the cohort.
func scopes(projects []model.Project, limit int) []scopeQuery {
	bySection := make(map[string][]model.Project)
	bySpecialty := make(map[[2]string][]model.Project)
	for _, p := range projects {
		bySection[p.SectionID] = append(bySection[p.SectionID], p)
		key := [2]string{p.LevelID, p.Code[:1]}
		bySpecialty[key] = append(bySpecialty[key], p)
	}

	var out []scopeQuery
	lim := fmt.Sprint(limit)
	for id, members := range bySection {
		out = append(out, scopeQuery{
			label:   "section " + id,
			query:   url.Values{"section": {id}, "limit": {lim}},
			members: members,
		})
	}
	for key, members := range bySpecialty {
		out = append(out, scopeQuery{
			label:   "level " + key[0] + " specialty " + key[1],
			query:   url.Values{"level": {key[0]}, "specialty": {key[1]}, "limit": {lim}},
			members: members,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].label < out[j].label })
	return out
}
