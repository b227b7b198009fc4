// Package ranking orders consolidated project scores inside a scope and
// assigns places.
//
// Ordering: consolidated score DESC, then project code ASC, then project
// id ASC. Within one cohort project codes differ only in the team number,
// so ties go to the lower team number. Scores compare in fixed point so two
// scores that differ only by float rounding tie instead of ranking by noise.
package ranking

import (
	"math"
	"sort"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
)

// scoreScale controls fixed-point scaling from float64: nine decimal places
// is far below any meaningful difference on a 0-10 scale.
const scoreScale = 1_000_000_000

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := x * scoreScale
	if scaled > float64(math.MaxInt64) {
		return scoreFP(math.MaxInt64)
	}
	if scaled < float64(math.MinInt64) {
		return scoreFP(math.MinInt64)
	}
	return scoreFP(math.Round(scaled))
}

// Candidate is a project with its freshly computed score.
type Candidate struct {
	Project model.Project
	Score   model.ProjectScore
}

type keyed struct {
	Candidate
	fp scoreFP
}

// less returns true if a should be placed before b.
func less(a, b keyed) bool {
	if a.fp != b.fp {
		return a.fp > b.fp
	}
	if a.Project.Code != b.Project.Code {
		return a.Project.Code < b.Project.Code
	}
	return a.Project.ID < b.Project.ID
}

// Rank drops unevaluated candidates, orders the rest and assigns places
// 1..N. A positive topN truncates the result; zero or negative returns the
// full ordering. No candidates yields an empty, non-nil ranking.
func Rank(candidates []Candidate, topN int) []model.RankedEntry {
	pool := make([]keyed, 0, len(candidates))
	for _, c := range candidates {
		if !c.Score.Evaluated() {
			continue
		}
		pool = append(pool, keyed{Candidate: c, fp: toFixedPoint(c.Score.ConsolidatedScore)})
	}
	sort.Slice(pool, func(i, j int) bool { return less(pool[i], pool[j]) })

	if topN > 0 && topN < len(pool) {
		pool = pool[:topN]
	}
	out := make([]model.RankedEntry, len(pool))
	for i, k := range pool {
		out[i] = model.RankedEntry{
			Place:             i + 1,
			ProjectID:         k.Project.ID,
			ProjectCode:       k.Project.Code,
			ProjectName:       k.Project.Name,
			ConsolidatedScore: k.Score.ConsolidatedScore,
			EvaluationCount:   k.Score.TotalEvaluationCount,
		}
	}
	return out
}
