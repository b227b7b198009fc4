// Package aggregate consolidates a project's evaluation records into a single
// comparable score. It holds no state: every call recomputes from the
// records it is given.
package aggregate

import (
	"sort"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
)

// DefaultInternalWeight gives both tracks equal say when both have data.
const DefaultInternalWeight = 0.5

// Policy controls how track averages are blended.
type Policy struct {
	// InternalWeight is the share of the internal average when both tracks
	// are present; the external average gets 1 - InternalWeight.
	InternalWeight float64
}

// DefaultPolicy is the symmetric 50/50 blend.
func DefaultPolicy() Policy {
	return Policy{InternalWeight: DefaultInternalWeight}
}

// Consolidate computes the ProjectScore for projectID from records. Records
// of other projects are ignored. Summation happens in record-id order so two
// calls over the same records give bit-identical results whatever order the
// store returned them in.
func Consolidate(projectID string, records []model.EvaluationRecord, p Policy) model.ProjectScore {
	w := p.InternalWeight
	if w < 0 || w > 1 {
		w = DefaultInternalWeight
	}

	sorted := make([]model.EvaluationRecord, 0, len(records))
	for _, r := range records {
		if r.ProjectID == projectID {
			sorted = append(sorted, r)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var internalSum, externalSum float64
	out := model.ProjectScore{ProjectID: projectID}
	for _, r := range sorted {
		switch r.Track {
		case model.TrackInternal:
			internalSum += r.FinalScore
			out.InternalCount++
		case model.TrackExternal:
			externalSum += r.FinalScore
			out.ExternalCount++
		}
	}
	out.TotalEvaluationCount = out.InternalCount + out.ExternalCount

	if out.InternalCount > 0 {
		avg := internalSum / float64(out.InternalCount)
		out.InternalAverage = &avg
	}
	if out.ExternalCount > 0 {
		avg := externalSum / float64(out.ExternalCount)
		out.ExternalAverage = &avg
	}

	switch {
	case out.InternalAverage != nil && out.ExternalAverage != nil:
		out.ConsolidatedScore = w*(*out.InternalAverage) + (1-w)*(*out.ExternalAverage)
	case out.InternalAverage != nil:
		out.ConsolidatedScore = *out.InternalAverage
	case out.ExternalAverage != nil:
		out.ConsolidatedScore = *out.ExternalAverage
	}
	return out
}
