// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	service "github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/app"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/evalerr"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/scoring"
)

// EvaluationDependencies defines the interface for evaluation submission.
type EvaluationDependencies interface {
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
	Resubmission(ctx context.Context, submissionID string) (model.EvaluationRecord, bool, error)
	SubmitEvaluation(ctx context.Context, req service.SubmitRequest) (model.EvaluationRecord, bool, error)
}

// EvaluationsHandler handles evaluation submissions.
type EvaluationsHandler struct {
	deps EvaluationDependencies
}

// NewEvaluationsHandler creates a new evaluations handler.
func NewEvaluationsHandler(deps EvaluationDependencies) *EvaluationsHandler {
	return &EvaluationsHandler{deps: deps}
}

// inputRequest carries exactly one of value (continuous scales) or level
// (discrete scales).
type inputRequest struct {
	CriterionID string   `json:"criterion_id"`
	Value       *float64 `json:"value,omitempty"`
	Level       *int     `json:"level,omitempty"`
}

// evaluationRequest mirrors the OpenAPI schema for POST /evaluations.
type evaluationRequest struct {
	SubmissionID string         `json:"submission_id"`
	ProjectID    string         `json:"project_id"`
	RubricID     string         `json:"rubric_id"`
	Track        string         `json:"track"`
	Inputs       []inputRequest `json:"inputs"`
}

func (e evaluationRequest) toSubmit() (service.SubmitRequest, error) {
	switch {
	case strings.TrimSpace(e.ProjectID) == "":
		return service.SubmitRequest{}, errors.New("missing project_id")
	case strings.TrimSpace(e.RubricID) == "":
		return service.SubmitRequest{}, errors.New("missing rubric_id")
	case strings.TrimSpace(e.Track) == "":
		return service.SubmitRequest{}, errors.New("missing track")
	}
	inputs := make([]scoring.CriterionInput, 0, len(e.Inputs))
	for i, in := range e.Inputs {
		var v scoring.Input
		switch {
		case in.Value != nil && in.Level != nil:
			return service.SubmitRequest{}, fmt.Errorf("inputs[%d]: value and level are mutually exclusive", i)
		case in.Value != nil:
			v = scoring.Continuous(*in.Value)
		case in.Level != nil:
			v = scoring.DiscreteLevel(*in.Level)
		default:
			return service.SubmitRequest{}, fmt.Errorf("inputs[%d]: value or level is required", i)
		}
		inputs = append(inputs, scoring.CriterionInput{CriterionID: in.CriterionID, Input: v})
	}
	return service.SubmitRequest{
		SubmissionID: strings.TrimSpace(e.SubmissionID),
		ProjectID:    strings.TrimSpace(e.ProjectID),
		RubricID:     strings.TrimSpace(e.RubricID),
		Track:        model.Track(e.Track),
		Inputs:       inputs,
	}, nil
}

type submitResponse struct {
	Status     string                 `json:"status"`
	Duplicate  bool                   `json:"duplicate"`
	Evaluation model.EvaluationRecord `json:"evaluation"`
}

// HandlePostEvaluation handles POST /evaluations requests.
func (h *EvaluationsHandler) HandlePostEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_evaluation"
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var body evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	req, err := body.toSubmit()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// A seen id is answered from the stored record without scoring. A seen
	// id with no record yet is still in flight and takes the full path.
	// Only ids never seen are rolled back on failure.
	fresh := false
	if req.SubmissionID != "" {
		fresh = !h.deps.SeenAndRecord(r.Context(), req.SubmissionID)
		if !fresh {
			rec, found, err := h.deps.Resubmission(r.Context(), req.SubmissionID)
			if err != nil {
				if evalerr.KindOf(err) == nil {
					err = Wrap(op, err)
				}
				writeDomainError(w, err)
				return
			}
			if found {
				writeJSON(w, http.StatusOK, submitResponse{Status: "duplicate", Duplicate: true, Evaluation: rec})
				return
			}
		}
	}

	rec, created, err := h.deps.SubmitEvaluation(r.Context(), req)
	if err != nil {
		if fresh {
			h.deps.Unrecord(r.Context(), req.SubmissionID)
		}
		if evalerr.KindOf(err) == nil {
			err = Wrap(op, err)
		}
		writeDomainError(w, err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, submitResponse{Status: "duplicate", Duplicate: true, Evaluation: rec})
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{Status: "created", Evaluation: rec})
}
