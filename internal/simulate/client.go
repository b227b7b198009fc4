package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/model"
)

// Submission outcomes.
const (
	outcomeCreated   = "created"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// client is a thin JSON client for the scoring API.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, cfg *Config) *client {
	return &client{baseURL: baseURL, http: &http.Client{Timeout: cfg.Timeout}}
}

type evaluationAck struct {
	ID         string  `json:"id"`
	FinalScore float64 `json:"final_score"`
}

type submitResponse struct {
	Status     string        `json:"status"`
	Duplicate  bool          `json:"duplicate"`
	Evaluation evaluationAck `json:"evaluation"`
}

type rankingResponse struct {
	Scope   string              `json:"scope"`
	Entries []model.RankedEntry `json:"entries"`
}

// health returns nil when /healthz answers 200.
func (c *client) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// submit posts one evaluation and classifies the response.
func (c *client) submit(ctx context.Context, s Submission) (string, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return outcomeFailed, fmt.Errorf("failed to marshal submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/evaluations", bytes.NewReader(body))
	if err != nil {
		return outcomeFailed, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return outcomeFailed, err
	}
	defer resp.Body.Close()

	var ack submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return outcomeFailed, fmt.Errorf("status %d: undecodable body: %w", resp.StatusCode, err)
	}
	switch {
	case resp.StatusCode == http.StatusCreated:
		return outcomeCreated, nil
	case resp.StatusCode == http.StatusOK && ack.Duplicate:
		return outcomeDuplicate, nil
	default:
		return outcomeFailed, fmt.Errorf("submission %s: unexpected status %d", s.SubmissionID, resp.StatusCode)
	}
}

// ranking fetches the ordered placements of a section or a level specialty.
func (c *client) ranking(ctx context.Context, q url.Values) (rankingResponse, error) {
	var out rankingResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rankings?"+q.Encode(), nil)
	if err != nil {
		return out, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("rankings %s: unexpected status %d", q.Encode(), resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("rankings %s: %w", q.Encode(), err)
	}
	return out, nil
}
