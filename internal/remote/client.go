package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Brownie44l1/zeroshot-api/internal/service"
)

// ZeroShotParameters are the pipeline parameters sent with each request.
type ZeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

// ZeroShotRequest is the body expected by a HuggingFace-style inference
// endpoint for the zero-shot-classification task.
type ZeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters ZeroShotParameters `json:"parameters"`
}

// zeroShotResponse holds the fields the service relies on. Everything else
// in the body is kept verbatim as the raw result.
type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// labelScore is one entry of the list-shaped response,
// [{"label": ..., "score": ...}, ...].
type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Client is an HTTP client for a hosted zero-shot classification model.
type Client struct {
	baseURL    string
	model      string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for model served under baseURL.
func NewClient(baseURL, model, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ZeroShot sends text and labels to the hosted model. The decoded body is
// returned as Raw without modification.
func (c *Client) ZeroShot(ctx context.Context, text string, labels []string) (*service.ZeroShotOutput, error) {
	body, err := json.Marshal(ZeroShotRequest{
		Inputs: text,
		Parameters: ZeroShotParameters{
			CandidateLabels: labels,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/models/"+c.model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	result, err := decodeResponse(respBody)
	if err != nil {
		return nil, err
	}
	if len(result.Labels) != len(result.Scores) {
		return nil, fmt.Errorf("inference service returned %d labels and %d scores", len(result.Labels), len(result.Scores))
	}

	return &service.ZeroShotOutput{
		Labels: result.Labels,
		Scores: result.Scores,
		Raw:    json.RawMessage(respBody),
	}, nil
}

// decodeResponse accepts both the {sequence, labels, scores} object and the
// list of {label, score} entries. List entries are ordered by descending
// score.
func decodeResponse(body []byte) (*zeroShotResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []labelScore
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Score > entries[j].Score
		})

		result := &zeroShotResponse{
			Labels: make([]string, len(entries)),
			Scores: make([]float64, len(entries)),
		}
		for i, e := range entries {
			result.Labels[i] = e.Label
			result.Scores[i] = e.Score
		}
		return result, nil
	}

	var result zeroShotResponse
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}
