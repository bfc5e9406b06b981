package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"studyrag-be/pkg/rag"
)

const (
	DefaultHostedURL   = "https://api.cohere.ai"
	DefaultHostedModel = "rerank-english-v3.0"
)

// Hosted calls a Cohere-compatible batch rerank API that returns the top_n
// indexes with relevance scores.
type Hosted struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewHosted(apiKey, baseURL, model string) *Hosted {
	if baseURL == "" {
		baseURL = DefaultHostedURL
	}
	if model == "" {
		model = DefaultHostedModel
	}
	return &Hosted{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type hostedRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type hostedResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Message string `json:"message,omitempty"`
}

func (*Hosted) Name() string { return "hosted" }

func (h *Hosted) Rerank(ctx context.Context, query string, frags []rag.Fragment, topK int) ([]rag.Fragment, error) {
	if len(frags) == 0 || topK <= 0 {
		return []rag.Fragment{}, nil
	}
	if h.apiKey == "" {
		return nil, fmt.Errorf("hosted reranker: missing api key")
	}

	topN := topK
	if topN > len(frags) {
		topN = len(frags)
	}

	payload, err := json.Marshal(hostedRequest{Model: h.model, Query: query, Documents: texts(frags), TopN: topN})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v1/rerank", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", h.apiKey))

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank api error (status %d): %s", resp.StatusCode, string(body))
	}

	var out hostedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	scores := make([]scored, len(out.Results))
	for i, r := range out.Results {
		scores[i] = scored{index: r.Index, score: r.RelevanceScore}
	}
	return selectTop(frags, validScores(len(frags), scores), topK), nil
}
