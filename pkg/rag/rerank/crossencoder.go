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

// CrossEncoder scores every (query, fragment) pair against a locally served
// cross-encoder model exposing the text-embeddings-inference /rerank API.
type CrossEncoder struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewCrossEncoder(baseURL, model string) *CrossEncoder {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &CrossEncoder{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type teiRerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
}

type teiRerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (*CrossEncoder) Name() string { return "cross_encoder" }

func (c *CrossEncoder) Rerank(ctx context.Context, query string, frags []rag.Fragment, topK int) ([]rag.Fragment, error) {
	if len(frags) == 0 {
		return []rag.Fragment{}, nil
	}

	payload, err := json.Marshal(teiRerankRequest{Query: query, Texts: texts(frags), Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/rerank", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cross-encoder request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cross-encoder error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var results []teiRerankResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	scores := make([]scored, len(results))
	for i, r := range results {
		scores[i] = scored{index: r.Index, score: r.Score}
	}
	scores = validScores(len(frags), scores)
	if len(scores) != len(frags) {
		return nil, fmt.Errorf("cross-encoder scored %d of %d fragments", len(scores), len(frags))
	}
	return selectTop(frags, scores, topK), nil
}
