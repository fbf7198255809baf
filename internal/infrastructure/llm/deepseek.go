// Package llm adapts an OpenAI-compatible chat-completions API into the
// pipeline's relevance rater.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arxivdigest/internal/config"
	"arxivdigest/internal/domain"
	"arxivdigest/internal/ports"
)

const ratingPrompt = `You are a paper screening assistant. Judge how strongly the
paper below matches the user's interest profile.

Interest profile:
%s

Scoring scale (integer 0-100):
- 80-100: directly relevant to the profile, practical methods usable for tools or systems.
- 40-79: related area but the connection to the profile is weak or unclear.
- 0-39: unrelated directions.

Judge from the title and abstract only.

Paper title: %s
Paper abstract:
%s

Reply with exactly one JSON object and nothing else, no explanations and no
code fences. The format is strictly:
{
  "score": <integer between 0 and 100>
}`

// DeepSeekRater scores records through a chat-completions endpoint. Each call
// carries its own timeout so one unresponsive request cannot stall the batch.
type DeepSeekRater struct {
	endpoint   string
	model      string
	apiKey     string
	profile    string
	timeout    time.Duration
	httpClient *http.Client
}

var _ ports.Rater = (*DeepSeekRater)(nil)

// NewDeepSeekRater builds a rater from configuration.
func NewDeepSeekRater(cfg config.RaterConfig) *DeepSeekRater {
	return &DeepSeekRater{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		profile:    cfg.Profile,
		timeout:    cfg.Timeout(),
		httpClient: &http.Client{},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Score rates one record against the profile. Transport, status, and timeout
// failures wrap ErrRaterUnavailable; replies that yield no parsable score
// wrap ErrRaterMalformedResponse. Out-of-range scores are clamped.
func (r *DeepSeekRater) Score(ctx context.Context, record domain.PaperRecord) (int, error) {
	if r.apiKey == "" || r.endpoint == "" || r.model == "" {
		return 0, fmt.Errorf("%w: rater misconfigured", domain.ErrRaterUnavailable)
	}

	prompt := fmt.Sprintf(ratingPrompt, r.profile, record.Title, record.Abstract)
	body, err := json.Marshal(chatRequest{
		Model:       r.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   64,
		Temperature: 0.0,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal rater payload: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrRaterUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("%w: %s: %s", domain.ErrRaterUnavailable,
			resp.Status, strings.TrimSpace(string(detail)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("%w: decode completion: %v", domain.ErrRaterMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return 0, fmt.Errorf("%w: completion has no choices", domain.ErrRaterMalformedResponse)
	}

	score, err := extractScore(parsed.Choices[0].Message.Content)
	if err != nil {
		return 0, err
	}
	return clampScore(score), nil
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
