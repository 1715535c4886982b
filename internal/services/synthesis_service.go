package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rilie/internal/curiosity"
)

const (
	synthesisTimeout = 60 * time.Second
	// defaultSynthesisScore is used when the model omits or mangles its
	// SCORE line. Below the taste threshold, so an unscored insight is
	// stored but not kept.
	defaultSynthesisScore = 0.5
)

const synthesisSystemPrompt = `You distill research into a single insight.

Given a tangent (a thought worth exploring) and raw research snippets,
write one concise insight: what is actually interesting or true here,
in at most 150 words. Do not restate the snippets.

End your reply with a line of the form:
SCORE: <0.0-1.0>
rating how substantive and well-supported the insight is.`

// SynthesisService turns a tangent plus research into an insight scored
// for quality, via an OpenAI-compatible chat completions endpoint. It
// implements curiosity.SynthesisPort.
type SynthesisService struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewSynthesisService creates the service. baseURL is the provider root
// (e.g. https://api.openai.com/v1) without a trailing slash.
func NewSynthesisService(baseURL, apiKey, model string) *SynthesisService {
	return &SynthesisService{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: synthesisTimeout},
	}
}

// Synthesize runs one non-streaming completion over the tangent and its
// research.
func (s *SynthesisService) Synthesize(ctx context.Context, tangentText, researchText string) (curiosity.Synthesis, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": synthesisSystemPrompt},
			{
				"role": "user",
				"content": fmt.Sprintf("Tangent: %s\n\nResearch:\n%s", tangentText, researchText),
			},
		},
		"stream":      false,
		"temperature": 0.3,
	})
	if err != nil {
		return curiosity.Synthesis{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return curiosity.Synthesis{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return curiosity.Synthesis{}, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return curiosity.Synthesis{}, fmt.Errorf("synthesis API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return curiosity.Synthesis{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return curiosity.Synthesis{}, fmt.Errorf("no choices in synthesis response")
	}

	insight, score := parseScoredInsight(result.Choices[0].Message.Content)
	if insight == "" {
		return curiosity.Synthesis{}, fmt.Errorf("empty insight in synthesis response")
	}

	return curiosity.Synthesis{Insight: insight, QualityScore: score}, nil
}

// parseScoredInsight splits the completion into insight text and the
// trailing SCORE line. A missing or unparsable score defaults to
// defaultSynthesisScore; parsed scores are clamped to [0,1].
func parseScoredInsight(content string) (string, float64) {
	content = strings.TrimSpace(content)
	score := defaultSynthesisScore

	lines := strings.Split(content, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if rest, found := strings.CutPrefix(strings.ToUpper(line), "SCORE:"); found {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(rest), 64); err == nil {
				score = clamp01(parsed)
			}
			content = strings.TrimSpace(strings.Join(lines[:i], "\n"))
		}
		break
	}

	return content, score
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
