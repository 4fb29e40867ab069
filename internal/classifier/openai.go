package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/guardianplus/backend/internal/guardian"
)

// systemPrompt is the fixed scoring rubric sent with every request.
const systemPrompt = `You are a content moderation AI. Analyze the message and return a JSON object with:
- toxicity_score: 0-1 (0 = safe, 1 = highly toxic)
- categories: list of issues found (hate_speech, harassment, spam, threats, nsfw, other)
- reason: brief explanation
Only flag genuinely problematic content. Consider context and intent.`

const defaultTimeout = 5 * time.Second

// Client scores message text against an OpenAI-compatible chat completions
// endpoint. Classify never returns an error: any failure (network, timeout,
// malformed reply) produces a failed verdict with score 0, so the pipeline
// fails open rather than blocking chat on a flaky dependency.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func New(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// verdictPayload uses a pointer for the score so a missing field is
// distinguishable from a genuine zero and treated as a failure.
type verdictPayload struct {
	ToxicityScore *float64 `json:"toxicity_score"`
	Categories    []string `json:"categories"`
	Reason        string   `json:"reason"`
}

// Classify sends text for scoring and normalizes the reply into a Verdict.
func (c *Client) Classify(ctx context.Context, text string) guardian.Verdict {
	verdict, err := c.classify(ctx, text)
	if err != nil {
		log.Printf("Toxicity classification failed: %v", err)
		return guardian.Verdict{Failed: true, Reason: "analysis failed"}
	}
	return verdict
}

func (c *Client) classify(ctx context.Context, text string) (guardian.Verdict, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Analyze this message: %s", text)},
		},
		Temperature: 0.3,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return guardian.Verdict{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return guardian.Verdict{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return guardian.Verdict{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return guardian.Verdict{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return guardian.Verdict{}, fmt.Errorf("failed to read response: %w", err)
	}

	var reply chatResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		return guardian.Verdict{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(reply.Choices) == 0 {
		return guardian.Verdict{}, fmt.Errorf("response has no choices")
	}

	content := stripCodeFence(reply.Choices[0].Message.Content)
	var v verdictPayload
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return guardian.Verdict{}, fmt.Errorf("failed to parse verdict: %w", err)
	}
	if v.ToxicityScore == nil {
		return guardian.Verdict{}, fmt.Errorf("verdict missing toxicity_score")
	}

	score := *v.ToxicityScore
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return guardian.Verdict{
		Score:      score,
		Categories: v.Categories,
		Reason:     v.Reason,
	}, nil
}

// stripCodeFence unwraps replies that arrive as a fenced ```json block.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
