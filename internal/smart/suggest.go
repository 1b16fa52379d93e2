// Package smart holds the feature-gated helpers: chore suggestions from a
// chat-completions API, round-robin rotation, and weather-driven
// rescheduling of outdoor chores.
package smart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// SuggestionClient produces chore suggestions for a family. Injected so
// tests and deployments without an API key can substitute their own.
type SuggestionClient interface {
	Suggest(ctx context.Context, prompt string) ([]string, error)
}

// ChatClient calls an OpenAI-compatible chat-completions endpoint.
type ChatClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type ChatOption func(*ChatClient)

func WithHTTPClient(c *http.Client) ChatOption {
	return func(cl *ChatClient) {
		cl.httpClient = c
	}
}

func WithBaseURL(url string) ChatOption {
	return func(cl *ChatClient) {
		cl.baseURL = url
	}
}

func NewChatClient(apiKey, model string, opts ...ChatOption) *ChatClient {
	c := &ChatClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    "https://api.openai.com/v1",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the API key is set.
func (c *ChatClient) Configured() bool {
	return c.apiKey != ""
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Suggest asks the completion API for chore ideas and returns one suggestion
// per non-empty response line. Transient failures are retried with backoff;
// the context bounds the whole attempt.
func (c *ChatClient) Suggest(ctx context.Context, prompt string) ([]string, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("suggestion client not configured: missing API key")
	}

	var lines []string
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		content, err := c.complete(ctx, prompt)
		if err != nil {
			return retry.RetryableError(err)
		}
		lines = splitSuggestions(content)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *ChatClient) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You suggest age-appropriate household chores. Reply with one chore per line, no numbering."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("chat completion API error: status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

func splitSuggestions(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• \t"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
