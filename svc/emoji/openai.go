package emoji

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	defaultTimeout = 15 * time.Second

	// An emoji with modifiers and joiners is a handful of code points.
	maxEmojiRunes = 16

	systemPrompt = "You pick emoji for chat groups. Reply with exactly one emoji and nothing else."
)

// OpenAIConfig configures the OpenAI suggester.
type OpenAIConfig struct {
	APIKey string
	// Model defaults to DefaultOpenAIModel.
	Model string
	// BaseURL defaults to DefaultOpenAIBaseURL.
	BaseURL string
	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client
}

// OpenAI asks a chat completion model for an emoji.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAI creates an OpenAI suggester.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return &OpenAI{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  cfg.HTTPClient,
	}, nil
}

func (o *OpenAI) Suggest(ctx context.Context, name, description string) (string, error) {
	if err := validateInput(name, description); err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Group name: %s\nDescription: %s", name, description)},
		},
		MaxTokens:   10,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrRequestFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp chatErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
			if resp.StatusCode == http.StatusTooManyRequests {
				return "", fmt.Errorf("%w: %s", ErrRateLimitExceeded, errResp.Error.Message)
			}
			return "", fmt.Errorf("%w: %s", ErrRequestFailed, errResp.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: parse response: %w", ErrRequestFailed, err)
	}
	if len(out.Choices) == 0 {
		return "", ErrInvalidSuggestion
	}

	glyph := strings.TrimSpace(out.Choices[0].Message.Content)
	if glyph == "" || utf8.RuneCountInString(glyph) > maxEmojiRunes || strings.ContainsAny(glyph, " \n\t") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSuggestion, glyph)
	}
	return glyph, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
