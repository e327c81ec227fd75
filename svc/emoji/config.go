package emoji

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Strategies selectable with EMOJI_STRATEGY.
const (
	StrategyKeyword = "keyword"
	StrategyOpenAI  = "openai"
)

// Config selects and configures the suggester.
type Config struct {
	Strategy      string        `env:"EMOJI_STRATEGY" envDefault:"keyword"`
	KeywordsFile  string        `env:"EMOJI_KEYWORDS_FILE"`
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAITimeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"15s"`
}

// New builds the configured suggester. The openai strategy falls back to
// the keyword table whenever the API call fails.
func New(cfg Config, log *slog.Logger) (Suggester, error) {
	table := DefaultTable()
	if cfg.KeywordsFile != "" {
		t, err := LoadTable(cfg.KeywordsFile)
		if err != nil {
			return nil, err
		}
		table = t
	}
	keyword := NewKeyword(table)

	switch cfg.Strategy {
	case "", StrategyKeyword:
		return keyword, nil
	case StrategyOpenAI:
		ai, err := NewOpenAI(OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIBaseURL,
			HTTPClient: newHTTPClient(cfg.OpenAITimeout),
		})
		if err != nil {
			return nil, err
		}
		return Fallback{Primary: ai, Secondary: keyword, Logger: log}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
