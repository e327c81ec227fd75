package emoji

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/pushkit/pkg/logger"
)

// Suggester picks one emoji for a named thing, such as a group.
type Suggester interface {
	Suggest(ctx context.Context, name, description string) (string, error)
}

// SuggesterFunc adapts a function to Suggester.
type SuggesterFunc func(ctx context.Context, name, description string) (string, error)

func (f SuggesterFunc) Suggest(ctx context.Context, name, description string) (string, error) {
	return f(ctx, name, description)
}

// Fallback asks Primary first and Secondary when Primary fails.
type Fallback struct {
	Primary   Suggester
	Secondary Suggester
	Logger    *slog.Logger
}

func (f Fallback) Suggest(ctx context.Context, name, description string) (string, error) {
	glyph, err := f.Primary.Suggest(ctx, name, description)
	if err == nil {
		return glyph, nil
	}
	if f.Logger != nil {
		f.Logger.WarnContext(ctx, "emoji suggestion fell back", logger.Component("emoji"), logger.Error(err))
	}
	return f.Secondary.Suggest(ctx, name, description)
}

func validateInput(name, description string) error {
	if strings.TrimSpace(name) == "" && strings.TrimSpace(description) == "" {
		return ErrEmptyInput
	}
	return nil
}
