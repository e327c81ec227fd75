package emoji

import "errors"

var (
	ErrEmptyInput        = errors.New("emoji: name or description is required")
	ErrInvalidTable      = errors.New("emoji: invalid keyword table")
	ErrAPIKeyRequired    = errors.New("emoji: openai api key is required")
	ErrUnknownStrategy   = errors.New("emoji: unknown strategy")
	ErrRateLimitExceeded = errors.New("emoji: rate limit exceeded")
	ErrInvalidSuggestion = errors.New("emoji: model returned no usable emoji")
	ErrRequestFailed     = errors.New("emoji: suggestion request failed")
)
