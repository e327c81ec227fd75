package jwt

import (
	"net/http"
	"strings"

	"github.com/dmitrymomot/pushkit/pkg/httpserver"
)

// TokenExtractorFunc pulls a raw token out of a request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// SkipFunc reports whether a request bypasses verification.
type SkipFunc func(r *http.Request) bool

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	Service   *Service
	Extractor TokenExtractorFunc // defaults to BearerTokenExtractor
	Skip      SkipFunc
}

// Middleware verifies Bearer tokens with service.
func Middleware(service *Service) func(next http.Handler) http.Handler {
	return MiddlewareWithConfig(MiddlewareConfig{Service: service})
}

// MiddlewareWithConfig verifies the request token and stores the token and
// its claims in the request context. Requests without a valid token get
// 401 and a JSON error body.
func MiddlewareWithConfig(config MiddlewareConfig) func(next http.Handler) http.Handler {
	if config.Extractor == nil {
		config.Extractor = BearerTokenExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Skip != nil && config.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := config.Extractor(r)
			if err != nil {
				httpserver.WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			claims, err := config.Service.Parse(raw)
			if err != nil {
				httpserver.WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := SetToken(r.Context(), raw)
			ctx = SetClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerTokenExtractor reads "Authorization: Bearer <token>".
func BearerTokenExtractor(r *http.Request) (string, error) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

// HeaderTokenExtractor reads the token from a custom header.
func HeaderTokenExtractor(headerName string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		token := r.Header.Get(headerName)
		if token == "" {
			return "", ErrInvalidToken
		}
		return token, nil
	}
}
