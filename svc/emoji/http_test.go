package emoji_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/svc/emoji"
)

func TestHandler(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	emoji.NewHandler(emoji.NewKeyword(emoji.DefaultTable()), logger.Discard()).Routes(r)

	failing := chi.NewRouter()
	emoji.NewHandler(emoji.SuggesterFunc(func(context.Context, string, string) (string, error) {
		return "", assert.AnError
	}), logger.Discard()).Routes(failing)

	tests := []struct {
		name    string
		handler http.Handler
		body    string
		status  int
		want    string
	}{
		{name: "suggests", handler: r, body: `{"name":"Coffee chat","description":""}`, status: http.StatusOK, want: `{"emoji":"☕"}`},
		{name: "empty input", handler: r, body: `{"name":"","description":""}`, status: http.StatusBadRequest},
		{name: "bad json", handler: r, body: `[`, status: http.StatusBadRequest},
		{name: "backend failure", handler: failing, body: `{"name":"x"}`, status: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/emoji/suggest", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			if tt.want != "" {
				assert.JSONEq(t, tt.want, rec.Body.String())
			}
		})
	}
}
