package emoji

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/pushkit/pkg/httpserver"
	"github.com/dmitrymomot/pushkit/pkg/logger"
)

// SuggestRequest is the body of POST /emoji/suggest.
type SuggestRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SuggestResponse carries the chosen emoji.
type SuggestResponse struct {
	Emoji string `json:"emoji"`
}

// Handler exposes a Suggester over HTTP.
type Handler struct {
	suggester Suggester
	logger    *slog.Logger
}

// NewHandler creates a Handler. A nil logger falls back to slog.Default().
func NewHandler(s Suggester, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{suggester: s, logger: log}
}

// Routes mounts the endpoint on r. Access control is left to the caller.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/emoji/suggest", h.suggest)
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	glyph, err := h.suggester.Suggest(r.Context(), req.Name, req.Description)
	switch {
	case errors.Is(err, ErrEmptyInput):
		httpserver.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "emoji suggestion failed", logger.Component("emoji"), logger.Error(err))
		httpserver.WriteError(w, http.StatusBadGateway, "emoji suggestion failed")
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, SuggestResponse{Emoji: glyph})
}
