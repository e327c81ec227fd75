package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/pushkit/pkg/httpserver"
	"github.com/dmitrymomot/pushkit/pkg/jwt"
)

// SetAdminRequest is the body of POST /admin/claims.
type SetAdminRequest struct {
	UserID  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
}

// Handler exposes Service over HTTP. Routes expect the jwt middleware to
// have authenticated the caller.
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the admin endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/admin/claims", h.setAdmin)
}

func (h *Handler) setAdmin(w http.ResponseWriter, r *http.Request) {
	var req SetAdminRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.SetAdmin(r.Context(), jwt.UserID(r.Context()), req.UserID, req.IsAdmin)
	if err != nil {
		status := StatusCode(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = ErrInternal.Error()
		}
		httpserver.WriteError(w, status, msg)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, res)
}

// RequireAdmin rejects callers that are not admins with 403. It must run
// after the jwt middleware.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := h.svc.IsAdmin(r.Context(), jwt.UserID(r.Context()))
		switch {
		case err != nil:
			httpserver.WriteError(w, StatusCode(err), err.Error())
			return
		case !ok:
			httpserver.WriteError(w, http.StatusForbidden, ErrPermissionDenied.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
