package handlers

import (
	"log/slog"
	"net/http"
)

// SignupHandler submits the signup form and redirects back to the page, where
// the banner shows the result.
type SignupHandler struct {
	logger   *slog.Logger
	provider PageProvider
}

// NewSignupHandler creates a new SignupHandler.
func NewSignupHandler(logger *slog.Logger, provider PageProvider) *SignupHandler {
	return &SignupHandler{
		logger:   logger,
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid form: " + err.Error()})
		return
	}
	p := resolvePage(w, r, h.logger, h.provider)
	if p == nil {
		return
	}
	p.Signup(detach(r.Context()), r.PostForm.Get("email"), r.PostForm.Get("activity"))
	redirectHome(w, r)
}
