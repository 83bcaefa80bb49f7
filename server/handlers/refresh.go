package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nomis52/clubsignup/page"
)

// RefreshHandler reloads the catalog of the requesting session.
type RefreshHandler struct {
	logger   *slog.Logger
	provider PageProvider
}

// NewRefreshHandler creates a new RefreshHandler.
func NewRefreshHandler(logger *slog.Logger, provider PageProvider) *RefreshHandler {
	return &RefreshHandler{
		logger:   logger,
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, err := h.provider.Page(r)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to resolve page", "error", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	if err := p.Load(r.Context()); err != nil && !errors.Is(err, page.ErrStaleLoad) {
		h.logger.DebugContext(r.Context(), "refresh failed", "error", err)
	}
	redirectHome(w, r)
}
