package handlers

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/nomis52/clubsignup/page"
)

type pageData struct {
	View      page.View
	CSRFField template.HTML
}

// PageHandler renders the activities page of the requesting session. The first
// view of a session loads the catalog.
type PageHandler struct {
	logger   *slog.Logger
	provider PageProvider
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(logger *slog.Logger, provider PageProvider) *PageHandler {
	return &PageHandler{
		logger:   logger,
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := resolvePage(w, r, h.logger, h.provider)
	if p == nil {
		return
	}
	writeHTML(w, r, h.logger, "page", pageData{
		View:      p.View(),
		CSRFField: csrfField(r),
	})
}
