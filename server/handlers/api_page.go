package handlers

import (
	"log/slog"
	"net/http"

	"github.com/nomis52/clubsignup/catalog"
	"github.com/nomis52/clubsignup/notifier"
	"github.com/nomis52/clubsignup/page"
)

// PageResponse is the JSON form of a page snapshot.
type PageResponse struct {
	Activities   *catalog.Catalog      `json:"activities"`
	Form         page.Form             `json:"form"`
	Notification notifier.Notification `json:"notification"`
	State        page.State            `json:"state"`
	Loaded       bool                  `json:"loaded"`
	LoadFailed   bool                  `json:"load_failed"`
}

// APIPageHandler returns the requesting session's page as JSON.
type APIPageHandler struct {
	logger   *slog.Logger
	provider PageProvider
}

// NewAPIPageHandler creates a new APIPageHandler.
func NewAPIPageHandler(logger *slog.Logger, provider PageProvider) *APIPageHandler {
	return &APIPageHandler{
		logger:   logger,
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *APIPageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := resolvePage(w, r, h.logger, h.provider)
	if p == nil {
		return
	}
	v := p.View()
	writeJSON(w, http.StatusOK, PageResponse{
		Activities:   v.Catalog,
		Form:         v.Form,
		Notification: v.Notification,
		State:        v.State,
		Loaded:       v.Loaded,
		LoadFailed:   v.LoadFailed,
	})
}
