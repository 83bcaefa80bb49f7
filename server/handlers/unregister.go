package handlers

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/nomis52/clubsignup/page"
)

const confirmYes = "yes"

type confirmData struct {
	Prompt    string
	Activity  string
	Email     string
	CSRFField template.HTML
}

// UnregisterHandler asks for confirmation on GET and removes the participant
// on a confirmed POST.
type UnregisterHandler struct {
	logger   *slog.Logger
	provider PageProvider
}

// NewUnregisterHandler creates a new UnregisterHandler.
func NewUnregisterHandler(logger *slog.Logger, provider PageProvider) *UnregisterHandler {
	return &UnregisterHandler{
		logger:   logger,
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *UnregisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.prompt(w, r)
	case http.MethodPost:
		h.submit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	}
}

func (h *UnregisterHandler) prompt(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activity, email := q.Get("activity"), q.Get("email")
	if activity == "" || email == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "activity and email are required"})
		return
	}
	writeHTML(w, r, h.logger, "confirm", confirmData{
		Prompt:    page.UnregisterPrompt(activity, email),
		Activity:  activity,
		Email:     email,
		CSRFField: csrfField(r),
	})
}

func (h *UnregisterHandler) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid form: " + err.Error()})
		return
	}
	activity, email := r.PostForm.Get("activity"), r.PostForm.Get("email")
	if activity == "" || email == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "activity and email are required"})
		return
	}
	p := resolvePage(w, r, h.logger, h.provider)
	if p == nil {
		return
	}
	answer := r.PostForm.Get("confirm") == confirmYes
	p.Unregister(detach(r.Context()), activity, email, page.ConfirmFunc(func(context.Context, string) bool {
		return answer
	}))
	redirectHome(w, r)
}
