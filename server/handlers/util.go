package handlers

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/nomis52/clubsignup/page"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// ErrorResponse is returned when an error occurs.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeHTML renders the named template. Rendering happens into a buffer so a
// template error still produces a clean 500.
func writeHTML(w http.ResponseWriter, r *http.Request, logger *slog.Logger, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.ErrorContext(r.Context(), "failed to render template", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.DebugContext(r.Context(), "failed to write response", "error", err)
	}
}

// redirectHome sends the browser back to the page after a form post.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// resolvePage returns the session page, loading it when nothing has been
// loaded yet. It writes the error response itself and returns nil on failure.
func resolvePage(w http.ResponseWriter, r *http.Request, logger *slog.Logger, provider PageProvider) *page.Page {
	p, err := provider.Page(r)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to resolve page", "error", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return nil
	}
	if !p.Loaded() {
		// Load failures are shown in place of the cards.
		_ = p.Load(r.Context())
	}
	return p
}

// csrfField returns the hidden CSRF input, empty when protection is off.
func csrfField(r *http.Request) template.HTML {
	return csrf.TemplateField(r)
}

// detach keeps request-scoped values but drops the request's cancellation, so
// a mutation that reached the API is not abandoned when the browser navigates away.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
