package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/nomis52/clubsignup/logging"
)

const (
	cookieName = "clubsignup"
	idKey      = "id"
)

type contextKey struct{}

// Cookies keeps the session id in a signed cookie.
type Cookies struct {
	store *sessions.CookieStore
}

// NewCookies creates a cookie store signed with key. An empty key is replaced
// by a random one, so cookies do not survive a restart.
func NewCookies(key []byte, secure bool, maxAge time.Duration) *Cookies {
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Cookies{store: store}
}

// ID returns the session id of the request, issuing a new one when the request
// has no valid session cookie. The cookie is refreshed on every call so its
// lifetime slides with use.
func (c *Cookies) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	// A cookie that fails verification still yields a new, empty session.
	session, _ := c.store.Get(r, cookieName)
	if session == nil {
		return "", fmt.Errorf("creating session %q", cookieName)
	}

	id, ok := session.Values[idKey].(string)
	if !ok || id == "" {
		id = uuid.NewString()
		session.Values[idKey] = id
	}
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	return id, nil
}

// Middleware resolves the session id before calling next. The id is available
// to next through IDFromContext and is attached to records logged with the
// request context.
func (c *Cookies) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := c.ID(w, r)
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to resolve session", "error", err)
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}
			ctx := context.WithValue(r.Context(), contextKey{}, id)
			ctx = logging.ContextWith(ctx, "session", id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IDFromContext returns the session id stored by Middleware.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
