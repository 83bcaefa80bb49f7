// Package page is the model behind the activities page.
//
// A Page owns the loaded catalog, the rendered cards, the signup form and the
// status banner. Front ends call Load, Signup and Unregister and read the result
// back with View. A Page is safe for concurrent use; requests to the API are
// made outside its lock.
package page

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"sync"

	"github.com/nomis52/clubsignup/catalog"
	"github.com/nomis52/clubsignup/clients/activityclient"
	"github.com/nomis52/clubsignup/notifier"
	"github.com/nomis52/clubsignup/render"
)

// ErrStaleLoad is returned by Load when a newer load started before the
// response arrived. The response was discarded.
var ErrStaleLoad = errors.New("stale catalog response")

// Option configures a Page.
type Option func(*Page)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Page) {
		p.logger = logger
	}
}

// WithNotifier sets the status banner.
func WithNotifier(n *notifier.Notifier) Option {
	return func(p *Page) {
		p.notifier = n
	}
}

// WithRenderer sets the card renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(p *Page) {
		p.renderer = r
	}
}

// WithMetrics sets where page activity is recorded.
func WithMetrics(m *Metrics) Option {
	return func(p *Page) {
		p.metrics = m
	}
}

// Page is the state of one activities page.
type Page struct {
	api      API
	renderer *render.Renderer
	notifier *notifier.Notifier
	metrics  *Metrics
	logger   *slog.Logger

	mu         sync.Mutex
	catalog    *catalog.Catalog
	cards      template.HTML
	loaded     bool
	loadFailed bool
	form       Form
	state      State
	// issued is the generation of the most recently started load.
	issued uint64
}

// New creates a Page backed by api. Nothing is loaded until Load is called.
func New(api API, opts ...Option) (*Page, error) {
	if api == nil {
		return nil, errors.New("api is required")
	}
	p := &Page{
		api:    api,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notifier == nil {
		p.notifier = notifier.New(notifier.WithLogger(p.logger))
	}
	if p.renderer == nil {
		r, err := render.New()
		if err != nil {
			return nil, fmt.Errorf("creating renderer: %w", err)
		}
		p.renderer = r
	}
	return p, nil
}

// Load fetches the catalog and rebuilds the cards and dropdown from it.
//
// On failure the cards are replaced by the load error message and the dropdown
// keeps its previous options. A response that arrives after a newer Load has
// started is dropped and ErrStaleLoad returned.
func (p *Page) Load(ctx context.Context) error {
	p.mu.Lock()
	p.issued++
	gen := p.issued
	p.mu.Unlock()

	cat, err := p.api.Activities(ctx)
	var cards template.HTML
	if err == nil {
		cards, err = p.renderer.Cards(cat)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.issued {
		p.logger.DebugContext(ctx, "dropping stale catalog response", "generation", gen, "latest", p.issued)
		p.metrics.load(loadOutcomeStale)
		return ErrStaleLoad
	}

	p.loaded = true
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to load activities", "error", err)
		p.cards = p.renderer.LoadError()
		p.loadFailed = true
		p.metrics.load(loadOutcomeFailure)
		return fmt.Errorf("loading activities: %w", err)
	}

	p.catalog = cat
	p.cards = cards
	p.loadFailed = false
	p.metrics.load(loadOutcomeSuccess)
	p.metrics.loaded(cat.Len())
	p.logger.DebugContext(ctx, "activities loaded", "count", cat.Len(), "generation", gen)
	return nil
}

// Signup submits the signup form.
//
// Both fields are required; when either is empty the user is told so and no
// request is sent. On success the form is cleared and the catalog reloaded once.
func (p *Page) Signup(ctx context.Context, email, activity string) Outcome {
	email = strings.TrimSpace(email)

	p.mu.Lock()
	p.form = Form{Email: email, Activity: activity}
	p.state = StateValidating
	if email == "" || activity == "" {
		p.state = StateIdle
		p.mu.Unlock()
		p.notifier.Error(MsgFillAllFields)
		p.metrics.signup(OutcomeInvalid)
		return OutcomeInvalid
	}
	p.state = StateSubmitting
	p.mu.Unlock()

	res, err := p.api.Signup(ctx, activity, email)
	outcome := p.finish(ctx, res, err, MsgSignupFailed, func() {
		p.form = Form{}
	})
	p.metrics.signup(outcome)
	p.logger.InfoContext(ctx, "signup", "activity", activity, "email", email, "outcome", outcome.String())
	return outcome
}

// Unregister removes email from activity after confirm accepts the prompt.
// When confirm declines nothing is sent and nothing changes.
func (p *Page) Unregister(ctx context.Context, activity, email string, confirm Confirmer) Outcome {
	if confirm == nil {
		confirm = Always
	}
	if !confirm.Confirm(ctx, UnregisterPrompt(activity, email)) {
		p.metrics.unregister(OutcomeDeclined)
		p.logger.DebugContext(ctx, "unregister declined", "activity", activity, "email", email)
		return OutcomeDeclined
	}

	res, err := p.api.Unregister(ctx, activity, email)
	outcome := p.finish(ctx, res, err, MsgUnregisterFailed, nil)
	p.metrics.unregister(outcome)
	p.logger.InfoContext(ctx, "unregister", "activity", activity, "email", email, "outcome", outcome.String())
	return outcome
}

// UnregisterPrompt is the question asked before removing email from activity.
func UnregisterPrompt(activity, email string) string {
	return fmt.Sprintf(unregisterPrompt, email, activity)
}

// finish shows the banner for a completed mutation and reloads on success.
// onSuccess runs under the lock before the reload.
func (p *Page) finish(ctx context.Context, res activityclient.Result, err error, generic string, onSuccess func()) Outcome {
	outcome := OutcomeSuccess
	switch {
	case err == nil:
		p.notifier.Success(res.Message)
	case errors.Is(err, activityclient.ErrTransport), errors.Is(err, activityclient.ErrDecode):
		p.logger.WarnContext(ctx, "request failed", "error", err)
		p.notifier.Error(MsgNetworkError)
		outcome = OutcomeNetworkError
	default:
		msg := generic
		var apiErr *activityclient.APIError
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			msg = apiErr.Detail
		}
		p.logger.WarnContext(ctx, "request rejected", "error", err)
		p.notifier.Error(msg)
		outcome = OutcomeRejected
	}

	p.mu.Lock()
	p.state = StateIdle
	if outcome == OutcomeSuccess && onSuccess != nil {
		onSuccess()
	}
	p.mu.Unlock()

	if outcome == OutcomeSuccess {
		// Load reports its own failure through the cards.
		_ = p.Load(ctx)
	}
	return outcome
}

// View returns a snapshot of the page.
func (p *Page) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return View{
		Cards:        p.cards,
		Options:      render.SelectOptions(p.catalog, p.form.Activity),
		Catalog:      p.catalog,
		Form:         p.form,
		Notification: p.notifier.Current(),
		State:        p.state,
		Loaded:       p.loaded,
		LoadFailed:   p.loadFailed,
	}
}

// Loaded reports whether any load has been applied.
func (p *Page) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Notification returns the current banner.
func (p *Page) Notification() notifier.Notification {
	return p.notifier.Current()
}

// Close stops the banner's hide timer.
func (p *Page) Close() {
	p.notifier.Stop()
}
