// Package notifier implements the transient status banner shown after user actions.
//
// Each Show replaces the current message and schedules it to hide after a fixed
// delay. Overlapping calls coalesce: a new message cancels the previous hide
// timer, and every message carries a generation so a timer that was already
// firing when it was cancelled cannot hide a newer message.
package notifier

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nomis52/clubsignup/clock"
)

// DefaultHideAfter is how long a message stays visible.
const DefaultHideAfter = 5 * time.Second

// Severity selects the banner style.
type Severity int

const (
	// SeverityNone is the zero value, used before any message was shown.
	SeverityNone Severity = iota
	// SeveritySuccess marks a completed action.
	SeveritySuccess
	// SeverityError marks a failed action.
	SeverityError
)

// String returns the style class for the severity.
func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityError:
		return "error"
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Notification is a snapshot of the banner.
type Notification struct {
	Text       string    `json:"text"`
	Severity   Severity  `json:"severity"`
	Visible    bool      `json:"visible"`
	ShownAt    time.Time `json:"shown_at"`
	Generation uint64    `json:"generation"`
}

// Class returns the CSS class list for the banner element.
func (n Notification) Class() string {
	class := "message"
	if s := n.Severity.String(); s != "" {
		class += " " + s
	}
	if !n.Visible {
		class += " hidden"
	}
	return class
}

// Notifier holds the current banner.
type Notifier struct {
	clock     clock.Clock
	hideAfter time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	current Notification
	timer   clock.Timer
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock sets the clock used for hide timers.
func WithClock(c clock.Clock) Option {
	return func(n *Notifier) {
		n.clock = c
	}
}

// WithHideAfter sets how long a message stays visible.
// Non-positive values keep the default.
func WithHideAfter(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.hideAfter = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// New creates a Notifier with nothing shown.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		clock:     clock.NewSystem(),
		hideAfter: DefaultHideAfter,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Success shows a success message.
func (n *Notifier) Success(text string) Notification {
	return n.Show(text, SeveritySuccess)
}

// Error shows an error message.
func (n *Notifier) Error(text string) Notification {
	return n.Show(text, SeverityError)
}

// Show replaces the banner with text and schedules it to hide.
func (n *Notifier) Show(text string, severity Severity) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}

	gen := n.current.Generation + 1
	n.current = Notification{
		Text:       text,
		Severity:   severity,
		Visible:    true,
		ShownAt:    n.clock.Now(),
		Generation: gen,
	}
	n.timer = n.clock.AfterFunc(n.hideAfter, func() {
		n.hide(gen)
	})

	n.logger.Debug("notification shown", "severity", severity.String(), "text", text, "generation", gen)
	return n.current
}

// hide hides the banner if it still shows generation gen.
func (n *Notifier) hide(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current.Generation != gen {
		return
	}
	n.current.Visible = false
	n.timer = nil
}

// Current returns the banner as it is now.
func (n *Notifier) Current() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Stop cancels any pending hide timer. The banner keeps its current state.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
