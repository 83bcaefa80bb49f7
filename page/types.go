package page

import (
	"context"
	"html/template"

	"github.com/nomis52/clubsignup/catalog"
	"github.com/nomis52/clubsignup/clients/activityclient"
	"github.com/nomis52/clubsignup/notifier"
	"github.com/nomis52/clubsignup/render"
)

// User-facing messages.
const (
	MsgFillAllFields    = "Please fill in all fields."
	MsgSignupFailed     = "An error occurred during signup."
	MsgUnregisterFailed = "An error occurred during unregistration."
	MsgNetworkError     = "Network error. Please try again later."
	unregisterPrompt    = "Are you sure you want to unregister %s from %s?"
)

// API is the subset of the activities API the page uses.
type API interface {
	Activities(ctx context.Context) (*catalog.Catalog, error)
	Signup(ctx context.Context, activity, email string) (activityclient.Result, error)
	Unregister(ctx context.Context, activity, email string) (activityclient.Result, error)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Always is a Confirmer that accepts every prompt.
var Always Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })

// State is the signup form's submission state.
type State int

const (
	// StateIdle means no submission is in progress.
	StateIdle State = iota
	// StateValidating means the form fields are being checked.
	StateValidating
	// StateSubmitting means a request is in flight.
	StateSubmitting
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Outcome is how a user action ended.
type Outcome int

const (
	// OutcomeSuccess means the server accepted the request.
	OutcomeSuccess Outcome = iota
	// OutcomeInvalid means validation failed and no request was sent.
	OutcomeInvalid
	// OutcomeDeclined means the user declined the confirmation.
	OutcomeDeclined
	// OutcomeRejected means the server answered with a non-2xx status.
	OutcomeRejected
	// OutcomeNetworkError means the request did not complete or the reply was unreadable.
	OutcomeNetworkError
)

// String returns the metrics label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeDeclined:
		return "declined"
	case OutcomeRejected:
		return "rejected"
	case OutcomeNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Failed reports whether the action ended with an error banner.
func (o Outcome) Failed() bool {
	return o == OutcomeInvalid || o == OutcomeRejected || o == OutcomeNetworkError
}

// Form holds the signup form fields.
type Form struct {
	Email    string `json:"email"`
	Activity string `json:"activity"`
}

// View is a consistent snapshot of everything the page displays.
type View struct {
	// Cards is the card list markup, or the load error message.
	Cards        template.HTML
	Options      []render.SelectOption
	Catalog      *catalog.Catalog
	Form         Form
	Notification notifier.Notification
	State        State
	// Loaded is false until a load has been applied.
	Loaded     bool
	LoadFailed bool
}
