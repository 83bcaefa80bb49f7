// Package fakeapi is an in-memory activities API for tests and local development.
//
// It serves the same endpoints and error details as the real API:
//
//   - GET /activities
//   - POST /activities/{name}/signup (form field email)
//   - DELETE /activities/{name}/unregister?email=
//
// Like the real API it does not enforce max_participants.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/nomis52/clubsignup/catalog"
)

const (
	DetailNotFound          = "Activity not found"
	DetailAlreadySignedUp   = "Student already signed up for this activity"
	DetailNotRegistered     = "Student is not registered for this activity"
	detailMissingEmailField = "email is required"
)

// Failure overrides the response of an endpoint.
type Failure struct {
	Status int
	// Body is written verbatim.
	Body string
}

// API is an in-memory activities API. The zero value is not usable; use New.
type API struct {
	mu         sync.Mutex
	names      []string
	activities map[string]*catalog.Activity
	failures   map[string]Failure
	requests   map[string]int
	mux        *http.ServeMux
}

// New creates an API serving the given activities in order.
func New(activities ...catalog.Activity) *API {
	a := &API{
		activities: make(map[string]*catalog.Activity, len(activities)),
		failures:   make(map[string]Failure),
		requests:   make(map[string]int),
	}
	for _, act := range activities {
		act.Participants = slices.Clone(act.Participants)
		a.names = append(a.names, act.Name)
		a.activities[act.Name] = &act
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /activities", a.handleList)
	mux.HandleFunc("POST /activities/{name}/signup", a.handleSignup)
	mux.HandleFunc("DELETE /activities/{name}/unregister", a.handleUnregister)
	a.mux = mux
	return a
}

// Default returns an API seeded with the school's activities.
func Default() *API {
	return New(
		catalog.Activity{Name: "Chess Club", Description: "Learn strategies and compete in chess tournaments", Schedule: "Fridays, 3:30 PM - 5:00 PM", MaxParticipants: 12, Participants: []string{"michael@mergington.edu", "daniel@mergington.edu"}},
		catalog.Activity{Name: "Programming Class", Description: "Learn programming fundamentals and build software projects", Schedule: "Tuesdays and Thursdays, 3:30 PM - 4:30 PM", MaxParticipants: 20, Participants: []string{"emma@mergington.edu", "sophia@mergington.edu"}},
		catalog.Activity{Name: "Gym Class", Description: "Physical education and sports activities", Schedule: "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM", MaxParticipants: 30, Participants: []string{"john@mergington.edu", "olivia@mergington.edu"}},
		catalog.Activity{Name: "Basketball Team", Description: "Competitive basketball team with games and tournaments", Schedule: "Mondays and Wednesdays, 4:00 PM - 6:00 PM", MaxParticipants: 15, Participants: []string{"alex@mergington.edu", "sarah@mergington.edu"}},
		catalog.Activity{Name: "Track and Field", Description: "Running, jumping, and throwing events training", Schedule: "Tuesdays and Thursdays, 4:00 PM - 5:30 PM", MaxParticipants: 25, Participants: []string{"james@mergington.edu", "maria@mergington.edu"}},
		catalog.Activity{Name: "Drama Club", Description: "Theater performances and acting workshops", Schedule: "Thursdays, 3:30 PM - 5:30 PM", MaxParticipants: 18, Participants: []string{"lucas@mergington.edu", "emily@mergington.edu"}},
		catalog.Activity{Name: "Art Studio", Description: "Painting, drawing, and creative art projects", Schedule: "Wednesdays, 3:30 PM - 5:00 PM", MaxParticipants: 16, Participants: []string{"anna@mergington.edu", "david@mergington.edu"}},
		catalog.Activity{Name: "Debate Team", Description: "Competitive debating and public speaking skills", Schedule: "Tuesdays, 3:30 PM - 5:00 PM", MaxParticipants: 14, Participants: []string{"sophia@mergington.edu", "ethan@mergington.edu"}},
		catalog.Activity{Name: "Science Olympiad", Description: "STEM competitions and scientific research projects", Schedule: "Fridays, 4:00 PM - 6:00 PM", MaxParticipants: 20, Participants: []string{"rachel@mergington.edu", "thomas@mergington.edu"}},
	)
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// Fail makes every request matching pattern (e.g. "GET /activities") answer with f
// until Recover is called.
func (a *API) Fail(pattern string, f Failure) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[pattern] = f
}

// Recover removes a failure set by Fail.
func (a *API) Recover(pattern string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.failures, pattern)
}

// Requests returns how many requests matched pattern.
func (a *API) Requests(pattern string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[pattern]
}

// Participants returns the roster of the named activity.
func (a *API) Participants(name string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	act, ok := a.activities[name]
	if !ok {
		return nil
	}
	return slices.Clone(act.Participants)
}

// begin records the request and reports an injected failure, if any.
func (a *API) begin(w http.ResponseWriter, r *http.Request) bool {
	a.mu.Lock()
	a.requests[r.Pattern]++
	f, failing := a.failures[r.Pattern]
	a.mu.Unlock()

	if !failing {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.Status)
	w.Write([]byte(f.Body))
	return true
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	if a.begin(w, r) {
		return
	}

	a.mu.Lock()
	all := make([]catalog.Activity, 0, len(a.names))
	for _, name := range a.names {
		act := *a.activities[name]
		act.Participants = slices.Clone(act.Participants)
		all = append(all, act)
	}
	a.mu.Unlock()

	cat, err := catalog.New(all...)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if a.begin(w, r) {
		return
	}

	name := r.PathValue("name")
	if err := r.ParseForm(); err != nil || !r.PostForm.Has("email") {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": detailMissingEmailField}},
		})
		return
	}
	email := r.PostForm.Get("email")

	a.mu.Lock()
	defer a.mu.Unlock()

	act, ok := a.activities[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": DetailNotFound})
		return
	}
	if slices.Contains(act.Participants, email) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": DetailAlreadySignedUp})
		return
	}
	act.Participants = append(act.Participants, email)
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Signed up %s for %s", email, name)})
}

func (a *API) handleUnregister(w http.ResponseWriter, r *http.Request) {
	if a.begin(w, r) {
		return
	}

	name := r.PathValue("name")
	if !r.URL.Query().Has("email") {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": detailMissingEmailField}},
		})
		return
	}
	email := r.URL.Query().Get("email")

	a.mu.Lock()
	defer a.mu.Unlock()

	act, ok := a.activities[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": DetailNotFound})
		return
	}
	idx := slices.Index(act.Participants, email)
	if idx < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": DetailNotRegistered})
		return
	}
	act.Participants = slices.Delete(act.Participants, idx, idx+1)
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Unregistered %s from %s", email, name)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
