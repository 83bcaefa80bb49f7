package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nomis52/clubsignup/page"
)

const unregisterPattern = "DELETE /activities/{name}/unregister"

func TestUnregisterHandler_Prompt(t *testing.T) {
	f := newFixture(t)
	h := NewUnregisterHandler(testLogger(), f.provider)

	target := "/unregister?" + url.Values{"activity": {"Chess Club"}, "email": {"michael@mergington.edu"}}.Encode()
	w := serve(h, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Are you sure you want to unregister michael@mergington.edu from Chess Club?")
	assert.Contains(t, w.Body.String(), `name="activity" value="Chess Club"`)
	assert.Equal(t, 0, f.api.Requests(unregisterPattern), "asking sends nothing")
}

func TestUnregisterHandler_PromptEscapes(t *testing.T) {
	f := newFixture(t)
	h := NewUnregisterHandler(testLogger(), f.provider)

	target := "/unregister?" + url.Values{"activity": {"<b>x</b>"}, "email": {"a@b.c"}}.Encode()
	w := serve(h, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<b>x</b>")
	assert.Contains(t, w.Body.String(), "&lt;b&gt;x&lt;/b&gt;")
}

func TestUnregisterHandler_PromptRequiresParams(t *testing.T) {
	f := newFixture(t)
	h := NewUnregisterHandler(testLogger(), f.provider)

	w := serve(h, httptest.NewRequest(http.MethodGet, "/unregister?activity=Chess+Club", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnregisterHandler_Submit(t *testing.T) {
	tests := []struct {
		name             string
		activity         string
		email            string
		confirm          string
		wantCalls        int
		wantParticipants []string
		wantMessage      string
	}{
		{
			name:             "confirmed",
			activity:         "Chess Club",
			email:            "michael@mergington.edu",
			confirm:          "yes",
			wantCalls:        1,
			wantParticipants: []string{"daniel@mergington.edu"},
			wantMessage:      "Unregistered michael@mergington.edu from Chess Club",
		},
		{
			name:             "declined",
			activity:         "Chess Club",
			email:            "michael@mergington.edu",
			confirm:          "no",
			wantParticipants: []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			name:             "missing answer is a decline",
			activity:         "Chess Club",
			email:            "michael@mergington.edu",
			wantParticipants: []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			name:             "not registered",
			activity:         "Chess Club",
			email:            "nobody@mergington.edu",
			confirm:          "yes",
			wantCalls:        1,
			wantParticipants: []string{"michael@mergington.edu", "daniel@mergington.edu"},
			wantMessage:      "Student is not registered for this activity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			h := NewUnregisterHandler(testLogger(), f.provider)

			form := url.Values{"activity": {tt.activity}, "email": {tt.email}}
			if tt.confirm != "" {
				form.Set("confirm", tt.confirm)
			}
			w := serve(h, postForm("/unregister", form))

			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, "/", w.Header().Get("Location"))
			assert.Equal(t, tt.wantCalls, f.api.Requests(unregisterPattern))
			assert.Equal(t, tt.wantParticipants, f.api.Participants(tt.activity))
			if tt.wantMessage != "" {
				assert.Contains(t, getPage(t, f), tt.wantMessage)
			}
		})
	}
}

func TestUnregisterHandler_DeclineKeepsBanner(t *testing.T) {
	f := newFixture(t)
	serve(NewSignupHandler(testLogger(), f.provider), postForm("/signup", url.Values{}))

	serve(NewUnregisterHandler(testLogger(), f.provider), postForm("/unregister", url.Values{
		"activity": {"Chess Club"},
		"email":    {"michael@mergington.edu"},
		"confirm":  {"no"},
	}))

	assert.Contains(t, getPage(t, f), page.MsgFillAllFields)
}

func TestUnregisterHandler_SubmitRequiresFields(t *testing.T) {
	f := newFixture(t)
	w := serve(NewUnregisterHandler(testLogger(), f.provider), postForm("/unregister", url.Values{"confirm": {"yes"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.api.Requests(unregisterPattern))
}

func TestUnregisterHandler_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	w := serve(NewUnregisterHandler(testLogger(), f.provider), httptest.NewRequest(http.MethodPut, "/unregister", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, POST", w.Header().Get("Allow"))
}
