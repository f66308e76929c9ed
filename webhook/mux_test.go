package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(t *testing.T, eps ...Endpoint) (*Mux, *[]Delivery) {
	t.Helper()
	mux, err := NewMux(16)
	require.NoError(t, err)

	var seq int
	mux.newID = func() string {
		seq++
		return fmt.Sprintf("delivery-%d", seq)
	}

	for _, ep := range eps {
		require.NoError(t, mux.Handle(ep))
	}

	var got []Delivery
	mux.OnDelivery(func(d Delivery) { got = append(got, d) })
	return mux, &got
}

func post(mux *Mux, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("POST", path, strings.NewReader(body))
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestMuxRoutesDelivery(t *testing.T) {
	mux, got := newTestMux(t, Endpoint{Name: "github", Path: "/hooks/github"})

	w := post(mux, "/hooks/github", `{"action": "opened"}`, map[string]string{"X-GitHub-Event": "issues"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "delivery-1", resp["id"])

	require.Len(t, *got, 1)
	d := (*got)[0]
	assert.Equal(t, "delivery-1", d.ID)
	assert.Equal(t, "github", d.Endpoint)
	assert.Equal(t, `{"action": "opened"}`, string(d.Body))
	assert.Equal(t, "issues", d.Headers.Get("X-GitHub-Event"))
	assert.False(t, d.ReceivedAt.IsZero())
}

func TestMuxVerifierRejects(t *testing.T) {
	mux, got := newTestMux(t, Endpoint{
		Name:     "internal",
		Path:     "/hooks/internal",
		Verifier: &TokenVerifier{Token: "right"},
	})

	w := post(mux, "/hooks/internal", `{}`, map[string]string{"X-Webhook-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, *got)

	w = post(mux, "/hooks/internal", `{}`, map[string]string{"X-Webhook-Token": "right"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, *got, 1)
}

func TestMuxIgnoresReplay(t *testing.T) {
	mux, got := newTestMux(t, Endpoint{Name: "github", Path: "/hooks/github"})

	body := `{"action": "opened", "number": 7}`
	w := post(mux, "/hooks/github", body, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = post(mux, "/hooks/github", body, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate")

	assert.Len(t, *got, 1)

	// a different payload is not a replay
	w = post(mux, "/hooks/github", `{"action": "closed", "number": 7}`, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, *got, 2)
}

func TestMuxSlackChallenge(t *testing.T) {
	mux, got := newTestMux(t, Endpoint{Name: "slack", Path: "/hooks/slack"})

	w := post(mux, "/hooks/slack", `{"type": "url_verification", "challenge": "abc123"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc123", resp["challenge"])
	assert.Empty(t, *got)
}

func TestMuxUnknownPath(t *testing.T) {
	mux, _ := newTestMux(t, Endpoint{Name: "github", Path: "/hooks/github"})

	w := post(mux, "/hooks/nope", `{}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMuxMethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(t, Endpoint{Name: "github", Path: "/hooks/github"})

	r := httptest.NewRequest("GET", "/hooks/github", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMuxBodyTooLarge(t *testing.T) {
	mux, err := NewMux(16, WithMaxBodySize(8))
	require.NoError(t, err)
	require.NoError(t, mux.Handle(Endpoint{Name: "tiny", Path: "/hooks/tiny"}))

	w := post(mux, "/hooks/tiny", strings.Repeat("x", 64), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandleValidation(t *testing.T) {
	mux, err := NewMux(16)
	require.NoError(t, err)

	assert.Error(t, mux.Handle(Endpoint{Path: "/x"}))
	assert.Error(t, mux.Handle(Endpoint{Name: "x"}))

	require.NoError(t, mux.Handle(Endpoint{Name: "a", Path: "/hooks/a"}))
	assert.Error(t, mux.Handle(Endpoint{Name: "b", Path: "/hooks/a"}))
}
