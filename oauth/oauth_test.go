package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/plugkit/plugkit/kv"
)

func newStore(t *testing.T) *TokenStore {
	t.Helper()
	mem := kv.NewMemory()
	t.Cleanup(func() { _ = mem.Close() })
	return NewTokenStore(mem)
}

func TestTokenStoreRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	tok := &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}
	require.NoError(t, store.Save(ctx, "gitlab", tok))

	got, err := store.Load(ctx, "gitlab")
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))

	require.NoError(t, store.Delete(ctx, "gitlab"))
	_, err = store.Load(ctx, "gitlab")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestTokenStoreNamesAreScoped(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", &oauth2.Token{AccessToken: "tok-a"}))
	require.NoError(t, store.Save(ctx, "b", &oauth2.Token{AccessToken: "tok-b"}))

	got, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "tok-a", got.AccessToken)
}

func tokenServer(t *testing.T, handler http.HandlerFunc) *oauth2.Config {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:  server.URL + "/authorize",
			TokenURL: server.URL + "/token",
		},
		RedirectURL: "http://localhost/callback",
	}
}

func TestAuthURL(t *testing.T) {
	cfg := tokenServer(t, nil)
	flow := NewFlow("conn", cfg, newStore(t))

	u := flow.AuthURL("state-123")
	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, "client_id=client-id")
	assert.Contains(t, u, "access_type=offline")
}

func TestExchangePersistsToken(t *testing.T) {
	cfg := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
		assert.Equal(t, "the-code", r.FormValue("code"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "access-1", "token_type": "bearer", "refresh_token": "refresh-1", "expires_in": 3600}`)
	})
	store := newStore(t)
	flow := NewFlow("conn", cfg, store)

	tok, err := flow.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)

	saved, err := store.Load(context.Background(), "conn")
	require.NoError(t, err)
	assert.Equal(t, "access-1", saved.AccessToken)
}

func TestTokenRefreshesExpired(t *testing.T) {
	cfg := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "refresh-1", r.FormValue("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "access-2", "token_type": "bearer", "refresh_token": "refresh-2", "expires_in": 3600}`)
	})
	store := newStore(t)
	flow := NewFlow("conn", cfg, store)

	expired := &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Save(context.Background(), "conn", expired))

	tok, err := flow.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)

	// the refreshed token replaced the stored one
	saved, err := store.Load(context.Background(), "conn")
	require.NoError(t, err)
	assert.Equal(t, "access-2", saved.AccessToken)
	assert.Equal(t, "refresh-2", saved.RefreshToken)
}

func TestTokenStillValidSkipsRefresh(t *testing.T) {
	cfg := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("token endpoint should not be called")
	})
	store := newStore(t)
	flow := NewFlow("conn", cfg, store)

	valid := &oauth2.Token{AccessToken: "access-1", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, store.Save(context.Background(), "conn", valid))

	tok, err := flow.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
}

func TestTokenNeverAuthorized(t *testing.T) {
	cfg := tokenServer(t, nil)
	flow := NewFlow("conn", cfg, newStore(t))

	_, err := flow.Token(context.Background())
	assert.ErrorIs(t, err, kv.ErrNotFound)
}
