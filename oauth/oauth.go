// Package oauth handles the authorization-code flow for integrations that
// need delegated credentials: code exchange, token refresh, and durable
// token storage on top of kv.Store.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/plugkit/plugkit/kv"
)

// TokenStore persists oauth2 tokens in a kv.Store, JSON-serialized under
// a fixed key prefix.
type TokenStore struct {
	store kv.Store
}

// NewTokenStore creates a token store.
func NewTokenStore(store kv.Store) *TokenStore {
	return &TokenStore{store: store}
}

func tokenKey(name string) string {
	return "oauth:token:" + name
}

// Save persists the token under the given connection name.
func (s *TokenStore) Save(ctx context.Context, name string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("oauth: encode token %s: %w", name, err)
	}
	return s.store.Set(ctx, tokenKey(name), data)
}

// Load retrieves the token stored under the given connection name.
// Returns kv.ErrNotFound if no token is stored.
func (s *TokenStore) Load(ctx context.Context, name string) (*oauth2.Token, error) {
	data, err := s.store.Get(ctx, tokenKey(name))
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("oauth: decode token %s: %w", name, err)
	}
	return &tok, nil
}

// Delete removes the token stored under the given connection name.
func (s *TokenStore) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, tokenKey(name))
}

// Flow drives the authorization-code flow for one named connection and
// keeps its token fresh in the store.
type Flow struct {
	name   string
	config *oauth2.Config
	store  *TokenStore
}

// NewFlow creates a flow. The name scopes the stored token, so multiple
// connections can share one store.
func NewFlow(name string, config *oauth2.Config, store *TokenStore) *Flow {
	return &Flow{name: name, config: config, store: store}
}

// AuthURL returns the URL to send the user to for consent. Offline access
// is requested so a refresh token is issued.
func (f *Flow) AuthURL(state string) string {
	return f.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and persists it.
func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth: exchange for %s: %w", f.name, err)
	}
	if err := f.store.Save(ctx, f.name, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Token returns a valid token for the connection, refreshing and
// re-persisting it when expired. Returns kv.ErrNotFound when the
// connection was never authorized.
func (f *Flow) Token(ctx context.Context) (*oauth2.Token, error) {
	tok, err := f.store.Load(ctx, f.name)
	if err != nil {
		return nil, err
	}
	if tok.Valid() {
		return tok, nil
	}

	refreshed, err := f.config.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, fmt.Errorf("oauth: refresh for %s: %w", f.name, err)
	}
	if err := f.store.Save(ctx, f.name, refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

// Client returns an http.Client that authenticates with the connection's
// token, refreshing as needed.
func (f *Flow) Client(ctx context.Context) (*http.Client, error) {
	tok, err := f.Token(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, f.config.TokenSource(ctx, tok)), nil
}
