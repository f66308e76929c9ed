package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tidwall/gjson"
)

const (
	defaultMaxBody    = 1 << 20 // 1 MiB
	defaultReplaySize = 4096
)

// Mux routes incoming webhook requests to registered endpoints, verifies
// them, rejects replays, and fans accepted deliveries out to consumers.
// It implements http.Handler.
type Mux struct {
	logger  *slog.Logger
	maxBody int64
	newID   func() string

	mu        sync.RWMutex
	endpoints map[string]Endpoint
	sinks     []func(Delivery)

	seen *lru.Cache[string, time.Time]
}

// MuxOption configures a Mux.
type MuxOption func(*Mux)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) MuxOption {
	return func(m *Mux) { m.logger = l }
}

// WithMaxBodySize caps the accepted request body in bytes.
func WithMaxBodySize(n int64) MuxOption {
	return func(m *Mux) { m.maxBody = n }
}

// NewMux creates a webhook mux with a replay cache of the given size.
// Size zero uses a default.
func NewMux(replaySize int, opts ...MuxOption) (*Mux, error) {
	if replaySize <= 0 {
		replaySize = defaultReplaySize
	}
	seen, err := lru.New[string, time.Time](replaySize)
	if err != nil {
		return nil, fmt.Errorf("webhook: replay cache: %w", err)
	}

	m := &Mux{
		logger:    slog.Default(),
		maxBody:   defaultMaxBody,
		newID:     uuid.NewString,
		endpoints: make(map[string]Endpoint),
		seen:      seen,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Handle registers an endpoint. Registering a second endpoint on the same
// path is an error.
func (m *Mux) Handle(ep Endpoint) error {
	if ep.Name == "" || ep.Path == "" {
		return errors.New("webhook: endpoint name and path are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.endpoints[ep.Path]; exists {
		return fmt.Errorf("webhook: path %s already registered", ep.Path)
	}
	m.endpoints[ep.Path] = ep
	return nil
}

// OnDelivery registers a consumer called synchronously for every accepted
// delivery, in registration order.
func (m *Mux) OnDelivery(fn func(Delivery)) {
	m.mu.Lock()
	m.sinks = append(m.sinks, fn)
	m.mu.Unlock()
}

func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m.mu.RLock()
	ep, ok := m.endpoints[r.URL.Path]
	m.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, m.maxBody+1))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > m.maxBody {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}

	if ep.Verifier != nil {
		if err := ep.Verifier.Verify(r, body); err != nil {
			m.logger.Warn("webhook rejected", "endpoint", ep.Name, "error", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	// Slack sends a one-time handshake that expects the challenge echoed
	// back instead of a normal delivery.
	if gjson.GetBytes(body, "type").String() == "url_verification" {
		challenge := gjson.GetBytes(body, "challenge").String()
		writeJSON(w, http.StatusOK, map[string]string{"challenge": challenge})
		return
	}

	key := replayKey(ep.Name, body)
	if _, dup := m.seen.Get(key); dup {
		m.logger.Info("webhook replay ignored", "endpoint", ep.Name)
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}
	m.seen.Add(key, time.Now())

	delivery := Delivery{
		ID:         m.newID(),
		Endpoint:   ep.Name,
		ReceivedAt: time.Now(),
		Headers:    r.Header.Clone(),
		Body:       body,
	}

	m.mu.RLock()
	sinks := m.sinks
	m.mu.RUnlock()
	for _, fn := range sinks {
		fn(delivery)
	}

	m.logger.Info("webhook accepted", "endpoint", ep.Name, "delivery", delivery.ID, "bytes", len(body))
	writeJSON(w, http.StatusAccepted, map[string]string{"id": delivery.ID})
}

func replayKey(endpoint string, body []byte) string {
	sum := sha256.Sum256(body)
	return endpoint + ":" + hex.EncodeToString(sum[:])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
