package trigger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/plugkit/plugkit/kv"
	"github.com/plugkit/plugkit/webhook"
)

const defaultDedupTTL = 24 * time.Hour

// Handler receives a delivery for each trigger it matched.
type Handler func(ctx context.Context, t Trigger, d webhook.Delivery) error

// EventIDFunc extracts a stable event identity from a delivery, used for
// deduplication across redeliveries.
type EventIDFunc func(d webhook.Delivery) string

// Dispatcher evaluates registered triggers against webhook deliveries.
// Redelivered events are dropped by remembering event IDs in a kv.Store.
type Dispatcher struct {
	store    kv.Store
	handler  Handler
	eventID  EventIDFunc
	dedupTTL time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	triggers []Trigger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithDedupTTL sets how long event IDs are remembered. Defaults to 24h.
func WithDedupTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) { d.dedupTTL = ttl }
}

// WithEventID replaces the event identity function.
func WithEventID(fn EventIDFunc) Option {
	return func(d *Dispatcher) { d.eventID = fn }
}

// NewDispatcher creates a dispatcher backed by the given store.
func NewDispatcher(store kv.Store, handler Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		handler:  handler,
		eventID:  DefaultEventID,
		dedupTTL: defaultDedupTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Add registers a trigger after validating it.
func (d *Dispatcher) Add(t Trigger) error {
	if err := t.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.triggers = append(d.triggers, t)
	d.mu.Unlock()
	return nil
}

// Triggers returns the registered triggers.
func (d *Dispatcher) Triggers() []Trigger {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Trigger, len(d.triggers))
	copy(out, d.triggers)
	return out
}

// Dispatch evaluates one delivery. A delivery whose event ID was seen
// before is dropped. Handler errors are logged and do not stop evaluation
// of the remaining triggers.
func (d *Dispatcher) Dispatch(ctx context.Context, delivery webhook.Delivery) error {
	eventID := d.eventID(delivery)
	key := "trigger:event:" + eventID

	_, err := d.store.Get(ctx, key)
	switch {
	case err == nil:
		d.logger.Info("duplicate event dropped", "endpoint", delivery.Endpoint, "event", eventID)
		return nil
	case !errors.Is(err, kv.ErrNotFound):
		return err
	}
	if err := d.store.SetTTL(ctx, key, []byte(delivery.ID), d.dedupTTL); err != nil {
		return err
	}

	d.mu.RLock()
	triggers := d.triggers
	d.mu.RUnlock()

	for _, t := range triggers {
		if !t.Matches(delivery.Endpoint, delivery.Body) {
			continue
		}
		d.logger.Info("trigger fired", "trigger", t.Name, "delivery", delivery.ID)
		if err := d.handler(ctx, t, delivery); err != nil {
			d.logger.Error("trigger handler failed", "trigger", t.Name, "delivery", delivery.ID, "error", err)
		}
	}
	return nil
}

// Bind attaches the dispatcher to a webhook mux.
func (d *Dispatcher) Bind(mux *webhook.Mux) {
	mux.OnDelivery(func(delivery webhook.Delivery) {
		if err := d.Dispatch(context.Background(), delivery); err != nil {
			d.logger.Error("dispatch failed", "delivery", delivery.ID, "error", err)
		}
	})
}

// DefaultEventID prefers the delivery ID headers set by common webhook
// senders and falls back to a hash of the payload.
func DefaultEventID(d webhook.Delivery) string {
	for _, header := range []string{"X-Github-Delivery", "X-Gitlab-Event-Uuid", "X-Request-Id"} {
		if v := d.Headers.Get(header); v != "" {
			return d.Endpoint + ":" + v
		}
	}
	sum := sha256.Sum256(d.Body)
	return d.Endpoint + ":" + hex.EncodeToString(sum[:])
}
