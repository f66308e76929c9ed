// Package webhook receives inbound event deliveries over HTTP: endpoint
// registration, signature verification, replay rejection, and fan-out to
// consumers such as the trigger dispatcher and the websocket feed.
package webhook

import (
	"net/http"
	"time"
)

// Delivery is one accepted webhook event.
type Delivery struct {
	// ID uniquely identifies this delivery within the host.
	ID string `json:"id"`

	// Endpoint is the name of the endpoint that received the event.
	Endpoint string `json:"endpoint"`

	// ReceivedAt is when the mux accepted the delivery.
	ReceivedAt time.Time `json:"received_at"`

	// Headers are the request headers as received.
	Headers http.Header `json:"headers"`

	// Body is the raw request body.
	Body []byte `json:"body"`
}

// Endpoint binds a named webhook receiver to a URL path.
type Endpoint struct {
	// Name identifies the endpoint in deliveries and logs.
	Name string

	// Path is the URL path the endpoint listens on, e.g. "/hooks/github".
	Path string

	// Verifier authenticates incoming requests. Nil accepts everything;
	// only use that behind a trusted proxy.
	Verifier Verifier
}
