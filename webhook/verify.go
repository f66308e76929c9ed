package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrBadSignature is returned when a delivery fails authentication.
var ErrBadSignature = errors.New("webhook: bad signature")

// Verifier authenticates an incoming webhook request. The body is passed
// separately because the mux has already drained the request.
type Verifier interface {
	Verify(r *http.Request, body []byte) error
}

// HMACVerifier checks a hex-encoded HMAC-SHA256 of the request body
// carried in a header. This is the scheme used by GitHub
// (X-Hub-Signature-256) and many others; a "sha256=" prefix on the header
// value is accepted and stripped.
type HMACVerifier struct {
	// Secret is the shared signing secret.
	Secret []byte

	// Header is the header carrying the signature.
	// Defaults to "X-Hub-Signature-256".
	Header string
}

func (v *HMACVerifier) Verify(r *http.Request, body []byte) error {
	header := v.Header
	if header == "" {
		header = "X-Hub-Signature-256"
	}
	got := strings.TrimPrefix(r.Header.Get(header), "sha256=")
	if got == "" {
		return fmt.Errorf("%w: missing %s header", ErrBadSignature, header)
	}

	mac := hmac.New(sha256.New, v.Secret)
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return ErrBadSignature
	}
	return nil
}

// SlackVerifier checks Slack's v0 request signing: the signature covers
// "v0:<timestamp>:<body>" and requests older than MaxSkew are rejected to
// bound replay.
type SlackVerifier struct {
	// SigningSecret is the app's signing secret.
	SigningSecret string

	// MaxSkew bounds the age of the request timestamp. Defaults to 5 minutes.
	MaxSkew time.Duration

	// now is overridable in tests.
	now func() time.Time
}

func (v *SlackVerifier) Verify(r *http.Request, body []byte) error {
	nowFn := v.now
	if nowFn == nil {
		nowFn = time.Now
	}
	maxSkew := v.MaxSkew
	if maxSkew == 0 {
		maxSkew = 5 * time.Minute
	}

	ts := r.Header.Get("X-Slack-Request-Timestamp")
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp %q", ErrBadSignature, ts)
	}
	age := nowFn().Sub(time.Unix(unix, 0))
	if age > maxSkew || age < -maxSkew {
		return fmt.Errorf("%w: timestamp outside allowed window", ErrBadSignature)
	}

	mac := hmac.New(sha256.New, []byte(v.SigningSecret))
	fmt.Fprintf(mac, "v0:%s:%s", ts, body)
	want := "v0=" + hex.EncodeToString(mac.Sum(nil))

	got := r.Header.Get("X-Slack-Signature")
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return ErrBadSignature
	}
	return nil
}

// TokenVerifier checks a static shared token carried in a header, the
// scheme used by WeCom-style callbacks and simple internal hooks.
type TokenVerifier struct {
	// Token is the shared secret value.
	Token string

	// Header is the header carrying the token. Defaults to "X-Webhook-Token".
	Header string
}

func (v *TokenVerifier) Verify(r *http.Request, _ []byte) error {
	header := v.Header
	if header == "" {
		header = "X-Webhook-Token"
	}
	got := r.Header.Get(header)
	if subtle.ConstantTimeCompare([]byte(got), []byte(v.Token)) != 1 {
		return ErrBadSignature
	}
	return nil
}
