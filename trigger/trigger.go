// Package trigger matches webhook deliveries against named subscriptions
// and hands matching events to a handler. Filter conditions address the
// delivery payload with gjson paths.
package trigger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Condition ops.
const (
	OpEq       = "eq"
	OpNeq      = "neq"
	OpContains = "contains"
	OpPrefix   = "prefix"
	OpGt       = "gt"
	OpLt       = "lt"
	OpExists   = "exists"
)

// Condition is one filter clause evaluated against a JSON payload.
type Condition struct {
	// Path is a gjson path into the payload, e.g. "pull_request.state".
	Path string `json:"path" yaml:"path"`

	// Op is one of the Op* constants.
	Op string `json:"op" yaml:"op"`

	// Value is the comparison operand. Unused for "exists". For "gt" and
	// "lt" it is compared numerically when both sides parse as numbers.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// Validate checks the condition is well-formed.
func (c Condition) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("trigger: condition path is required")
	}
	switch c.Op {
	case OpEq, OpNeq, OpContains, OpPrefix, OpGt, OpLt, OpExists:
		return nil
	default:
		return fmt.Errorf("trigger: unknown condition op %q", c.Op)
	}
}

// Match evaluates the condition against the payload. Unknown ops and
// missing paths do not match (except "exists", which tests presence).
func (c Condition) Match(payload []byte) bool {
	result := gjson.GetBytes(payload, c.Path)

	switch c.Op {
	case OpExists:
		return result.Exists()
	case OpEq:
		return result.Exists() && result.String() == c.Value
	case OpNeq:
		return !result.Exists() || result.String() != c.Value
	case OpContains:
		return result.Exists() && strings.Contains(result.String(), c.Value)
	case OpPrefix:
		return result.Exists() && strings.HasPrefix(result.String(), c.Value)
	case OpGt, OpLt:
		if !result.Exists() {
			return false
		}
		return compareOrdered(c.Op, result, c.Value)
	default:
		return false
	}
}

// compareOrdered compares numerically when both operands are numbers,
// falling back to string ordering.
func compareOrdered(op string, result gjson.Result, value string) bool {
	if n, err := strconv.ParseFloat(value, 64); err == nil && result.Type == gjson.Number {
		if op == OpGt {
			return result.Float() > n
		}
		return result.Float() < n
	}
	if op == OpGt {
		return result.String() > value
	}
	return result.String() < value
}

// Trigger is a named subscription over webhook deliveries.
type Trigger struct {
	// Name identifies the trigger in handler calls and logs.
	Name string `json:"name" yaml:"name"`

	// Endpoint restricts the trigger to deliveries from one webhook
	// endpoint. Empty matches every endpoint.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Conditions must all match for the trigger to fire. An empty list
	// fires on every delivery.
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Validate checks the trigger and all its conditions.
func (t Trigger) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("trigger: name is required")
	}
	for _, c := range t.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("trigger %s: %w", t.Name, err)
		}
	}
	return nil
}

// Matches reports whether the trigger fires for a delivery from the given
// endpoint with the given payload.
func (t Trigger) Matches(endpoint string, payload []byte) bool {
	if t.Endpoint != "" && t.Endpoint != endpoint {
		return false
	}
	for _, c := range t.Conditions {
		if !c.Match(payload) {
			return false
		}
	}
	return true
}
