// Package schema reflects JSON Schemas from Go types for tool parameters
// and structured-output requests.
package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Reflector is the shared reflector. Definitions are inlined because most
// provider APIs reject $ref in request schemas.
var Reflector = &jsonschema.Reflector{
	DoNotReference: true,
}

// Generate reflects a JSON Schema from the type parameter. T should be a
// struct with json and jsonschema tags:
//
//	type Book struct {
//	    Title  string `json:"title" jsonschema:"required,description=The book title"`
//	    Author string `json:"author" jsonschema:"required"`
//	}
func Generate[T any]() (json.RawMessage, error) {
	var zero T
	return json.Marshal(Reflector.Reflect(&zero))
}

// GenerateFromValue reflects a JSON Schema from a value, for callers that
// only have an interface value rather than a type parameter.
func GenerateFromValue(v any) (json.RawMessage, error) {
	return json.Marshal(Reflector.Reflect(v))
}

// MustGenerate is Generate for package-level schema variables; it panics
// on marshal failure.
func MustGenerate[T any]() json.RawMessage {
	out, err := Generate[T]()
	if err != nil {
		panic(err)
	}
	return out
}
