// Package react parses streaming ReAct-style model output.
//
// Models prompted with the ReAct pattern interleave free-form reasoning with
// "Action:" / "Thought:" markers and embedded JSON action blobs. This package
// classifies an incrementally arriving token stream into plain text and parsed
// actions without waiting for the stream to finish: text is surfaced as soon
// as possible, the two markers are suppressed, and JSON object spans are
// buffered until their closing brace and then decoded into an Action.
package react

import "github.com/plugkit/plugkit/provider"

// Delta is one incremental fragment of a streamed model completion.
// Text may be empty (for example on a usage-only chunk).
type Delta struct {
	Text  string
	Usage *provider.Usage
}

// Chunk is one element of the parsed output stream: either a Text fragment
// or an *Action.
type Chunk interface {
	isChunk()
}

// Text is a plain text fragment of model output.
type Text string

func (Text) isChunk() {}

// Action is a tool invocation parsed from a JSON span in the output.
type Action struct {
	// Name is the tool to invoke.
	Name string

	// Input is the decoded argument value. Its concrete type is whatever
	// encoding/json produced for the matching key (string, map, slice, ...).
	Input any

	// Raw is the original JSON span text the action was parsed from.
	Raw string
}

func (*Action) isChunk() {}
