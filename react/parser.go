package react

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/plugkit/plugkit/provider"
)

const (
	markerAction  = "action:"
	markerThought = "thought:"
)

// Parser scans a stream of completion deltas and splits it into text chunks
// and parsed actions. A Parser is good for a single Parse invocation; it is
// not safe for concurrent use.
type Parser struct {
	usage    provider.Usage
	hasUsage bool

	// marker matching
	word   string // marker currently being matched, "" if none
	wordAt int    // next index into word
	tagBuf []byte // matched characters in their original case

	// JSON span accumulation
	jsonBuf strings.Builder
	braces  int
	inJSON  bool

	// pending plain text, flushed at each delta boundary
	text strings.Builder

	// last character that passed through the scanner; 0 means stream start.
	// A marker match may only begin after a space, a newline, or at stream
	// start. Tabs and punctuation deliberately do not count as boundaries.
	last byte

	// set right after a full marker completes: one immediately following
	// space is consumed together with the marker
	eatSpace bool
}

// NewParser returns a Parser ready for one Parse pass.
func NewParser() *Parser {
	return &Parser{}
}

// Usage returns the usage statistics carried by the most recent delta that
// had any, and whether one was seen at all. Earlier usage values are
// overwritten, not merged.
func (p *Parser) Usage() (provider.Usage, bool) {
	return p.usage, p.hasUsage
}

// Parse lazily consumes deltas and produces the classified output stream.
//
// Every input character is accounted for exactly once: it is either consumed
// as part of a suppressed marker, emitted as part of a Text chunk, or emitted
// through an Action (whose Raw field holds the span text). Relative order is
// preserved. Malformed or unterminated JSON degrades to plain text; Parse
// never fails.
func (p *Parser) Parse(deltas iter.Seq[Delta]) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		for d := range deltas {
			if d.Usage != nil {
				p.usage = *d.Usage
				p.hasUsage = true
			}
			for i := 0; i < len(d.Text); i++ {
				if !p.scan(d.Text[i], yield) {
					return
				}
			}
			// surface accumulated text at each delta boundary so callers
			// see output as it streams in
			if !p.flushText(yield) {
				return
			}
		}
		p.finish(yield)
	}
}

// Parse is a convenience for NewParser().Parse when the usage side channel
// is not needed.
func Parse(deltas iter.Seq[Delta]) iter.Seq[Chunk] {
	return NewParser().Parse(deltas)
}

// scan feeds one byte through the automaton. Marker characters are ASCII, so
// byte-wise scanning is safe for UTF-8 input: continuation bytes match
// neither the markers nor the brace/space/newline literals.
func (p *Parser) scan(c byte, yield func(Chunk) bool) bool {
	if p.eatSpace {
		p.eatSpace = false
		if c == ' ' {
			p.last = c
			return true
		}
	}

	if !p.inJSON {
		if p.word != "" {
			if lower(c) == p.word[p.wordAt] {
				p.tagBuf = append(p.tagBuf, c)
				p.wordAt++
				if p.wordAt == len(p.word) {
					// full marker: discard it, never emit
					p.tagBuf = p.tagBuf[:0]
					p.word = ""
					p.last = c
					p.eatSpace = true
				}
				return true
			}
			// partial match broken: the buffered characters were ordinary
			// text after all; reprocess the breaking character below
			p.text.Write(p.tagBuf)
			p.last = p.tagBuf[len(p.tagBuf)-1]
			p.tagBuf = p.tagBuf[:0]
			p.word = ""
		}
		if p.boundary() {
			switch lower(c) {
			case markerAction[0]:
				p.word = markerAction
			case markerThought[0]:
				p.word = markerThought
			}
			if p.word != "" {
				p.tagBuf = append(p.tagBuf, c)
				p.wordAt = 1
				return true
			}
		}
	}

	switch {
	case c == '{':
		if !p.inJSON {
			if !p.flushText(yield) {
				return false
			}
			p.inJSON = true
		}
		p.braces++
		p.jsonBuf.WriteByte(c)
	case c == '}' && p.inJSON:
		p.jsonBuf.WriteByte(c)
		p.braces--
		if p.braces == 0 {
			p.inJSON = false
			span := p.jsonBuf.String()
			p.jsonBuf.Reset()
			p.last = c
			return yield(DecodeAction(span))
		}
	case p.inJSON:
		p.jsonBuf.WriteByte(c)
	default:
		p.text.WriteByte(c)
	}
	p.last = c
	return true
}

// finish flushes whatever is still buffered at end of input. An unterminated
// marker prefix becomes plain text; an unclosed JSON span goes through the
// same parse-or-fallback path as a closed one.
func (p *Parser) finish(yield func(Chunk) bool) {
	if len(p.tagBuf) > 0 {
		p.text.Write(p.tagBuf)
		p.tagBuf = p.tagBuf[:0]
	}
	if !p.flushText(yield) {
		return
	}
	if p.jsonBuf.Len() > 0 {
		yield(DecodeAction(p.jsonBuf.String()))
		p.jsonBuf.Reset()
	}
}

func (p *Parser) flushText(yield func(Chunk) bool) bool {
	if p.text.Len() == 0 {
		return true
	}
	t := Text(p.text.String())
	p.text.Reset()
	return yield(t)
}

// boundary reports whether a marker match may begin at the current position.
func (p *Parser) boundary() bool {
	return p.last == 0 || p.last == ' ' || p.last == '\n'
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// DecodeAction attempts to decode a JSON span into an Action. The span is
// returned unchanged as Text when it is not valid JSON, not an object (or a
// single-element array wrapping one), or lacks either the name or the input
// key. Whichever key contains the substring "input" (case-insensitive) is the
// action input; any other key supplies the action name. This heuristic is
// fragile for objects with several "input"-ish keys but is kept as the
// established wire behavior.
func DecodeAction(span string) Chunk {
	var v any
	if err := json.Unmarshal([]byte(span), &v); err != nil {
		return Text(span)
	}
	if arr, ok := v.([]any); ok && len(arr) == 1 {
		v = arr[0]
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return Text(span)
	}
	var name, input any
	for k, val := range obj {
		if strings.Contains(strings.ToLower(k), "input") {
			input = val
		} else {
			name = val
		}
	}
	if name == nil || input == nil {
		return Text(span)
	}
	nameStr, ok := name.(string)
	if !ok {
		nameStr = fmt.Sprint(name)
	}
	return &Action{Name: nameStr, Input: input, Raw: span}
}
