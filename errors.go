package goextract

import (
	"errors"
	"strconv"
)

// Sentinel errors returned by the pipeline's components. Callers should use
// errors.Is against these rather than matching on message text.
var (
	// ErrInvalidRange is returned when a token or char interval is malformed:
	// start >= end, or an index past the end of the underlying sequence.
	ErrInvalidRange = errors.New("goextract: invalid range")

	// ErrEmptyToken is returned when a non-empty token interval produces an
	// empty string, which indicates a bug in tokenization or interval math.
	ErrEmptyToken = errors.New("goextract: unexpected empty token text")

	// ErrDocumentRepeat is returned by the annotator when two input
	// documents share the same ID.
	ErrDocumentRepeat = errors.New("goextract: duplicate document id")

	// ErrNoOutput is returned when an LLM adapter returns zero scored
	// outputs for a prompt, or a top output with empty text.
	ErrNoOutput = errors.New("goextract: llm adapter returned no output")

	// ErrMissingFence is returned by the resolver when fencing is enabled
	// but the expected fenced block is not found in the reply.
	ErrMissingFence = errors.New("goextract: fenced content not found")

	// ErrUnsupportedSchema is returned when a parsed reply does not match
	// any of the resolver's accepted schemas.
	ErrUnsupportedSchema = errors.New("goextract: unsupported extraction schema")

	// ErrInvalidAttributeIndex is returned when an extraction's "_index"
	// sibling key is present but not an integer.
	ErrInvalidAttributeIndex = errors.New("goextract: extraction index is not an integer")

	// ErrInvalidAttributes is returned when an extraction's "_attributes"
	// sibling key is present but is neither an object nor null.
	ErrInvalidAttributes = errors.New("goextract: extraction attributes must be an object")

	// ErrUnsupportedExtractionText is returned when an extraction's text
	// value cannot be converted to a string (e.g. it is itself an array
	// or object).
	ErrUnsupportedExtractionText = errors.New("goextract: extraction text has unsupported type")
)

// ParseError wraps a resolver failure with the reply excerpt that caused it,
// so callers can log or display useful context without the full payload.
type ParseError struct {
	Reply string
	Err   error
}

func (e *ParseError) Error() string {
	excerpt := e.Reply
	if len(excerpt) > 200 {
		excerpt = excerpt[:200] + "..."
	}
	return "goextract: parse reply: " + e.Err.Error() + ": " + excerpt
}

func (e *ParseError) Unwrap() error { return e.Err }

// InferenceError wraps an LLM adapter failure with PromptIndex, the index of
// the failed batch's first prompt in the flattened chunk-prompt stream (an
// adapter fails a whole batch at once).
type InferenceError struct {
	PromptIndex int
	Err         error
}

func (e *InferenceError) Error() string {
	return "goextract: infer prompt " + strconv.Itoa(e.PromptIndex) + ": " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error { return e.Err }
