package goextract

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

func gobEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Document is a single unit of input text to annotate. Its tokenization is
// computed once, lazily, and cached.
type Document struct {
	// ID uniquely identifies the document within one AnnotateDocuments
	// call. When empty, an ID is generated on first use.
	ID string
	// Text is the verbatim source text.
	Text string
	// AdditionalContext is optional free-form text folded into the
	// rendered prompt ahead of the chunk text.
	AdditionalContext string

	mu        sync.Mutex
	tokenized *TokenizedText
}

// NewDocument returns a Document with a generated ID.
func NewDocument(text string) *Document {
	return &Document{ID: genDocumentID(), Text: text}
}

func genDocumentID() string {
	return "doc_" + uuid.New().String()[:8]
}

// Tokenized returns the document's cached tokenization, computing it on
// first access. Safe for concurrent callers of the same Document, though
// the pipeline itself is single-writer per document.
func (d *Document) Tokenized() *TokenizedText {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tokenized == nil {
		tt := Tokenize(d.Text)
		d.tokenized = &tt
	}
	return d.tokenized
}

// ensureID assigns a generated ID if one was not set by the caller.
func (d *Document) ensureID() {
	if d.ID == "" {
		d.ID = genDocumentID()
	}
}

// AlignmentStatus records how an extraction's text was relocated into the
// source, or that it was not located. The variant set is closed for wire
// compatibility with the reference data model; only StatusExact and
// StatusFuzzy are ever produced by Align.
type AlignmentStatus int

const (
	// StatusUnset means alignment was not attempted or found no match.
	StatusUnset AlignmentStatus = iota
	// StatusExact means the extraction text matched a contiguous token
	// subsequence exactly (case-insensitively).
	StatusExact
	// StatusLesser is reserved for wire compatibility; never produced.
	StatusLesser
	// StatusGreater is reserved for wire compatibility; never produced.
	StatusGreater
	// StatusFuzzy means the extraction text matched via the sliding
	// window multiset-overlap heuristic.
	StatusFuzzy
)

func (s AlignmentStatus) String() string {
	switch s {
	case StatusExact:
		return "exact"
	case StatusLesser:
		return "lesser"
	case StatusGreater:
		return "greater"
	case StatusFuzzy:
		return "fuzzy"
	default:
		return "unset"
	}
}

// AttributeValue is a tagged single-string-or-list-of-strings value, used
// for extraction attributes returned by the resolver.
type AttributeValue struct {
	list   bool
	single string
	values []string
}

// NewSingleAttribute returns an AttributeValue holding one string.
func NewSingleAttribute(v string) AttributeValue {
	return AttributeValue{single: v}
}

// NewListAttribute returns an AttributeValue holding a list of strings.
func NewListAttribute(v []string) AttributeValue {
	return AttributeValue{list: true, values: v}
}

// IsList reports whether the value is a list.
func (a AttributeValue) IsList() bool { return a.list }

// Single returns the held string and true, or "" and false if this is a
// list value.
func (a AttributeValue) Single() (string, bool) {
	if a.list {
		return "", false
	}
	return a.single, true
}

// attributeValueWire is the exported shape used for gob/JSON
// (de)serialization of AttributeValue, whose fields are otherwise
// unexported to keep construction going through the New*Attribute
// constructors.
type attributeValueWire struct {
	List   bool
	Single string
	Values []string
}

// GobEncode implements gob.GobEncoder.
func (a AttributeValue) GobEncode() ([]byte, error) {
	return gobEncode(attributeValueWire{List: a.list, Single: a.single, Values: a.values})
}

// GobDecode implements gob.GobDecoder.
func (a *AttributeValue) GobDecode(data []byte) error {
	var w attributeValueWire
	if err := gobDecode(data, &w); err != nil {
		return err
	}
	a.list, a.single, a.values = w.List, w.Single, w.Values
	return nil
}

// MarshalJSON implements json.Marshaler, used by cache.RedisStore's
// JSON-encoded wire format.
func (a AttributeValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(attributeValueWire{List: a.list, Single: a.single, Values: a.values})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *AttributeValue) UnmarshalJSON(data []byte) error {
	var w attributeValueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	a.list, a.single, a.values = w.List, w.Single, w.Values
	return nil
}

// List returns the held list and true, or nil and false if this is a single
// value.
func (a AttributeValue) List() ([]string, bool) {
	if !a.list {
		return nil, false
	}
	return a.values, true
}

// Extraction is one class/text/attributes record produced by the resolver
// and, once aligned, located within the source text.
type Extraction struct {
	Class           string
	Text            string
	Description     string // never populated by Resolve; reserved for future template conventions.
	Attributes      map[string]AttributeValue
	ExtractionIndex int
	GroupIndex      int

	TokenInterval   *TokenInterval
	CharInterval    *CharInterval
	AlignmentStatus AlignmentStatus
}

// AnnotatedDocument is the final output of annotating one Document: its
// identity, source text, and ordered extractions, with no two bounded char
// intervals overlapping.
type AnnotatedDocument struct {
	DocumentID  string
	Text        string
	Extractions []Extraction
}
