package goextract_test

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goextract "github.com/soundprediction/go-extract"
)

func TestNewDocumentAssignsID(t *testing.T) {
	doc := goextract.NewDocument("hello")
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "hello", doc.Text)
}

func TestDocumentTokenizedIsCachedAndConsistent(t *testing.T) {
	doc := goextract.NewDocument("Hello world!")
	first := doc.Tokenized()
	second := doc.Tokenized()
	assert.Same(t, first, second)
	assert.Len(t, first.Tokens, 3)
}

func TestAttributeValueSingleAndList(t *testing.T) {
	single := goextract.NewSingleAttribute("doctor")
	assert.False(t, single.IsList())
	v, ok := single.Single()
	assert.True(t, ok)
	assert.Equal(t, "doctor", v)
	_, ok = single.List()
	assert.False(t, ok)

	list := goextract.NewListAttribute([]string{"doctor", "researcher"})
	assert.True(t, list.IsList())
	vs, ok := list.List()
	assert.True(t, ok)
	assert.Equal(t, []string{"doctor", "researcher"}, vs)
	_, ok = list.Single()
	assert.False(t, ok)
}

func TestAttributeValueGobRoundTrip(t *testing.T) {
	original := map[string]goextract.AttributeValue{
		"role":  goextract.NewListAttribute([]string{"doctor", "researcher"}),
		"name":  goextract.NewSingleAttribute("Alice"),
	}

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(original))

	var decoded map[string]goextract.AttributeValue
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	roleList, ok := decoded["role"].List()
	require.True(t, ok)
	assert.Equal(t, []string{"doctor", "researcher"}, roleList)

	name, ok := decoded["name"].Single()
	require.True(t, ok)
	assert.Equal(t, "Alice", name)
}

func TestAnnotatedDocumentGobRoundTrip(t *testing.T) {
	ci := goextract.NewCharInterval(0, 5)
	original := goextract.AnnotatedDocument{
		DocumentID: "doc_abcd1234",
		Text:       "Alice went",
		Extractions: []goextract.Extraction{
			{
				Class:           "person",
				Text:            "Alice",
				Attributes:      map[string]goextract.AttributeValue{"role": goextract.NewSingleAttribute("lead")},
				CharInterval:    &ci,
				AlignmentStatus: goextract.StatusExact,
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(original))

	var decoded goextract.AnnotatedDocument
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	require.Len(t, decoded.Extractions, 1)
	assert.Equal(t, "Alice", decoded.Extractions[0].Text)
	assert.Equal(t, goextract.StatusExact, decoded.Extractions[0].AlignmentStatus)
	role, ok := decoded.Extractions[0].Attributes["role"].Single()
	require.True(t, ok)
	assert.Equal(t, "lead", role)
}

func TestAlignmentStatusString(t *testing.T) {
	assert.Equal(t, "exact", goextract.StatusExact.String())
	assert.Equal(t, "fuzzy", goextract.StatusFuzzy.String())
	assert.Equal(t, "unset", goextract.StatusUnset.String())
}
