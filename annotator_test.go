package goextract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goextract "github.com/soundprediction/go-extract"
)

// mockAdapter returns one fixed reply per call, in call order, ignoring the
// prompt content. It records every batch it was asked to infer.
type mockAdapter struct {
	replies [][]string
	call    int
	batches [][]string
}

func (m *mockAdapter) Infer(_ context.Context, batchPrompts []string) ([][]goextract.ScoredOutput, error) {
	m.batches = append(m.batches, batchPrompts)
	if m.call >= len(m.replies) {
		return nil, errors.New("mockAdapter: no more replies configured")
	}
	replySet := m.replies[m.call]
	m.call++

	out := make([][]goextract.ScoredOutput, len(batchPrompts))
	for i := range batchPrompts {
		reply := replySet[0]
		if i < len(replySet) {
			reply = replySet[i]
		}
		out[i] = []goextract.ScoredOutput{{Score: 1, HasScore: true, Output: reply}}
	}
	return out, nil
}

// mockCache is a trivial in-memory CacheStore for exercising the
// cache-hit/cache-miss paths without a real store.
type mockCache struct {
	entries map[string]goextract.CacheEntry
	gets    int
	puts    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string]goextract.CacheEntry{}}
}

func (c *mockCache) Get(_ context.Context, documentID string) (goextract.CacheEntry, bool, error) {
	c.gets++
	entry, ok := c.entries[documentID]
	return entry, ok, nil
}

func (c *mockCache) Put(_ context.Context, documentID string, entry goextract.CacheEntry) error {
	c.puts++
	c.entries[documentID] = entry
	return nil
}

func fixedTemplate() goextract.PromptTemplate {
	return goextract.PromptTemplate{Description: "Extract people mentioned in the text."}
}

func TestAnnotatorSingleDocumentSinglePass(t *testing.T) {
	adapter := &mockAdapter{replies: [][]string{{"```yaml\n- Alice\n```"}}}
	renderer := goextract.NewPromptRenderer(goextract.FormatYAML, true)
	annotator := goextract.NewAnnotator(adapter, fixedTemplate(), renderer)

	result, err := annotator.AnnotateText(context.Background(), "Alice went to the market.", goextract.AnnotateOptions{})
	require.NoError(t, err)
	require.Len(t, result.Extractions, 1)
	assert.Equal(t, "Alice", result.Extractions[0].Text)
}

func TestAnnotatorDuplicateDocumentIDFails(t *testing.T) {
	adapter := &mockAdapter{replies: [][]string{{"```yaml\n- Alice\n```"}}}
	renderer := goextract.NewPromptRenderer(goextract.FormatYAML, true)
	annotator := goextract.NewAnnotator(adapter, fixedTemplate(), renderer)

	doc := goextract.NewDocument("Alice went to the market.")
	doc2 := *doc

	_, err := annotator.AnnotateDocuments(context.Background(), []*goextract.Document{doc, &doc2}, goextract.AnnotateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, goextract.ErrDocumentRepeat)
}

func TestAnnotatorEmptyOutputFails(t *testing.T) {
	adapter := &mockAdapter{replies: [][]string{{""}}}
	renderer := goextract.NewPromptRenderer(goextract.FormatYAML, true)
	annotator := goextract.NewAnnotator(adapter, fixedTemplate(), renderer)

	_, err := annotator.AnnotateText(context.Background(), "Alice went to the market.", goextract.AnnotateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, goextract.ErrNoOutput)
}

func TestAnnotatorMultiPassMergeIsFirstPassWins(t *testing.T) {
	text := "01234 5678 9012345"
	adapter := &mockAdapter{replies: [][]string{
		{"```yaml\nextractions:\n  - x: \"01234\"\n```"},
		{"```yaml\nextractions:\n  - x: \"01234 5678\"\n  - x: \"9012345\"\n```"},
	}}
	renderer := goextract.NewPromptRenderer(goextract.FormatYAML, true)
	annotator := goextract.NewAnnotator(adapter, fixedTemplate(), renderer)

	result, err := annotator.AnnotateText(context.Background(), text, goextract.AnnotateOptions{Passes: 2})
	require.NoError(t, err)

	var intervals [][2]int
	for _, e := range result.Extractions {
		require.NotNil(t, e.CharInterval)
		intervals = append(intervals, [2]int{e.CharInterval.Start, e.CharInterval.End})
	}
	assert.Contains(t, intervals, [2]int{0, 5})
	assert.Equal(t, [][2]int{{0, 5}, {11, 18}}, intervals)
	assert.Equal(t, 2, adapter.call)
	assert.Len(t, result.Extractions, len(intervals))
}

func TestAnnotatorCacheHitSkipsInference(t *testing.T) {
	cache := newMockCache()
	doc := goextract.NewDocument("Alice went to the market.")

	cached := goextract.AnnotatedDocument{
		DocumentID: doc.ID,
		Text:       doc.Text,
		Extractions: []goextract.Extraction{
			{Class: "person", Text: "Alice"},
		},
	}
	cache.entries[doc.ID] = goextract.CacheEntry{
		ContentHash: xxhash.Sum64String(doc.Text),
		Document:    cached,
	}

	adapter := &mockAdapter{} // no replies configured: a call would fail the test
	renderer := goextract.NewPromptRenderer(goextract.FormatYAML, true)
	annotator := goextract.NewAnnotator(adapter, fixedTemplate(), renderer)

	results, err := annotator.AnnotateDocuments(context.Background(), []*goextract.Document{doc}, goextract.AnnotateOptions{Cache: cache})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, cached, results[0])
	assert.Equal(t, 0, len(adapter.batches))
	assert.Equal(t, 1, cache.gets)
	assert.Equal(t, 0, cache.puts)
}

func TestAnnotatorCacheMissPopulatesCache(t *testing.T) {
	cache := newMockCache()
	adapter := &mockAdapter{replies: [][]string{{"```yaml\n- Alice\n```"}}}
	renderer := goextract.NewPromptRenderer(goextract.FormatYAML, true)
	annotator := goextract.NewAnnotator(adapter, fixedTemplate(), renderer)

	doc := goextract.NewDocument("Alice went to the market.")
	results, err := annotator.AnnotateDocuments(context.Background(), []*goextract.Document{doc}, goextract.AnnotateOptions{Cache: cache})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, 1, len(cache.entries))
}
