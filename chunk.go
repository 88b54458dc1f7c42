package goextract

import (
	"strings"
	"sync"
)

// defaultMaxCharBuffer is the chunk character budget used when a
// ChunkerConfig is passed with a zero value, matching the reference
// system's default.
const defaultMaxCharBuffer = 1000

// ChunkerConfig controls chunk sizing. A zero value triggers
// defaultMaxCharBuffer.
type ChunkerConfig struct {
	MaxCharBuffer int
}

func (c ChunkerConfig) maxCharBuffer() int {
	if c.MaxCharBuffer <= 0 {
		return defaultMaxCharBuffer
	}
	return c.MaxCharBuffer
}

// Chunker splits a document's tokenized text into sentence-aware,
// char-budget-respecting TextChunks.
type Chunker struct {
	cfg ChunkerConfig
}

// NewChunker returns a Chunker with the given configuration.
func NewChunker(cfg ChunkerConfig) Chunker {
	return Chunker{cfg: cfg}
}

// TextChunk is a contiguous token range of one document, with chunk text,
// sanitized text, and char interval computed lazily and cached on first
// access (single-writer: the Chunker that creates it, then whoever reads
// it next in pipeline order).
type TextChunk struct {
	Document *Document
	Tokens   TokenInterval

	mu           sync.Mutex
	text         *string
	sanitized    *string
	charInterval *CharInterval
}

// Text returns the verbatim source text spanned by the chunk's tokens.
func (c *TextChunk) Text() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.text != nil {
		return *c.text, nil
	}
	s, err := c.Document.Tokenized().TokensText(c.Tokens)
	if err != nil {
		return "", err
	}
	c.text = &s
	return s, nil
}

// SanitizedText returns the chunk text with whitespace runs collapsed to a
// single space and leading/trailing whitespace trimmed.
func (c *TextChunk) SanitizedText() (string, error) {
	c.mu.Lock()
	if c.sanitized != nil {
		defer c.mu.Unlock()
		return *c.sanitized, nil
	}
	c.mu.Unlock()

	raw, err := c.Text()
	if err != nil {
		return "", err
	}
	fields := strings.Fields(raw)
	s := strings.Join(fields, " ")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sanitized = &s
	return s, nil
}

// CharInterval returns the chunk's char span within its document's text.
func (c *TextChunk) CharInterval() (CharInterval, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.charInterval != nil {
		return *c.charInterval, nil
	}
	ci, err := c.Document.Tokenized().CharInterval(c.Tokens)
	if err != nil {
		return CharInterval{}, err
	}
	c.charInterval = &ci
	return ci, nil
}

// ChunkDocument returns the ordered sequence of TextChunks for one
// document: each sentence range is walked token-by-token, cutting at the
// char budget (preferring to cut at a newline seen within the current
// sentence), and whole sentences are then greedily folded together up to
// the budget.
func (c Chunker) ChunkDocument(doc *Document) ([]TextChunk, error) {
	budget := c.cfg.maxCharBuffer()
	tt := doc.Tokenized()

	var chunks []TextChunk
	if len(tt.Tokens) == 0 {
		return chunks, nil
	}

	pos := 0
	for pos < len(tt.Tokens) {
		sentence, err := tt.SentenceRange(pos)
		if err != nil {
			return nil, err
		}

		built, next, err := c.buildFromSentence(doc, tt, sentence, budget)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, built...)
		pos = next
	}

	return chunks, nil
}

// buildFromSentence builds one or more chunks starting at sentence.Start,
// returning the chunks produced and the next unconsumed token index.
func (c Chunker) buildFromSentence(doc *Document, tt *TokenizedText, sentence TokenInterval, budget int) ([]TextChunk, int, error) {
	start := sentence.Start

	singleTokenSpan, err := tt.CharInterval(TokenInterval{Start: start, End: start + 1})
	if err != nil {
		return nil, 0, err
	}
	if singleTokenSpan.End-singleTokenSpan.Start > budget {
		// Single over-budget token: emit alone.
		return []TextChunk{{Document: doc, Tokens: TokenInterval{Start: start, End: start + 1}}}, start + 1, nil
	}

	// Does the whole sentence fit?
	sentenceSpan, err := tt.CharInterval(sentence)
	if err != nil {
		return nil, 0, err
	}
	if sentenceSpan.End-sentenceSpan.Start <= budget {
		end, err := c.foldFollowingSentences(tt, sentence, budget)
		if err != nil {
			return nil, 0, err
		}
		return []TextChunk{{Document: doc, Tokens: TokenInterval{Start: start, End: end}}}, end, nil
	}

	// Sentence exceeds budget: walk token by token, cutting back to the
	// last newline token seen inside the sentence when the budget would
	// be exceeded, else cutting at the current position.
	var chunks []TextChunk
	cur := start
	lastNewline := -1
	for cur < sentence.End {
		end := cur + 1
		for end < sentence.End {
			span, err := tt.CharInterval(TokenInterval{Start: start, End: end + 1})
			if err != nil {
				return nil, 0, err
			}
			if span.End-span.Start > budget {
				break
			}
			if tt.Tokens[end].FirstTokenAfterNewline {
				lastNewline = end
			}
			end++
		}

		cut := end
		if lastNewline > cur && lastNewline < end {
			cut = lastNewline
		}
		if cut <= cur {
			cut = cur + 1
		}

		chunks = append(chunks, TextChunk{Document: doc, Tokens: TokenInterval{Start: cur, End: cut}})
		cur = cut
		start = cur
		lastNewline = -1
	}

	return chunks, sentence.End, nil
}

// foldFollowingSentences greedily extends a chunk that already fits the
// budget by folding in whole subsequent sentences, stopping just before the
// budget would be exceeded.
func (c Chunker) foldFollowingSentences(tt *TokenizedText, first TokenInterval, budget int) (int, error) {
	end := first.End
	for end < len(tt.Tokens) {
		next, err := tt.SentenceRange(end)
		if err != nil {
			return 0, err
		}
		span, err := tt.CharInterval(TokenInterval{Start: first.Start, End: next.End})
		if err != nil {
			return 0, err
		}
		if span.End-span.Start > budget {
			break
		}
		end = next.End
	}
	return end, nil
}

// BatchChunks groups chunks into fixed-size batches for inference. A zero
// or negative batchLength is treated as 1.
func BatchChunks(chunks []TextChunk, batchLength int) [][]TextChunk {
	if batchLength <= 0 {
		batchLength = 1
	}
	var batches [][]TextChunk
	for i := 0; i < len(chunks); i += batchLength {
		j := i + batchLength
		if j > len(chunks) {
			j = len(chunks)
		}
		batches = append(batches, chunks[i:j])
	}
	return batches
}
