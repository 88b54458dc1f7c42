package goextract_test

import (
	"strings"
	"testing"

	goextract "github.com/soundprediction/go-extract"
)

func TestChunkDocumentSingleChunkWithinBudget(t *testing.T) {
	doc := goextract.NewDocument("Hello world!")
	chunker := goextract.NewChunker(goextract.ChunkerConfig{MaxCharBuffer: 1000})

	chunks, err := chunker.ChunkDocument(doc)
	if err != nil {
		t.Fatalf("ChunkDocument: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}

	sanitized, err := chunks[0].SanitizedText()
	if err != nil {
		t.Fatalf("SanitizedText: %v", err)
	}
	if sanitized != "Hello world!" {
		t.Errorf("got %q, want %q", sanitized, "Hello world!")
	}
}

func TestChunkDocumentEmptyText(t *testing.T) {
	doc := goextract.NewDocument("")
	chunker := goextract.NewChunker(goextract.ChunkerConfig{})

	chunks, err := chunker.ChunkDocument(doc)
	if err != nil {
		t.Fatalf("ChunkDocument: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks, want 0", len(chunks))
	}
}

func TestChunkDocumentSingleOverBudgetToken(t *testing.T) {
	longWord := strings.Repeat("a", 50)
	doc := goextract.NewDocument(longWord + " short")
	chunker := goextract.NewChunker(goextract.ChunkerConfig{MaxCharBuffer: 10})

	chunks, err := chunker.ChunkDocument(doc)
	if err != nil {
		t.Fatalf("ChunkDocument: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}

	text, err := chunks[0].Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != longWord {
		t.Errorf("got %q, want the over-budget token alone", text)
	}
}

func TestChunkDocumentRespectsBudget(t *testing.T) {
	text := strings.Repeat("word ", 200) + "."
	doc := goextract.NewDocument(text)
	chunker := goextract.NewChunker(goextract.ChunkerConfig{MaxCharBuffer: 50})

	chunks, err := chunker.ChunkDocument(doc)
	if err != nil {
		t.Fatalf("ChunkDocument: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for long text, got %d", len(chunks))
	}

	for i, c := range chunks {
		ci, err := c.CharInterval()
		if err != nil {
			t.Fatalf("CharInterval: %v", err)
		}
		span := ci.End - ci.Start
		if span > 50 && c.Tokens.Len() > 1 {
			t.Errorf("chunk %d spans %d chars, exceeding budget", i, span)
		}
	}
}

func TestBatchChunksGroupsFixedSize(t *testing.T) {
	doc := goextract.NewDocument("One. Two. Three. Four. Five.")
	chunker := goextract.NewChunker(goextract.ChunkerConfig{MaxCharBuffer: 5})
	chunks, err := chunker.ChunkDocument(doc)
	if err != nil {
		t.Fatalf("ChunkDocument: %v", err)
	}

	batches := goextract.BatchChunks(chunks, 2)
	total := 0
	for _, b := range batches {
		if len(b) > 2 {
			t.Errorf("batch has %d chunks, want <= 2", len(b))
		}
		total += len(b)
	}
	if total != len(chunks) {
		t.Errorf("got %d total chunks across batches, want %d", total, len(chunks))
	}
}
