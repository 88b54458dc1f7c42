package goextract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ScoredOutput is one candidate reply from an LLM adapter call, paired with
// an optional score. Adapters return outputs sorted by descending score;
// the annotator only ever consumes index 0.
type ScoredOutput struct {
	Score    float64
	HasScore bool
	Output   string
}

// Adapter is the external LLM contract: run one batch of prompts and
// return, for each prompt, its ordered candidate outputs. Implementations
// live in the llm subpackage; bounded concurrency across the batch is the
// adapter's responsibility, never the annotator's.
type Adapter interface {
	Infer(ctx context.Context, batchPrompts []string) ([][]ScoredOutput, error)
}

// CacheEntry is what a CacheStore persists per document.
type CacheEntry struct {
	ContentHash uint64
	Document    AnnotatedDocument
	StoredAt    time.Time
}

// CacheStore is the results-cache contract. A broken
// store must never fail an otherwise-successful annotate call: Get/Put
// errors are logged and treated as a miss/no-op respectively.
type CacheStore interface {
	Get(ctx context.Context, documentID string) (CacheEntry, bool, error)
	Put(ctx context.Context, documentID string, entry CacheEntry) error
}

const (
	defaultBatchLength = 1
	defaultPasses      = 1
)

// AnnotateOptions configures one AnnotateDocuments call. Zero values
// trigger the documented defaults.
type AnnotateOptions struct {
	MaxCharBuffer       int
	BatchLength         int
	Passes              int
	SuppressParseErrors bool
	EnableFuzzyAlign    bool
	FuzzyThreshold      float64
	Cache               CacheStore
	Logger              *slog.Logger
}

func (o AnnotateOptions) batchLength() int {
	if o.BatchLength <= 0 {
		return defaultBatchLength
	}
	return o.BatchLength
}

func (o AnnotateOptions) passes() int {
	if o.Passes <= 0 {
		return defaultPasses
	}
	return o.Passes
}

func (o AnnotateOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Annotator runs the end-to-end extraction pipeline: document -> chunks ->
// batches -> prompts -> LLM -> resolve -> align -> assembled
// AnnotatedDocuments.
type Annotator struct {
	LLM      Adapter
	Template PromptTemplate
	Renderer PromptRenderer
	Resolver Resolver
}

// NewAnnotator returns an Annotator wired to the given adapter, prompt
// template, and renderer; the Resolver's format is kept consistent with
// the renderer's format.
func NewAnnotator(llm Adapter, template PromptTemplate, renderer PromptRenderer) Annotator {
	return Annotator{
		LLM:      llm,
		Template: template,
		Renderer: renderer,
		Resolver: NewResolver(renderer.Format, renderer.FenceOutput),
	}
}

// AnnotateText wraps a single synthetic document around text and returns
// its AnnotatedDocument.
func (a Annotator) AnnotateText(ctx context.Context, text string, opts AnnotateOptions) (AnnotatedDocument, error) {
	doc := NewDocument(text)
	docs, err := a.AnnotateDocuments(ctx, []*Document{doc}, opts)
	if err != nil {
		return AnnotatedDocument{}, err
	}
	return docs[0], nil
}

// AnnotateDocuments runs the pipeline over docs, honoring opts.Passes with
// a first-pass-wins overlap merge across passes.
func (a Annotator) AnnotateDocuments(ctx context.Context, docs []*Document, opts AnnotateOptions) ([]AnnotatedDocument, error) {
	logger := opts.logger().With(slog.String("module", "annotator"))

	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		d.ensureID()
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDocumentRepeat, d.ID)
		}
		seen[d.ID] = struct{}{}
	}

	results := make([]AnnotatedDocument, len(docs))
	pending := make([]*Document, 0, len(docs))
	pendingIdx := make([]int, 0, len(docs))

	for i, d := range docs {
		if opts.Cache == nil {
			pending = append(pending, d)
			pendingIdx = append(pendingIdx, i)
			continue
		}
		hash := xxhash.Sum64String(d.Text)
		entry, ok, err := opts.Cache.Get(ctx, d.ID)
		if err != nil {
			logger.Warn("cache get failed, treating as miss", "document_id", d.ID, "error", err)
			ok = false
		}
		if ok && entry.ContentHash == hash {
			logger.Debug("cache hit", "document_id", d.ID)
			results[i] = entry.Document
			continue
		}
		pending = append(pending, d)
		pendingIdx = append(pendingIdx, i)
	}

	if len(pending) > 0 {
		annotated, err := a.annotateMissing(ctx, pending, opts, logger)
		if err != nil {
			return nil, err
		}
		for k, idx := range pendingIdx {
			results[idx] = annotated[k]
			if opts.Cache != nil {
				hash := xxhash.Sum64String(pending[k].Text)
				if err := opts.Cache.Put(ctx, pending[k].ID, CacheEntry{
					ContentHash: hash,
					Document:    annotated[k],
					StoredAt:    time.Now(),
				}); err != nil {
					logger.Warn("cache put failed", "document_id", pending[k].ID, "error", err)
				}
			}
		}
	}

	return results, nil
}

func (a Annotator) annotateMissing(ctx context.Context, docs []*Document, opts AnnotateOptions, logger *slog.Logger) ([]AnnotatedDocument, error) {
	passes := opts.passes()

	accum := make(map[string][]Extraction, len(docs))
	for pass := 0; pass < passes; pass++ {
		logger.Debug("running pass", "pass", pass+1, "of", passes)
		passResults, err := a.singlePass(ctx, docs, opts, logger)
		if err != nil {
			return nil, err
		}
		for id, exts := range passResults {
			if pass == 0 {
				accum[id] = exts
				continue
			}
			accum[id] = mergeNonOverlapping(accum[id], exts)
		}
	}

	out := make([]AnnotatedDocument, len(docs))
	for i, d := range docs {
		out[i] = AnnotatedDocument{
			DocumentID:  d.ID,
			Text:        d.Text,
			Extractions: accum[d.ID],
		}
	}
	return out, nil
}

// chunkRef pairs one TextChunk with the document it belongs to, so the
// flattened batch stream can accumulate results per document without a
// stateful streaming cursor.
type chunkRef struct {
	doc   *Document
	chunk TextChunk
}

func (a Annotator) singlePass(ctx context.Context, docs []*Document, opts AnnotateOptions, logger *slog.Logger) (map[string][]Extraction, error) {
	chunker := NewChunker(ChunkerConfig{MaxCharBuffer: opts.MaxCharBuffer})

	var refs []chunkRef
	for _, d := range docs {
		chunks, err := chunker.ChunkDocument(d)
		if err != nil {
			return nil, fmt.Errorf("chunk document %s: %w", d.ID, err)
		}
		for _, c := range chunks {
			refs = append(refs, chunkRef{doc: d, chunk: c})
		}
	}

	results := make(map[string][]Extraction, len(docs))
	for _, d := range docs {
		results[d.ID] = nil
	}

	batchSize := opts.batchLength()
	aligner := NewAligner(opts.EnableFuzzyAlign, opts.FuzzyThreshold)

	for start := 0; start < len(refs); start += batchSize {
		end := start + batchSize
		if end > len(refs) {
			end = len(refs)
		}
		batch := refs[start:end]

		prompts := make([]string, len(batch))
		for i, r := range batch {
			chunkText, err := r.chunk.Text()
			if err != nil {
				return nil, fmt.Errorf("chunk text: %w", err)
			}
			prompt, err := a.Renderer.Render(a.Template, chunkText)
			if err != nil {
				return nil, fmt.Errorf("render prompt: %w", err)
			}
			prompts[i] = prompt
		}

		outputs, err := a.LLM.Infer(ctx, prompts)
		if err != nil {
			return nil, &InferenceError{PromptIndex: start, Err: err}
		}
		if len(outputs) != len(batch) {
			return nil, fmt.Errorf("infer batch: expected %d outputs, got %d", len(batch), len(outputs))
		}

		for i, r := range batch {
			if len(outputs[i]) == 0 || outputs[i][0].Output == "" {
				return nil, fmt.Errorf("chunk tokens [%d,%d) of document %s: %w",
					r.chunk.Tokens.Start, r.chunk.Tokens.End, r.doc.ID, ErrNoOutput)
			}

			extractions, err := a.Resolver.Resolve(outputs[i][0].Output, opts.SuppressParseErrors)
			if err != nil {
				return nil, fmt.Errorf("document %s: %w", r.doc.ID, err)
			}

			chunkText, err := r.chunk.Text()
			if err != nil {
				return nil, fmt.Errorf("chunk text: %w", err)
			}
			ci, err := r.chunk.CharInterval()
			if err != nil {
				return nil, fmt.Errorf("chunk char interval: %w", err)
			}
			aligned := aligner.Align(extractions, chunkText, r.chunk.Tokens.Start, ci.Start)

			results[r.doc.ID] = append(results[r.doc.ID], aligned...)
		}
	}

	return results, nil
}

// mergeNonOverlapping implements first-pass-wins: accepted keeps every
// extraction from accepted, then adds each candidate from next only if its
// char interval does not overlap any already-accepted extraction.
// Extractions without a char interval never overlap, so they are always
// kept.
func mergeNonOverlapping(accepted, next []Extraction) []Extraction {
	out := make([]Extraction, len(accepted))
	copy(out, accepted)

	for _, cand := range next {
		overlaps := false
		if cand.CharInterval != nil {
			for _, a := range out {
				if a.CharInterval != nil && a.CharInterval.Overlaps(*cand.CharInterval) {
					overlaps = true
					break
				}
			}
		}
		if !overlaps {
			out = append(out, cand)
		}
	}
	return out
}
