// Package goextract extracts typed, span-located information from long
// text using a large language model. Given a prompt template with
// few-shot examples and an input document, Annotator returns an
// AnnotatedDocument: an ordered list of Extractions, each with a class, a
// verbatim text, a character interval into the source, optional
// attributes, and an alignment confidence.
//
// The pipeline is Document -> Tokenize -> Chunker -> PromptRenderer ->
// Adapter -> Resolver -> Aligner -> Annotator, wired together by
// Annotator.AnnotateDocuments. LLM provider adapters live in the llm
// subpackage; results-cache implementations live in the cache subpackage.
package goextract
