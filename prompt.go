package goextract

import (
	"encoding/json"
	"fmt"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// FormatType selects the wire format used to serialize few-shot examples
// and to parse LLM replies.
type FormatType int

const (
	// FormatYAML renders/parses the extractions payload as YAML.
	FormatYAML FormatType = iota
	// FormatJSON renders/parses the extractions payload as JSON.
	FormatJSON
)

const (
	defaultAttributeSuffix = "_attributes"
	defaultQuestionPrefix  = "Q: "
	defaultAnswerPrefix    = "A: "
)

// ExampleExtraction is one extraction used in a few-shot example's answer.
type ExampleExtraction struct {
	Class      string
	Text       string
	Attributes map[string]AttributeValue
}

// PromptExample is one few-shot question/answer pair.
type PromptExample struct {
	Text        string
	Extractions []ExampleExtraction
}

// PromptTemplate holds the description and few-shot examples rendered
// ahead of the current chunk's question.
type PromptTemplate struct {
	Description       string
	AdditionalContext string
	Examples          []PromptExample
}

// PromptRenderer serializes a PromptTemplate and a chunk of text into the
// single textual prompt sent to an LLM adapter.
type PromptRenderer struct {
	Format          FormatType
	FenceOutput     bool
	AttributeSuffix string
	QuestionPrefix  string
	AnswerPrefix    string
}

// NewPromptRenderer returns a PromptRenderer with the given format and
// zero-value defaults applied for the remaining fields.
func NewPromptRenderer(format FormatType, fenceOutput bool) PromptRenderer {
	return PromptRenderer{
		Format:          format,
		FenceOutput:     fenceOutput,
		AttributeSuffix: defaultAttributeSuffix,
		QuestionPrefix:  defaultQuestionPrefix,
		AnswerPrefix:    defaultAnswerPrefix,
	}
}

func (p PromptRenderer) attributeSuffix() string {
	if p.AttributeSuffix == "" {
		return defaultAttributeSuffix
	}
	return p.AttributeSuffix
}

func (p PromptRenderer) questionPrefix() string {
	if p.QuestionPrefix == "" {
		return defaultQuestionPrefix
	}
	return p.QuestionPrefix
}

func (p PromptRenderer) answerPrefix() string {
	if p.AnswerPrefix == "" {
		return defaultAnswerPrefix
	}
	return p.AnswerPrefix
}

// Render builds the full prompt for one chunk of text against a template:
// description, optional additional context, few-shot examples, then the
// current question and an empty answer prefix for the model to complete.
func (p PromptRenderer) Render(tmpl PromptTemplate, chunkText string) (string, error) {
	var b strings.Builder

	b.WriteString(tmpl.Description)
	b.WriteString("\n\n")

	if tmpl.AdditionalContext != "" {
		b.WriteString(tmpl.AdditionalContext)
		b.WriteString("\n\n")
	}

	if len(tmpl.Examples) > 0 {
		b.WriteString("Examples\n")
		for _, ex := range tmpl.Examples {
			b.WriteString(p.questionPrefix())
			b.WriteString(ex.Text)
			b.WriteString("\n")

			b.WriteString(p.answerPrefix())
			payload, err := p.serializeExtractions(ex.Extractions)
			if err != nil {
				return "", fmt.Errorf("render example: %w", err)
			}
			b.WriteString(payload)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(p.questionPrefix())
	b.WriteString(chunkText)
	b.WriteString("\n")
	b.WriteString(p.answerPrefix())

	return b.String(), nil
}

func (p PromptRenderer) serializeExtractions(extractions []ExampleExtraction) (string, error) {
	var payload string
	var err error
	switch p.Format {
	case FormatJSON:
		payload, err = p.extractionsJSON(extractions)
	default:
		payload, err = p.extractionsYAML(extractions)
	}
	if err != nil {
		return "", err
	}

	if !p.FenceOutput {
		return payload, nil
	}

	tag := "yaml"
	if p.Format == FormatJSON {
		tag = "json"
	}
	return fmt.Sprintf("```%s\n%s\n```", tag, payload), nil
}

func (p PromptRenderer) extractionsYAML(extractions []ExampleExtraction) (string, error) {
	items := make([]yaml.MapSlice, 0, len(extractions))
	for _, e := range extractions {
		item := yaml.MapSlice{
			{Key: e.Class, Value: e.Text},
			{Key: e.Class + p.attributeSuffix(), Value: attributesToPlain(e.Attributes)},
		}
		items = append(items, item)
	}
	root := yaml.MapSlice{{Key: "extractions", Value: items}}
	out, err := yaml.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("marshal yaml extractions: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func (p PromptRenderer) extractionsJSON(extractions []ExampleExtraction) (string, error) {
	var b strings.Builder
	b.WriteString("{\n  \"extractions\": [\n")
	for i, e := range extractions {
		attrs := attributesToPlain(e.Attributes)
		attrsJSON, err := json.Marshal(attrs)
		if err != nil {
			return "", fmt.Errorf("marshal json attributes: %w", err)
		}
		classJSON := mustMarshalJSON(e.Class)
		textJSON := mustMarshalJSON(e.Text)
		b.WriteString("    {\n")
		fmt.Fprintf(&b, "      %s: %s,\n", classJSON, textJSON)
		fmt.Fprintf(&b, "      %s: %s\n", mustMarshalJSON(e.Class+p.attributeSuffix()), attrsJSON)
		b.WriteString("    }")
		if i < len(extractions)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("  ]\n}")
	return b.String(), nil
}

func mustMarshalJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func attributesToPlain(attrs map[string]AttributeValue) map[string]interface{} {
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		if lst, ok := v.List(); ok {
			out[k] = lst
			continue
		}
		single, _ := v.Single()
		out[k] = single
	}
	return out
}
