package goextract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	yaml "gopkg.in/yaml.v2"
)

const defaultIndexSuffix = "_index"

// Resolver parses one LLM reply string into an ordered sequence of typed
// Extractions, tolerating three reply schemas:
// a structured {"extractions": [...]} payload (with an optional
// "category form" per group), a flat array of strings or objects, or a
// category map whose values are arrays or scalars.
type Resolver struct {
	Format          FormatType
	FenceOutput     bool
	AttributeSuffix string
	IndexSuffix     string
}

// NewResolver returns a Resolver with zero-value defaults applied.
func NewResolver(format FormatType, fenceOutput bool) Resolver {
	return Resolver{
		Format:          format,
		FenceOutput:     fenceOutput,
		AttributeSuffix: defaultAttributeSuffix,
		IndexSuffix:     defaultIndexSuffix,
	}
}

func (r Resolver) attributeSuffix() string {
	if r.AttributeSuffix == "" {
		return defaultAttributeSuffix
	}
	return r.AttributeSuffix
}

func (r Resolver) indexSuffix() string {
	if r.IndexSuffix == "" {
		return defaultIndexSuffix
	}
	return r.IndexSuffix
}

// Resolve parses reply into an ordered sequence of Extractions. When
// suppressParseErrors is true, a parse failure yields an empty sequence
// instead of an error.
func (r Resolver) Resolve(reply string, suppressParseErrors bool) ([]Extraction, error) {
	extractions, err := r.resolve(reply)
	if err != nil {
		if suppressParseErrors {
			return nil, nil
		}
		return nil, &ParseError{Reply: reply, Err: err}
	}
	return extractions, nil
}

func (r Resolver) resolve(reply string) ([]Extraction, error) {
	content := reply
	if r.FenceOutput {
		c, err := extractFencedContent(reply, r.Format)
		if err != nil {
			return nil, err
		}
		content = c
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrUnsupportedSchema
	}

	content, err := r.repairIfNeeded(content)
	if err != nil {
		return nil, err
	}

	groups, err := r.normalize(content)
	if err != nil {
		return nil, err
	}

	counter := 0
	var extractions []Extraction
	for gi, group := range groups {
		built, err := r.buildExtractions(group, gi, &counter)
		if err != nil {
			return nil, err
		}
		extractions = append(extractions, built...)
	}

	sort.SliceStable(extractions, func(i, j int) bool {
		if extractions[i].ExtractionIndex != extractions[j].ExtractionIndex {
			return extractions[i].ExtractionIndex < extractions[j].ExtractionIndex
		}
		return extractions[i].GroupIndex < extractions[j].GroupIndex
	})

	return extractions, nil
}

// repairIfNeeded runs the JSON-repair fallback only when the configured
// format is JSON and strict decoding rejects the content; a successful
// strict decode is never touched.
func (r Resolver) repairIfNeeded(content string) (string, error) {
	if r.Format != FormatJSON {
		return content, nil
	}
	if json.Valid([]byte(content)) {
		return content, nil
	}
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil || !json.Valid([]byte(repaired)) {
		return "", fmt.Errorf("%w: invalid json and repair failed", ErrUnsupportedSchema)
	}
	return repaired, nil
}

func extractFencedContent(reply string, format FormatType) (string, error) {
	tag := "yaml"
	if format == FormatJSON {
		tag = "json"
	}
	open := "```" + tag
	start := strings.Index(reply, open)
	if start < 0 {
		return "", ErrMissingFence
	}
	rest := reply[start+len(open):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", ErrMissingFence
	}
	return rest[:end], nil
}

// normalize parses content (already repaired/valid as JSON when
// applicable; YAML is a superset so this also handles the YAML format)
// and returns an ordered sequence of groups.
func (r Resolver) normalize(content string) ([]yaml.MapSlice, error) {
	// Try the Structured schema: a top-level object with an "extractions"
	// array.
	var structured struct {
		Extractions []yaml.MapSlice `yaml:"extractions"`
	}
	if err := yaml.Unmarshal([]byte(content), &structured); err == nil && structured.Extractions != nil {
		return structured.Extractions, nil
	}

	// Try the Flat array schema: a top-level array.
	var rawArray []yaml.MapSlice
	if err := yaml.Unmarshal([]byte(content), &rawArray); err == nil && rawArray != nil {
		if isObjectArray(content) {
			return rawArray, nil
		}
	}
	var stringArray []interface{}
	if err := yaml.Unmarshal([]byte(content), &stringArray); err == nil && stringArray != nil {
		group, err := flatArrayGroup(stringArray)
		if err != nil {
			return nil, err
		}
		return []yaml.MapSlice{group}, nil
	}

	// Try the Category map schema: a top-level object whose values are
	// arrays or scalars.
	var top yaml.MapSlice
	if err := yaml.Unmarshal([]byte(content), &top); err == nil && len(top) > 0 {
		group, err := categoryMapGroup(top)
		if err != nil {
			return nil, err
		}
		return []yaml.MapSlice{group}, nil
	}

	return nil, ErrUnsupportedSchema
}

// isObjectArray is a light heuristic distinguishing "array of objects" from
// "array of scalars" ahead of committing to the Flat-array-of-objects
// decode, since yaml.Unmarshal into []yaml.MapSlice silently produces empty
// maps for scalar elements rather than failing.
func isObjectArray(content string) bool {
	var probe []interface{}
	if err := yaml.Unmarshal([]byte(content), &probe); err != nil {
		return false
	}
	for _, v := range probe {
		switch v.(type) {
		case map[interface{}]interface{}, map[string]interface{}:
			continue
		default:
			return false
		}
	}
	return len(probe) > 0
}

func flatArrayGroup(items []interface{}) (yaml.MapSlice, error) {
	var group yaml.MapSlice
	multiple := len(items) > 1
	for i, v := range items {
		s, ok := v.(string)
		if !ok {
			return nil, ErrUnsupportedSchema
		}
		class := "text"
		if multiple {
			class = "text_" + strconv.Itoa(i)
		}
		group = append(group, yaml.MapItem{Key: class, Value: s})
	}
	return group, nil
}

func categoryMapGroup(top yaml.MapSlice) (yaml.MapSlice, error) {
	var group yaml.MapSlice
	for _, item := range top {
		key, ok := item.Key.(string)
		if !ok {
			return nil, ErrUnsupportedSchema
		}
		switch v := item.Value.(type) {
		case []interface{}:
			for _, e := range v {
				group = append(group, yaml.MapItem{Key: key, Value: e})
			}
		default:
			group = append(group, yaml.MapItem{Key: key, Value: v})
		}
	}
	return group, nil
}

// buildExtractions builds zero or more Extractions from one normalized
// group. A group with an explicit
// extraction_class/extraction_text pair is built as a single extraction;
// otherwise every non-suffix key in the group is its own extraction
// ("category form").
func (r Resolver) buildExtractions(group yaml.MapSlice, groupIndex int, counter *int) ([]Extraction, error) {
	lookup := mapSliceLookup(group)

	if classVal, ok := lookup["extraction_class"]; ok {
		textVal, hasText := lookup["extraction_text"]
		if hasText {
			ext, err := r.buildOne(group, "extraction", groupIndex, counter, classVal, textVal)
			if err != nil {
				return nil, err
			}
			return []Extraction{ext}, nil
		}
	}

	var extractions []Extraction
	for _, item := range group {
		key, ok := item.Key.(string)
		if !ok {
			continue
		}
		if strings.HasSuffix(key, r.indexSuffix()) || strings.HasSuffix(key, r.attributeSuffix()) {
			continue
		}
		if key == "extraction_class" || key == "extraction_text" {
			continue
		}
		ext, err := r.buildOne(group, key, groupIndex, counter, key, item.Value)
		if err != nil {
			return nil, err
		}
		extractions = append(extractions, ext)
	}
	return extractions, nil
}

// buildOne constructs one Extraction for logical key `key` (used to locate
// its sibling index/attribute keys) with the given class and raw text
// value.
func (r Resolver) buildOne(group yaml.MapSlice, key string, groupIndex int, counter *int, class interface{}, rawText interface{}) (Extraction, error) {
	lookup := mapSliceLookup(group)

	classStr, ok := class.(string)
	if !ok {
		classStr = fmt.Sprintf("%v", class)
	}

	text, err := convertToText(rawText)
	if err != nil {
		return Extraction{}, err
	}

	index := *counter
	*counter++
	if rawIdx, ok := lookup[key+r.indexSuffix()]; ok {
		n, ok := toInt(rawIdx)
		if !ok {
			return Extraction{}, ErrInvalidAttributeIndex
		}
		index = n
	}

	var attrs map[string]AttributeValue
	if rawAttrs, ok := lookup[key+r.attributeSuffix()]; ok && rawAttrs != nil {
		attrs, err = toAttributes(rawAttrs)
		if err != nil {
			return Extraction{}, err
		}
	}

	return Extraction{
		Class:           classStr,
		Text:            text,
		Attributes:      attrs,
		ExtractionIndex: index,
		GroupIndex:      groupIndex,
	}, nil
}

func mapSliceLookup(group yaml.MapSlice) map[string]interface{} {
	m := make(map[string]interface{}, len(group))
	for _, item := range group {
		if k, ok := item.Key.(string); ok {
			m[k] = item.Value
		}
	}
	return m
}

func convertToText(v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		return "", ErrUnsupportedExtractionText
	}
}

func toInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
	}
	return 0, false
}

func toAttributes(v interface{}) (map[string]AttributeValue, error) {
	var entries map[interface{}]interface{}
	switch t := v.(type) {
	case map[interface{}]interface{}:
		entries = t
	case yaml.MapSlice:
		entries = make(map[interface{}]interface{}, len(t))
		for _, item := range t {
			entries[item.Key] = item.Value
		}
	case map[string]interface{}:
		entries = make(map[interface{}]interface{}, len(t))
		for k, val := range t {
			entries[k] = val
		}
	default:
		return nil, ErrInvalidAttributes
	}

	out := make(map[string]AttributeValue, len(entries))
	for k, val := range entries {
		key, ok := k.(string)
		if !ok {
			return nil, ErrInvalidAttributes
		}
		switch tv := val.(type) {
		case []interface{}:
			list := make([]string, 0, len(tv))
			for _, e := range tv {
				s, _ := convertToText(e)
				list = append(list, s)
			}
			out[key] = NewListAttribute(list)
		default:
			s, err := convertToText(val)
			if err != nil {
				return nil, ErrInvalidAttributes
			}
			out[key] = NewSingleAttribute(s)
		}
	}
	return out, nil
}
