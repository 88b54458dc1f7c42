package goextract

import "unicode"

// Tokenize splits text into a deterministic sequence of code-point-indexed
// tokens. Whitespace separates tokens and is never itself emitted. CJK
// unified ideograph runs are classified as a single word token, matching
// the coarse segmentation the reference tokenizer uses for non-Latin
// scripts.
func Tokenize(text string) TokenizedText {
	runes := []rune(text)
	var tokens []Token

	i := 0
	n := len(runes)
	sawNewline := false
	idx := 0

	for i < n {
		if unicode.IsSpace(runes[i]) {
			if runes[i] == '\n' || runes[i] == '\r' {
				sawNewline = true
			}
			i++
			continue
		}

		start := i
		kind := classifyRuneGroup(runes, &i)

		tokens = append(tokens, Token{
			Index:                  idx,
			Kind:                   kind,
			Interval:               NewCharInterval(start, i),
			FirstTokenAfterNewline: sawNewline,
		})
		idx++
		sawNewline = false
	}

	return TokenizedText{Runes: runes, Tokens: tokens}
}

// classifyRuneGroup consumes one token's worth of runes starting at *i and
// returns its kind, advancing *i past the token.
func classifyRuneGroup(runes []rune, i *int) TokenKind {
	start := *i
	r := runes[start]

	switch {
	case unicode.IsDigit(r):
		*i++
		for *i < len(runes) && unicode.IsDigit(runes[*i]) {
			*i++
		}
		// A digit run immediately followed by '/' and another alphanumeric
		// segment is an acronym-style token (e.g. "1/2" treated the same
		// as "A/B"), matching the reference SLASH_ABBREV_REGEX behavior.
		if j, ok := consumeSlashChain(runes, *i); ok {
			*i = j
			return TokenAcronym
		}
		return TokenNumber

	case isLatinLetter(r):
		*i++
		for *i < len(runes) && isLatinLetter(runes[*i]) {
			*i++
		}
		if j, ok := consumeSlashChain(runes, *i); ok {
			*i = j
			return TokenAcronym
		}
		return TokenWord

	case isCJK(r):
		*i++
		for *i < len(runes) && isCJK(runes[*i]) {
			*i++
		}
		return TokenWord

	default:
		*i++
		for *i < len(runes) && !unicode.IsSpace(runes[*i]) && !isLatinLetter(runes[*i]) &&
			!unicode.IsDigit(runes[*i]) && !isCJK(runes[*i]) {
			*i++
		}
		return TokenPunctuation
	}
}

// consumeSlashChain checks whether runes[at] begins a "/<alnum-run>" segment
// and, if so, greedily consumes any further chained segments
// ("/<alnum-run>" repeated), returning the new position. Used to fold
// sequences like "A/B/C" or "N/A" into one acronym token.
func consumeSlashChain(runes []rune, at int) (int, bool) {
	pos := at
	matched := false
	for pos < len(runes) && runes[pos] == '/' {
		j := pos + 1
		segStart := j
		for j < len(runes) && (isLatinLetter(runes[j]) || unicode.IsDigit(runes[j])) {
			j++
		}
		if j == segStart {
			break
		}
		pos = j
		matched = true
	}
	if !matched {
		return at, false
	}
	return pos, true
}

func isLatinLetter(r rune) bool {
	return unicode.IsLetter(r) && unicode.Is(unicode.Latin, r)
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// SentenceRange returns the smallest token interval [start, k+1) such that
// token k ends a sentence: a terminal
// punctuation token not part of a known abbreviation, or a token followed
// by a newline-gap and an uppercase-starting token. If no such token
// exists, the interval runs to the end of the token sequence.
func (t TokenizedText) SentenceRange(start int) (TokenInterval, error) {
	if start < 0 || start >= len(t.Tokens) {
		return TokenInterval{}, ErrInvalidRange
	}

	for k := start; k < len(t.Tokens); k++ {
		tok := t.Tokens[k]

		prevText := ""
		if k > start {
			prevText = t.Tokens[k-1].Text(t.Runes)
		}
		if isEndOfSentenceToken(tok, t.Runes, prevText) {
			return TokenInterval{Start: start, End: k + 1}, nil
		}

		if k+1 < len(t.Tokens) {
			next := t.Tokens[k+1]
			if next.FirstTokenAfterNewline && startsWithUpper(next.Text(t.Runes)) {
				return TokenInterval{Start: start, End: k + 1}, nil
			}
		}
	}

	return TokenInterval{Start: start, End: len(t.Tokens)}, nil
}
