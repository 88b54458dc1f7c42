package goextract

import "strings"

const (
	defaultFuzzyThreshold      = 0.75
	defaultFuzzyWindowMultiple = 3
)

// Aligner relocates extraction text back into a source chunk, producing
// token and char intervals plus an AlignmentStatus. Exact matching is
// always tried first; fuzzy matching is a guarded fallback that must never
// displace an exact hit.
type Aligner struct {
	EnableFuzzy    bool
	FuzzyThreshold float64
	// WindowMultiple bounds the fuzzy search to window sizes
	// [N, WindowMultiple*N] rather than scanning every window up to the
	// chunk length.
	WindowMultiple int
	// AcceptMatchLesser is accepted for external-interface compatibility
	// but currently has no effect: no alignment strategy here ever produces
	// a partial-match status.
	AcceptMatchLesser bool
}

// NewAligner returns an Aligner with zero-value defaults applied.
func NewAligner(enableFuzzy bool, fuzzyThreshold float64) Aligner {
	return Aligner{
		EnableFuzzy:    enableFuzzy,
		FuzzyThreshold: fuzzyThreshold,
		WindowMultiple: defaultFuzzyWindowMultiple,
	}
}

func (a Aligner) threshold() float64 {
	if a.FuzzyThreshold <= 0 {
		return defaultFuzzyThreshold
	}
	return a.FuzzyThreshold
}

func (a Aligner) windowMultiple() int {
	if a.WindowMultiple <= 0 {
		return defaultFuzzyWindowMultiple
	}
	return a.WindowMultiple
}

// Align attempts to relocate each extraction's text within sourceText
// (typically one chunk's text), offsetting the resulting intervals by
// tokenOffset/charOffset so they point into the full document. Extractions
// that cannot be located are returned unchanged (StatusUnset, nil
// intervals); this is not an error.
func (a Aligner) Align(extractions []Extraction, sourceText string, tokenOffset, charOffset int) []Extraction {
	tt := Tokenize(sourceText)
	lowerTokens := make([]string, len(tt.Tokens))
	for i, tok := range tt.Tokens {
		lowerTokens[i] = strings.ToLower(tok.Text(tt.Runes))
	}

	out := make([]Extraction, len(extractions))
	for i, ext := range extractions {
		out[i] = a.alignOne(ext, tt, lowerTokens, tokenOffset, charOffset)
	}
	return out
}

func (a Aligner) alignOne(ext Extraction, tt TokenizedText, lowerTokens []string, tokenOffset, charOffset int) Extraction {
	extTokens := strings.Fields(strings.ToLower(ext.Text))
	if len(extTokens) == 0 {
		return ext
	}

	if start, ok := findExactMatch(lowerTokens, extTokens); ok {
		return withAlignment(ext, tt, start, len(extTokens), tokenOffset, charOffset, StatusExact)
	}

	if a.EnableFuzzy {
		if start, length, ok := a.findFuzzyMatch(lowerTokens, extTokens); ok {
			return withAlignment(ext, tt, start, length, tokenOffset, charOffset, StatusFuzzy)
		}
	}

	return ext
}

func withAlignment(ext Extraction, tt TokenizedText, start, length, tokenOffset, charOffset int, status AlignmentStatus) Extraction {
	ti := TokenInterval{Start: start + tokenOffset, End: start + length + tokenOffset}
	charStart := tt.Tokens[start].Interval.Start + charOffset
	charEnd := tt.Tokens[start+length-1].Interval.End + charOffset
	ci := NewCharInterval(charStart, charEnd)

	ext.TokenInterval = &ti
	ext.CharInterval = &ci
	ext.AlignmentStatus = status
	return ext
}

// findExactMatch returns the first position where chunkTokens contains
// extTokens as a contiguous subsequence.
func findExactMatch(chunkTokens, extTokens []string) (int, bool) {
	n := len(extTokens)
	if n == 0 || n > len(chunkTokens) {
		return 0, false
	}
	for start := 0; start+n <= len(chunkTokens); start++ {
		match := true
		for j := 0; j < n; j++ {
			if chunkTokens[start+j] != extTokens[j] {
				match = false
				break
			}
		}
		if match {
			return start, true
		}
	}
	return 0, false
}

// findFuzzyMatch searches windows of size [N, min(len(chunkTokens),
// windowMultiple*N)] for the best multiset-overlap ratio against the
// normalized extraction tokens, returning the best window meeting the
// configured threshold.
func (a Aligner) findFuzzyMatch(chunkTokens, extTokens []string) (int, int, bool) {
	n := len(extTokens)
	if n == 0 || n > len(chunkTokens) {
		return 0, 0, false
	}

	normExt := make([]string, n)
	extCounts := map[string]int{}
	for i, t := range extTokens {
		norm := normalizeToken(t)
		normExt[i] = norm
		extCounts[norm]++
	}

	maxWindow := n * a.windowMultiple()
	if maxWindow > len(chunkTokens) {
		maxWindow = len(chunkTokens)
	}

	bestRatio := 0.0
	bestStart, bestLen := 0, 0
	found := false

	for windowLen := n; windowLen <= maxWindow; windowLen++ {
		for start := 0; start+windowLen <= len(chunkTokens); start++ {
			windowCounts := map[string]int{}
			for k := 0; k < windowLen; k++ {
				windowCounts[normalizeToken(chunkTokens[start+k])]++
			}
			overlap := 0
			for tok, c := range extCounts {
				if wc := windowCounts[tok]; wc < c {
					overlap += wc
				} else {
					overlap += c
				}
			}
			ratio := float64(overlap) / float64(n)
			if ratio >= a.threshold() && ratio > bestRatio {
				bestRatio = ratio
				bestStart = start
				bestLen = windowLen
				found = true
			}
		}
	}

	return bestStart, bestLen, found
}

// normalizeToken strips a light English plural suffix: a trailing "s" when
// the token is longer than 3 bytes and does not end in "ss". It does not
// lowercase; callers pass tokens that are already lowercased.
func normalizeToken(tok string) string {
	if len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") {
		return tok[:len(tok)-1]
	}
	return tok
}
