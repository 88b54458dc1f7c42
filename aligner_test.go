package goextract_test

import (
	"testing"

	goextract "github.com/soundprediction/go-extract"
)

func TestAlignerExactMatch(t *testing.T) {
	source := "Alice went to the market."
	extractions := []goextract.Extraction{{Class: "person_action", Text: "Alice went"}}

	aligner := goextract.NewAligner(false, 0)
	got := aligner.Align(extractions, source, 0, 0)

	if got[0].AlignmentStatus != goextract.StatusExact {
		t.Fatalf("got status %v, want exact", got[0].AlignmentStatus)
	}
	if got[0].CharInterval == nil {
		t.Fatal("expected a char interval")
	}
	if got[0].CharInterval.Start != 0 || got[0].CharInterval.End != 10 {
		t.Errorf("got interval [%d,%d), want [0,10)", got[0].CharInterval.Start, got[0].CharInterval.End)
	}
}

func TestAlignerFuzzyMatch(t *testing.T) {
	source := "the race involved many runners and running race participants"
	extractions := []goextract.Extraction{{Class: "event", Text: "running races"}}

	aligner := goextract.NewAligner(true, 0.3)
	got := aligner.Align(extractions, source, 0, 0)

	if got[0].AlignmentStatus != goextract.StatusFuzzy {
		t.Fatalf("got status %v, want fuzzy", got[0].AlignmentStatus)
	}
	if got[0].TokenInterval == nil {
		t.Fatal("expected a token interval")
	}
}

func TestAlignerNoFuzzyLeavesUnaligned(t *testing.T) {
	source := "completely unrelated content here"
	extractions := []goextract.Extraction{{Class: "x", Text: "nonexistent phrase"}}

	aligner := goextract.NewAligner(false, 0)
	got := aligner.Align(extractions, source, 0, 0)

	if got[0].AlignmentStatus != goextract.StatusUnset {
		t.Fatalf("got status %v, want unset", got[0].AlignmentStatus)
	}
	if got[0].CharInterval != nil {
		t.Error("expected no char interval for an unaligned extraction")
	}
}

func TestAlignerAppliesOffsets(t *testing.T) {
	source := "Alice went to the market."
	extractions := []goextract.Extraction{{Class: "person_action", Text: "Alice went"}}

	aligner := goextract.NewAligner(false, 0)
	got := aligner.Align(extractions, source, 100, 50)

	if got[0].TokenInterval.Start != 100 {
		t.Errorf("got token start %d, want 100", got[0].TokenInterval.Start)
	}
	if got[0].CharInterval.Start != 50 {
		t.Errorf("got char start %d, want 50", got[0].CharInterval.Start)
	}
}
