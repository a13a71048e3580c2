package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SentenceIndex is a 1-based position within the kept-sentence subset.
// It is an integer internally and serializes as a string, the convention
// used by every downstream consumer (placements, feedback agents).
type SentenceIndex int

// String returns the serialized form of the index
func (i SentenceIndex) String() string {
	return strconv.Itoa(int(i))
}

// MarshalJSON serializes the index as a string
func (i SentenceIndex) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON accepts both string and numeric forms
func (i *SentenceIndex) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid sentence index %q: %w", s, err)
		}
		*i = SentenceIndex(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid sentence index: %w", err)
	}
	*i = SentenceIndex(n)
	return nil
}

// ParseSentenceIndex parses the serialized (string) form of a sentence index
func ParseSentenceIndex(s string) (SentenceIndex, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid sentence index %q: %w", s, err)
	}
	return SentenceIndex(n), nil
}

// ThresholdSource records which granularity supplied the silence threshold
// actually used when trimming a sentence
type ThresholdSource string

const (
	// ThresholdSourceClip means the sentence's own segment supplied the threshold
	ThresholdSourceClip ThresholdSource = "clip-level"
	// ThresholdSourceVideo means the whole-recording threshold was substituted
	ThresholdSourceVideo ThresholdSource = "video-level"
)

// AdjustedSentence is a kept sentence with silence-trimmed boundaries.
// Adjusted bounds always lie within the original rough bounds.
type AdjustedSentence struct {
	OriginalStart   float64         `json:"original_start"`
	OriginalEnd     float64         `json:"original_end"`
	AdjustedStart   float64         `json:"adjusted_start"`
	AdjustedEnd     float64         `json:"adjusted_end"`
	Text            string          `json:"text"`
	Index           SentenceIndex   `json:"index"`
	ThresholdSource ThresholdSource `json:"threshold_source"`
	Words           []WordTimestamp `json:"words,omitempty"`
}

// Duration returns the trimmed sentence's length in seconds
func (s AdjustedSentence) Duration() float64 {
	return s.AdjustedEnd - s.AdjustedStart
}

// AdjustedSentenceSet is an ordered collection of adjusted sentences whose
// indices are guaranteed contiguous 1..N in chronological order. Downstream
// components (timeline mapping, overlay placement) rely on that contiguity.
type AdjustedSentenceSet struct {
	Sentences []AdjustedSentence `json:"sentences"`
}

// NewAdjustedSentenceSet validates index contiguity and returns the set
func NewAdjustedSentenceSet(sentences []AdjustedSentence) (AdjustedSentenceSet, error) {
	for i, s := range sentences {
		if s.Index != SentenceIndex(i+1) {
			return AdjustedSentenceSet{}, fmt.Errorf(
				"adjusted sentence at position %d has index %s, want %d", i, s.Index, i+1)
		}
		if s.AdjustedStart < s.OriginalStart || s.AdjustedEnd > s.OriginalEnd || s.AdjustedStart > s.AdjustedEnd {
			return AdjustedSentenceSet{}, fmt.Errorf(
				"adjusted sentence %s has bounds [%f, %f] outside original [%f, %f]",
				s.Index, s.AdjustedStart, s.AdjustedEnd, s.OriginalStart, s.OriginalEnd)
		}
	}
	return AdjustedSentenceSet{Sentences: sentences}, nil
}

// Len returns the number of sentences in the set
func (set AdjustedSentenceSet) Len() int {
	return len(set.Sentences)
}

// TotalDuration returns the length in seconds of the concatenated output
func (set AdjustedSentenceSet) TotalDuration() float64 {
	total := 0.0
	for _, s := range set.Sentences {
		total += s.Duration()
	}
	return total
}

// Lookup returns the sentence with the given index, if present
func (set AdjustedSentenceSet) Lookup(idx SentenceIndex) (AdjustedSentence, bool) {
	n := int(idx)
	if n < 1 || n > len(set.Sentences) {
		return AdjustedSentence{}, false
	}
	return set.Sentences[n-1], true
}
