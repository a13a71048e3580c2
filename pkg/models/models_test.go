package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSentences(t *testing.T) {
	tr := Transcript{
		Segments: []TranscriptSegment{
			{
				Text:  "Hello world. How are you",
				Start: 0.0,
				End:   3.0,
				Words: []WordTimestamp{
					{Word: "Hello", Start: 0.0, End: 0.4},
					{Word: "world.", Start: 0.5, End: 0.9},
					{Word: "How", Start: 1.2, End: 1.4},
					{Word: "are", Start: 1.5, End: 1.7},
				},
			},
			{
				Text:  "you?",
				Start: 3.0,
				End:   3.5,
				Words: []WordTimestamp{
					{Word: "you?", Start: 3.0, End: 3.4},
				},
			},
		},
	}

	sentences := tr.BuildSentences()
	require.Len(t, sentences, 2)

	assert.Equal(t, "Hello world.", sentences[0].Text)
	assert.Equal(t, 0.0, sentences[0].Start)
	assert.Equal(t, 0.9, sentences[0].End)

	// Second sentence spans the segment boundary
	assert.Equal(t, "How are you?", sentences[1].Text)
	assert.Equal(t, 1.2, sentences[1].Start)
	assert.Equal(t, 3.4, sentences[1].End)
}

func TestBuildSentencesTrailingWords(t *testing.T) {
	tr := Transcript{
		Segments: []TranscriptSegment{
			{
				Words: []WordTimestamp{
					{Word: "no", Start: 0.0, End: 0.2},
					{Word: "punctuation", Start: 0.3, End: 0.8},
				},
			},
		},
	}

	sentences := tr.BuildSentences()
	require.Len(t, sentences, 1)
	assert.Equal(t, "no punctuation", sentences[0].Text)
	assert.Equal(t, 0.8, sentences[0].End)
}

func TestBuildSentencesPrefersProviderSentences(t *testing.T) {
	tr := Transcript{
		Sentences: []Sentence{{Text: "Provided.", Start: 1, End: 2}},
		Segments: []TranscriptSegment{
			{Words: []WordTimestamp{{Word: "ignored.", Start: 0, End: 1}}},
		},
	}

	sentences := tr.BuildSentences()
	require.Len(t, sentences, 1)
	assert.Equal(t, "Provided.", sentences[0].Text)
}

func TestNewEditingResult(t *testing.T) {
	sentences := []Sentence{
		{Text: "one."},
		{Text: "two."},
		{Text: "three."},
	}
	decision := EditingDecision{
		Thoughts:          "cut the filler",
		SentencesToRemove: []int{2},
	}

	result := NewEditingResult(decision, sentences)
	require.Len(t, result.SentenceResults, 3)

	assert.True(t, result.Keep(1))
	assert.False(t, result.Keep(2))
	assert.True(t, result.Keep(3))
	assert.Equal(t, "two.", result.SentenceResults["2"].Text)

	// Sentences without a verdict default to kept
	assert.True(t, result.Keep(99))
}

func TestSentenceIndexJSON(t *testing.T) {
	data, err := json.Marshal(SentenceIndex(7))
	require.NoError(t, err)
	assert.Equal(t, `"7"`, string(data))

	var idx SentenceIndex
	require.NoError(t, json.Unmarshal([]byte(`"12"`), &idx))
	assert.Equal(t, SentenceIndex(12), idx)

	// Numeric form is accepted too
	require.NoError(t, json.Unmarshal([]byte(`3`), &idx))
	assert.Equal(t, SentenceIndex(3), idx)

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &idx))
}

func TestNewAdjustedSentenceSetContiguity(t *testing.T) {
	good := []AdjustedSentence{
		{Index: 1, OriginalStart: 0, OriginalEnd: 2, AdjustedStart: 0.1, AdjustedEnd: 1.9},
		{Index: 2, OriginalStart: 5, OriginalEnd: 8, AdjustedStart: 5.2, AdjustedEnd: 7.8},
	}
	set, err := NewAdjustedSentenceSet(good)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.InDelta(t, 4.4, set.TotalDuration(), 1e-9)

	// Indices must be contiguous starting at 1
	bad := []AdjustedSentence{
		{Index: 1, OriginalEnd: 1, AdjustedEnd: 1},
		{Index: 3, OriginalStart: 2, OriginalEnd: 3, AdjustedStart: 2, AdjustedEnd: 3},
	}
	_, err = NewAdjustedSentenceSet(bad)
	assert.Error(t, err)
}

func TestNewAdjustedSentenceSetBoundsInvariant(t *testing.T) {
	outOfBounds := []AdjustedSentence{
		{Index: 1, OriginalStart: 1.0, OriginalEnd: 2.0, AdjustedStart: 0.5, AdjustedEnd: 1.5},
	}
	_, err := NewAdjustedSentenceSet(outOfBounds)
	assert.Error(t, err)
}

func TestAdjustedSentenceSetLookup(t *testing.T) {
	set, err := NewAdjustedSentenceSet([]AdjustedSentence{
		{Index: 1, Text: "a", OriginalEnd: 1, AdjustedEnd: 1},
		{Index: 2, Text: "b", OriginalStart: 2, OriginalEnd: 3, AdjustedStart: 2, AdjustedEnd: 3},
	})
	require.NoError(t, err)

	s, ok := set.Lookup(SentenceIndex(2))
	require.True(t, ok)
	assert.Equal(t, "b", s.Text)

	_, ok = set.Lookup(SentenceIndex(3))
	assert.False(t, ok)

	_, ok = set.Lookup(SentenceIndex(0))
	assert.False(t, ok)
}

func TestEditConfigValueScan(t *testing.T) {
	cfg := EditConfig{
		Instruction:   "keep it tight",
		OverlayPolicy: "sentence-span",
		RenderHeight:  240,
	}

	value, err := cfg.Value()
	require.NoError(t, err)

	var decoded EditConfig
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, cfg, decoded)
}
