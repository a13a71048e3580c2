package models

import "strings"

// WordTimestamp represents a single transcribed word with timing information
type WordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptSegment represents a segment of transcribed text with word-level timestamps
type TranscriptSegment struct {
	Text  string          `json:"text"`
	Start float64         `json:"start"`
	End   float64         `json:"end"`
	Words []WordTimestamp `json:"words,omitempty"`
}

// Sentence is one spoken sentence with its rough boundaries in source-video
// time, as produced by transcription before any silence trimming
type Sentence struct {
	Text  string          `json:"text"`
	Start float64         `json:"start"`
	End   float64         `json:"end"`
	Words []WordTimestamp `json:"words,omitempty"`
}

// Transcript is the canonical representation of a transcribed recording
type Transcript struct {
	Segments  []TranscriptSegment `json:"segments"`
	Sentences []Sentence          `json:"sentences,omitempty"`
	Language  string              `json:"language,omitempty"`
	Duration  float64             `json:"duration,omitempty"`
}

// FullText returns the complete transcript text
func (t *Transcript) FullText() string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}

// WordCount returns the total word count across all segments
func (t *Transcript) WordCount() int {
	count := 0
	for _, seg := range t.Segments {
		count += len(seg.Words)
	}
	return count
}

// BuildSentences returns the transcript's sentence list. If the transcription
// provider already produced sentences those are used as-is; otherwise words
// are grouped into sentences, breaking after terminal punctuation (., ?, !).
func (t *Transcript) BuildSentences() []Sentence {
	if len(t.Sentences) > 0 {
		return t.Sentences
	}

	var sentences []Sentence
	var words []string
	var timestamps []WordTimestamp
	start := -1.0
	end := 0.0

	flush := func() {
		if len(words) == 0 || start < 0 {
			return
		}
		sentences = append(sentences, Sentence{
			Text:  strings.Join(words, " "),
			Start: start,
			End:   end,
			Words: timestamps,
		})
		words = nil
		timestamps = nil
		start = -1.0
	}

	for _, seg := range t.Segments {
		for _, w := range seg.Words {
			if start < 0 {
				start = w.Start
			}
			end = w.End
			words = append(words, w.Word)
			timestamps = append(timestamps, w)

			if endsSentence(w.Word) {
				flush()
			}
		}
	}
	flush()

	return sentences
}

func endsSentence(word string) bool {
	trimmed := strings.TrimRight(word, " \t")
	return strings.HasSuffix(trimmed, ".") ||
		strings.HasSuffix(trimmed, "?") ||
		strings.HasSuffix(trimmed, "!")
}
