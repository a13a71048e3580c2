package models

import "strconv"

// EditingDecision is the raw LLM response for which sentences to cut.
// Sentence indices are 1-based positions in the transcript's sentence list.
type EditingDecision struct {
	Thoughts          string `json:"thoughts"`
	SentencesToRemove []int  `json:"sentences_to_remove"`
}

// SentenceResult is the keep/remove verdict for a single sentence
type SentenceResult struct {
	Text string `json:"text"`
	Keep bool   `json:"keep"`
}

// EditingResult is the human-editable form of an editing decision: a mapping
// from 1-based sentence number (stringified, the serialization convention for
// sentence keys) to its text and keep status.
type EditingResult struct {
	SentenceResults map[string]SentenceResult `json:"sentence_results"`
}

// NewEditingResult converts an LLM editing decision into the editable
// keep/remove form, covering every sentence in the transcript.
func NewEditingResult(decision EditingDecision, sentences []Sentence) EditingResult {
	removed := make(map[int]bool, len(decision.SentencesToRemove))
	for _, idx := range decision.SentencesToRemove {
		removed[idx] = true
	}

	results := make(map[string]SentenceResult, len(sentences))
	for i, s := range sentences {
		n := i + 1
		results[strconv.Itoa(n)] = SentenceResult{
			Text: s.Text,
			Keep: !removed[n],
		}
	}

	return EditingResult{SentenceResults: results}
}

// Keep reports whether the sentence at the given 1-based transcript position
// is kept. Sentences without a recorded verdict are kept.
func (r EditingResult) Keep(position int) bool {
	res, ok := r.SentenceResults[strconv.Itoa(position)]
	if !ok {
		return true
	}
	return res.Keep
}
