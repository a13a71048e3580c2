package silence

import (
	"errors"
	"fmt"

	"github.com/ogdean/talkcut/internal/audio"
	"github.com/ogdean/talkcut/pkg/models"
)

// ErrNoSentencesKept is returned when the editing verdicts remove every
// sentence, leaving nothing to build a timeline from.
var ErrNoSentencesKept = errors.New("no sentences were kept, nothing to edit")

// Builder assembles an AdjustedSentenceSet: it filters sentences by editing
// verdicts, trims each kept sentence and re-indexes the survivors 1..N.
type Builder struct {
	trimmer *Trimmer
}

// NewBuilder creates a Builder around the given trimmer
func NewBuilder(trimmer *Trimmer) *Builder {
	return &Builder{trimmer: trimmer}
}

// Build loads the audio file and produces the adjusted set for the kept
// sentences. Verdicts are looked up by each sentence's 1-based position in
// the original order; the kept-everything check happens before the audio is
// touched.
func (b *Builder) Build(audioPath, audioKey string, sentences []models.Sentence, result models.EditingResult) (models.AdjustedSentenceSet, error) {
	kept := Kept(sentences, result)
	if len(kept) == 0 {
		return models.AdjustedSentenceSet{}, ErrNoSentencesKept
	}

	clip, err := audio.LoadWAV(audioPath)
	if err != nil {
		return models.AdjustedSentenceSet{}, fmt.Errorf("failed to load audio: %w", err)
	}

	return b.BuildFromClip(clip, audioKey, kept)
}

// BuildFromClip trims an already-filtered, chronologically ordered sentence
// list against a decoded clip.
func (b *Builder) BuildFromClip(clip *audio.Clip, audioKey string, kept []models.Sentence) (models.AdjustedSentenceSet, error) {
	if len(kept) == 0 {
		return models.AdjustedSentenceSet{}, ErrNoSentencesKept
	}

	prepared := b.trimmer.Prepare(clip)
	globalThreshold := b.trimmer.GlobalThreshold(prepared, audioKey)

	adjusted := make([]models.AdjustedSentence, 0, len(kept))
	for i, s := range kept {
		start, end, source, err := b.trimmer.TrimSentence(prepared, s, globalThreshold)
		if err != nil {
			return models.AdjustedSentenceSet{}, err
		}

		adjusted = append(adjusted, models.AdjustedSentence{
			OriginalStart:   s.Start,
			OriginalEnd:     s.End,
			AdjustedStart:   start,
			AdjustedEnd:     end,
			Text:            s.Text,
			Index:           models.SentenceIndex(i + 1),
			ThresholdSource: source,
			Words:           s.Words,
		})
	}

	return models.NewAdjustedSentenceSet(adjusted)
}

// Kept returns the sentences whose 1-based position carries a keep verdict,
// preserving chronological order.
func Kept(sentences []models.Sentence, result models.EditingResult) []models.Sentence {
	kept := make([]models.Sentence, 0, len(sentences))
	for i, s := range sentences {
		if result.Keep(i + 1) {
			kept = append(kept, s)
		}
	}
	return kept
}
