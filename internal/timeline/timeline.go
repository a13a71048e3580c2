package timeline

import (
	"math"

	"github.com/ogdean/talkcut/pkg/models"
)

// Position is a sentence's span in output time, the timeline of the edited
// video where kept sentences play back to back.
type Position struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the span length in seconds
func (p Position) Duration() float64 {
	return p.End - p.Start
}

// Timeline maps sentence indices to their output-time positions. It is
// derived from an adjusted set on demand and never stored, so edits to the
// set cannot leave stale positions behind.
type Timeline struct {
	positions map[models.SentenceIndex]Position
	total     float64
}

// Build derives the output timeline from an adjusted set. Each sentence
// starts where the previous one ends; the first starts at zero.
func Build(set models.AdjustedSentenceSet) Timeline {
	positions := make(map[models.SentenceIndex]Position, set.Len())

	cursor := 0.0
	for _, s := range set.Sentences {
		positions[s.Index] = Position{Start: cursor, End: cursor + s.Duration()}
		cursor += s.Duration()
	}

	return Timeline{positions: positions, total: cursor}
}

// Position returns the output-time span of the given sentence, if present
func (t Timeline) Position(idx models.SentenceIndex) (Position, bool) {
	p, ok := t.positions[idx]
	return p, ok
}

// Len returns the number of sentences on the timeline
func (t Timeline) Len() int {
	return len(t.positions)
}

// TotalDuration returns the length of the edited output in seconds
func (t Timeline) TotalDuration() float64 {
	return t.total
}

// FrameForSeconds converts an output-time position to a frame number
func FrameForSeconds(sec, fps float64) int {
	return int(math.Round(sec * fps))
}
