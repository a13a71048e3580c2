package timeline

import (
	"github.com/ogdean/talkcut/pkg/models"
)

// OverlayPolicy selects how long a resolved overlay stays on screen
type OverlayPolicy string

const (
	// PolicySentenceSpan shows the overlay for the full span of its sentences
	PolicySentenceSpan OverlayPolicy = "sentence-span"
	// PolicyFixedWindow shows the overlay for a fixed number of frames from
	// the span's start
	PolicyFixedWindow OverlayPolicy = "fixed-window"
)

// DefaultOverlayWindowFrames is the fixed-window duration when none is configured
const DefaultOverlayWindowFrames = 120

// Resolver turns image placements into output-time overlay spans
type Resolver struct {
	Policy       OverlayPolicy
	WindowFrames int
	FPS          float64
}

// ResolvedOverlay is an image with its on-screen span in output time
type ResolvedOverlay struct {
	Filepath string  `json:"filepath"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
}

// Resolve maps one placement onto the timeline. The span runs from the
// earliest start to the latest end over the referenced sentences; indices
// missing from the timeline are ignored. A placement none of whose indices
// exist cannot be positioned and reports ok false so callers skip it.
func (r Resolver) Resolve(placement models.ImagePlacement, tl Timeline) (ResolvedOverlay, bool) {
	found := false
	var start, end float64

	for _, idx := range placement.SentenceIndexes {
		p, ok := tl.Position(idx)
		if !ok {
			continue
		}
		if !found || p.Start < start {
			start = p.Start
		}
		if !found || p.End > end {
			end = p.End
		}
		found = true
	}
	if !found {
		return ResolvedOverlay{}, false
	}

	if r.Policy == PolicyFixedWindow {
		frames := r.WindowFrames
		if frames <= 0 {
			frames = DefaultOverlayWindowFrames
		}
		if r.FPS > 0 {
			end = start + float64(frames)/r.FPS
		}
	}

	return ResolvedOverlay{Filepath: placement.Filepath, Start: start, End: end}, true
}

// ResolveAll maps every placement onto the timeline, dropping the ones that
// reference no existing sentence.
func (r Resolver) ResolveAll(placements []models.ImagePlacement, tl Timeline) []ResolvedOverlay {
	resolved := make([]ResolvedOverlay, 0, len(placements))
	for _, p := range placements {
		overlay, ok := r.Resolve(p, tl)
		if !ok {
			continue
		}
		resolved = append(resolved, overlay)
	}
	return resolved
}
