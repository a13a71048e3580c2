package stt

import (
	"context"

	"github.com/ogdean/talkcut/pkg/models"
)

// Transcriber converts an audio file into a transcript with word-level
// timestamps. Implementations are expected to populate segments; sentence
// grouping happens downstream from the word timings.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*models.Transcript, error)
}
