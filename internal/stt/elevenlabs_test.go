package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogdean/talkcut/internal/config"
)

func TestTranscribe(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "audio.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake wav bytes"), 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/speech-to-text", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "scribe_v1", r.FormValue("model_id"))

		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "audio.wav", header.Filename)

		resp := map[string]any{
			"text":          "Hello world. How are you?",
			"language_code": "eng",
			"words": []map[string]any{
				{"text": "Hello", "type": "word", "start": 0.0, "end": 0.4},
				{"text": " ", "type": "spacing", "start": 0.4, "end": 0.5},
				{"text": "world.", "type": "word", "start": 0.5, "end": 0.9},
				{"text": "How", "type": "word", "start": 1.2, "end": 1.4},
				{"text": "are", "type": "word", "start": 1.5, "end": 1.7},
				{"text": "you?", "type": "word", "start": 1.8, "end": 2.1},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	transcriber := NewElevenLabs(config.STTConfig{
		APIKey:  "secret",
		BaseURL: srv.URL,
		ModelID: "scribe_v1",
	})

	transcript, err := transcriber.Transcribe(context.Background(), audioPath)
	require.NoError(t, err)

	require.Len(t, transcript.Segments, 1)
	assert.Equal(t, "eng", transcript.Language)
	assert.InDelta(t, 2.1, transcript.Duration, 1e-9)

	// Spacing entries are dropped
	assert.Len(t, transcript.Segments[0].Words, 5)

	// Sentences are grouped from word punctuation
	require.Len(t, transcript.Sentences, 2)
	assert.Equal(t, "Hello world.", transcript.Sentences[0].Text)
	assert.Equal(t, "How are you?", transcript.Sentences[1].Text)
	assert.Equal(t, 1.2, transcript.Sentences[1].Start)
	assert.Equal(t, 2.1, transcript.Sentences[1].End)
}

func TestTranscribeErrorStatus(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "audio.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("x"), 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad audio", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	transcriber := NewElevenLabs(config.STTConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := transcriber.Transcribe(context.Background(), audioPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestTranscribeMissingFile(t *testing.T) {
	transcriber := NewElevenLabs(config.STTConfig{APIKey: "k", BaseURL: "http://localhost:0"})
	_, err := transcriber.Transcribe(context.Background(), "/nonexistent/audio.wav")
	assert.Error(t, err)
}

func TestConvertResponseEmpty(t *testing.T) {
	transcript := convertResponse(sttResponse{Text: "only text"})
	require.Len(t, transcript.Segments, 1)
	assert.Equal(t, "only text", transcript.Segments[0].Text)
	assert.Empty(t, transcript.Segments[0].Words)
}
