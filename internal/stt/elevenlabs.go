package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ogdean/talkcut/internal/config"
	"github.com/ogdean/talkcut/pkg/models"
)

// ElevenLabs is a Transcriber backed by the ElevenLabs speech-to-text API
type ElevenLabs struct {
	apiKey     string
	baseURL    string
	modelID    string
	httpClient *http.Client
}

// NewElevenLabs creates a new ElevenLabs transcriber from configuration
func NewElevenLabs(cfg config.STTConfig) *ElevenLabs {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	return &ElevenLabs{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		modelID:    cfg.ModelID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// sttResponse is the provider's transcription payload. Words of type
// "spacing" carry no speech and are dropped during conversion.
type sttResponse struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
	Words        []struct {
		Text  string  `json:"text"`
		Type  string  `json:"type"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// Transcribe uploads the audio file and converts the response into the
// internal transcript form: one segment holding every word, with sentence
// grouping derived from the word timestamps.
func (e *ElevenLabs) Transcribe(ctx context.Context, audioPath string) (*models.Transcript, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	if err := writer.WriteField("model_id", e.modelID); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := e.baseURL + "/v1/speech-to-text"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("transcription status %d: %s", resp.StatusCode, string(rb))
	}

	var out sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}

	return convertResponse(out), nil
}

// convertResponse maps the provider payload to the internal transcript.
// All words land in a single segment spanning the recording; sentence
// boundaries are recovered from punctuation later.
func convertResponse(out sttResponse) *models.Transcript {
	words := make([]models.WordTimestamp, 0, len(out.Words))
	for _, w := range out.Words {
		if w.Type == "spacing" || strings.TrimSpace(w.Text) == "" {
			continue
		}
		words = append(words, models.WordTimestamp{
			Word:  strings.TrimSpace(w.Text),
			Start: w.Start,
			End:   w.End,
		})
	}

	transcript := &models.Transcript{Language: out.LanguageCode}
	if len(words) > 0 {
		transcript.Segments = []models.TranscriptSegment{{
			Text:  out.Text,
			Start: words[0].Start,
			End:   words[len(words)-1].End,
			Words: words,
		}}
		transcript.Duration = words[len(words)-1].End
	} else if out.Text != "" {
		transcript.Segments = []models.TranscriptSegment{{Text: out.Text}}
	}

	transcript.Sentences = transcript.BuildSentences()
	return transcript
}
