package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogdean/talkcut/internal/config"
	"github.com/ogdean/talkcut/pkg/models"
)

// fakeServer returns a client wired to an httptest server that always
// responds with the given message content.
func fakeServer(t *testing.T, content string) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
	})
	return client, srv
}

func TestComplete(t *testing.T) {
	client, _ := fakeServer(t, "hello there")

	out, err := client.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
}

func TestCompleteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited by test-key", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{APIKey: "test-key", BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	// The API key never appears in error messages
	assert.NotContains(t, err.Error(), "test-key")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`, false},
		{"fenced object", "```json\n{\"a\": 1}\n```", `{"a": 1}`, false},
		{"surrounding prose", `Here you go: {"a": 1} hope that helps`, `{"a": 1}`, false},
		{"no object", "sorry, I cannot do that", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ExtractJSON(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestDecideEdits(t *testing.T) {
	client, _ := fakeServer(t, "```json\n{\"thoughts\": \"cut the filler\", \"sentences_to_remove\": [2]}\n```")

	sentences := []models.Sentence{
		{Text: "Keep me."}, {Text: "Um, so, yeah."}, {Text: "Keep me too."},
	}

	decision, err := client.DecideEdits(context.Background(), sentences, "make it tight")
	require.NoError(t, err)
	assert.Equal(t, "cut the filler", decision.Thoughts)
	assert.Equal(t, []int{2}, decision.SentencesToRemove)
}

func TestPlanImages(t *testing.T) {
	client, _ := fakeServer(t, `{
		"thoughts": "one illustration",
		"images": [
			{"description": "a corgi", "sentence_ids": ["1", "2"], "detailed_prompt": "a photorealistic corgi"}
		]
	}`)

	plan, err := client.PlanImages(context.Background(), []models.Sentence{{Text: "Dogs are great."}})
	require.NoError(t, err)
	require.Len(t, plan.Images, 1)
	assert.Equal(t, "a corgi", plan.Images[0].Description)
	assert.Equal(t, []models.SentenceIndex{1, 2}, plan.Images[0].SentenceIDs)
}

func TestPlaceImages(t *testing.T) {
	client, _ := fakeServer(t, `{
		"thoughts": "matched",
		"placements": [
			{"filepath": "image1.png", "sentence_indexes": ["1", "2"]}
		]
	}`)

	set, err := models.NewAdjustedSentenceSet([]models.AdjustedSentence{
		{Index: 1, Text: "a.", OriginalEnd: 1, AdjustedEnd: 1},
		{Index: 2, Text: "b.", OriginalStart: 1, OriginalEnd: 2, AdjustedStart: 1, AdjustedEnd: 2},
	})
	require.NoError(t, err)

	script := models.Script{Lines: []models.ScriptLine{{Text: "a b", ImageFilename: "image1.png"}}}

	placements, err := client.PlaceImages(context.Background(), script, set, "/assets/images")
	require.NoError(t, err)
	require.Len(t, placements.Placements, 1)
	assert.Equal(t, filepath.Join("/assets/images", "image1.png"), placements.Placements[0].Filepath)
	assert.Equal(t, []models.SentenceIndex{1, 2}, placements.Placements[0].SentenceIndexes)
}

func adjustmentSet(t *testing.T) models.AdjustedSentenceSet {
	t.Helper()
	set, err := models.NewAdjustedSentenceSet([]models.AdjustedSentence{
		{Index: 1, Text: "one.", OriginalStart: 0, OriginalEnd: 5, AdjustedStart: 1.0, AdjustedEnd: 4.0},
		{Index: 2, Text: "two.", OriginalStart: 6, OriginalEnd: 10, AdjustedStart: 6.5, AdjustedEnd: 9.5},
	})
	require.NoError(t, err)
	return set
}

func TestAdjustTimestampsApply(t *testing.T) {
	client, _ := fakeServer(t, `{
		"thoughts": "trim the opening",
		"actions": [
			{"tool": "adjust_timestamp", "parameters": {"sentence_index": "1", "field": "adjusted_start", "new_value": 2.0}}
		]
	}`)

	updated, approved, err := client.AdjustTimestamps(context.Background(), adjustmentSet(t), "cut more from the start")
	require.NoError(t, err)
	assert.False(t, approved)
	assert.Equal(t, 2.0, updated.Sentences[0].AdjustedStart)

	// Other bounds are untouched
	assert.Equal(t, 4.0, updated.Sentences[0].AdjustedEnd)
	assert.Equal(t, 6.5, updated.Sentences[1].AdjustedStart)
}

func TestAdjustTimestampsApprove(t *testing.T) {
	client, _ := fakeServer(t, `{"thoughts": "done", "actions": [{"tool": "approve", "parameters": {}}]}`)

	set := adjustmentSet(t)
	updated, approved, err := client.AdjustTimestamps(context.Background(), set, "looks good")
	require.NoError(t, err)
	assert.True(t, approved)
	assert.Equal(t, set, updated)
}

func TestAdjustTimestampsRejectsEscapingBounds(t *testing.T) {
	// Moving adjusted_start before the original start must fail validation
	client, _ := fakeServer(t, `{
		"thoughts": "bad move",
		"actions": [
			{"tool": "adjust_timestamp", "parameters": {"sentence_index": "2", "field": "adjusted_start", "new_value": 1.0}}
		]
	}`)

	_, _, err := client.AdjustTimestamps(context.Background(), adjustmentSet(t), "whatever")
	assert.Error(t, err)
}

func TestAdjustTimestampsUnknownTool(t *testing.T) {
	client, _ := fakeServer(t, `{"thoughts": "?", "actions": [{"tool": "delete_sentence", "parameters": {}}]}`)

	_, _, err := client.AdjustTimestamps(context.Background(), adjustmentSet(t), "remove sentence 2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete_sentence")
}

func TestGenerateImage(t *testing.T) {
	pngBytes := []byte{0x89, 0x50, 0x4E, 0x47}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "image-model", req["model"])

		fmt.Fprintf(w, `{"choices": [{"message": {"content": "", "images": [{"image_url": {"url": %q}}]}}]}`, dataURL)
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{APIKey: "k", BaseURL: srv.URL, ImageModel: "image-model"})

	outputPath := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, client.GenerateImage(context.Background(), "a corgi", outputPath))

	written, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, written)
}

func TestGenerateImageNoImages(t *testing.T) {
	client, _ := fakeServer(t, "no image for you")

	err := client.GenerateImage(context.Background(), "a corgi", filepath.Join(t.TempDir(), "out.png"))
	assert.Error(t, err)
}
