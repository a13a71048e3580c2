package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ogdean/talkcut/pkg/models"
)

const editingDecisionPrompt = `You are a video editing assistant. The transcript below is a numbered list
of sentences from a talking-head recording. Decide which sentences to remove
to make the video tighter: filler, false starts, repeated takes and tangents.

%s
Sentences:
%s

Respond with a JSON object:
{
  "thoughts": "your reasoning",
  "sentences_to_remove": [2, 5]
}

Use the 1-based sentence numbers shown above. Return an empty array if every
sentence should stay.`

// DecideEdits asks the model which sentences to cut. The returned decision
// uses 1-based positions in the given sentence order.
func (c *Client) DecideEdits(ctx context.Context, sentences []models.Sentence, instruction string) (models.EditingDecision, error) {
	var instructionBlock string
	if instruction != "" {
		instructionBlock = fmt.Sprintf("Editing instruction from the user:\n%s\n", instruction)
	}

	prompt := fmt.Sprintf(editingDecisionPrompt, instructionBlock, numberedSentences(sentences))

	raw, err := c.Complete(ctx, prompt)
	if err != nil {
		return models.EditingDecision{}, err
	}

	clean, err := ExtractJSON(raw)
	if err != nil {
		return models.EditingDecision{}, err
	}

	var decision models.EditingDecision
	if err := json.Unmarshal([]byte(clean), &decision); err != nil {
		return models.EditingDecision{}, fmt.Errorf("failed to parse editing decision: %w", err)
	}
	return decision, nil
}

const imagePlanningPrompt = `You are a creative visual assistant enhancing a talking-head video with
generated images. Read the numbered sentences and propose images that
illustrate what is being said. Each image lists the sentence numbers it
should appear over.

Sentences:
%s

Respond with a JSON object:
{
  "thoughts": "your reasoning",
  "images": [
    {
      "description": "Brief human-readable description",
      "sentence_ids": ["1", "2"],
      "detailed_prompt": "Detailed prompt for the image generator, including style, composition, lighting and mood"
    }
  ]
}

Sentence ids must be strings. Propose at most one image per three sentences.`

// PlanImages asks the model for overlay image descriptions tied to sentences
func (c *Client) PlanImages(ctx context.Context, sentences []models.Sentence) (models.ImagePlan, error) {
	prompt := fmt.Sprintf(imagePlanningPrompt, numberedSentences(sentences))

	raw, err := c.Complete(ctx, prompt)
	if err != nil {
		return models.ImagePlan{}, err
	}

	clean, err := ExtractJSON(raw)
	if err != nil {
		return models.ImagePlan{}, err
	}

	var plan models.ImagePlan
	if err := json.Unmarshal([]byte(clean), &plan); err != nil {
		return models.ImagePlan{}, fmt.Errorf("failed to parse image plan: %w", err)
	}
	return plan, nil
}

const imagePlacementPrompt = `You are a video editing assistant placing images from a planning script onto
a video timeline. The script pairs spoken lines with image filenames. The
video's sentences are numbered below. Match each image to the sentences where
its line is actually spoken.

Script:
%s

Video sentences:
%s

Respond with a JSON object:
{
  "thoughts": "your reasoning",
  "placements": [
    {
      "filepath": "image1.png",
      "sentence_indexes": ["1", "2"]
    }
  ]
}

Sentence indexes must be strings and refer to the numbers above. Skip images
whose lines were cut from the video.`

// PlaceImages matches a planning script's images to sentence indices. Image
// filenames in the response are resolved against imageDir.
func (c *Client) PlaceImages(ctx context.Context, script models.Script, set models.AdjustedSentenceSet, imageDir string) (models.ImagePlacements, error) {
	raw, err := c.Complete(ctx, fmt.Sprintf(imagePlacementPrompt, scriptText(script), adjustedSentencesText(set, false)))
	if err != nil {
		return models.ImagePlacements{}, err
	}

	clean, err := ExtractJSON(raw)
	if err != nil {
		return models.ImagePlacements{}, err
	}

	var placements models.ImagePlacements
	if err := json.Unmarshal([]byte(clean), &placements); err != nil {
		return models.ImagePlacements{}, fmt.Errorf("failed to parse image placements: %w", err)
	}

	for i := range placements.Placements {
		placements.Placements[i].Filepath = filepath.Join(imageDir, placements.Placements[i].Filepath)
	}
	return placements, nil
}

const timestampAdjustmentPrompt = `You are a video editing assistant adjusting sentence timestamps based on
user feedback.

Current sentences with adjusted timestamps:
%s

User feedback:
%s

You have two tools:

1. adjust_timestamp - change one boundary of one sentence
   Parameters: sentence_index (string), field ("adjusted_start" or
   "adjusted_end"), new_value (seconds, float). Use the word-level
   timestamps above for precise cuts.

2. approve - the user is happy, finish editing. No parameters.

Respond with a JSON object:
{
  "thoughts": "your analysis of the feedback",
  "actions": [
    {"tool": "adjust_timestamp", "parameters": {"sentence_index": "1", "field": "adjusted_start", "new_value": 2.0}}
  ]
}

If the feedback is an approval (for example "looks good"), use the approve
tool. Sentence keep/remove changes are handled elsewhere; only adjust
timestamps here.`

type adjustmentResponse struct {
	Thoughts string `json:"thoughts"`
	Actions  []struct {
		Tool       string          `json:"tool"`
		Parameters json.RawMessage `json:"parameters"`
	} `json:"actions"`
}

type adjustTimestampParams struct {
	SentenceIndex models.SentenceIndex `json:"sentence_index"`
	Field         string               `json:"field"`
	NewValue      float64              `json:"new_value"`
}

// AdjustTimestamps applies user feedback to a sentence set's adjusted bounds.
// It returns the updated set and whether the user approved the current state.
// The updated set is re-validated, so an adjustment escaping the original
// bounds surfaces as an error instead of corrupting the timeline.
func (c *Client) AdjustTimestamps(ctx context.Context, set models.AdjustedSentenceSet, feedback string) (models.AdjustedSentenceSet, bool, error) {
	prompt := fmt.Sprintf(timestampAdjustmentPrompt, adjustedSentencesText(set, true), feedback)

	raw, err := c.Complete(ctx, prompt)
	if err != nil {
		return set, false, err
	}

	clean, err := ExtractJSON(raw)
	if err != nil {
		return set, false, err
	}

	var resp adjustmentResponse
	if err := json.Unmarshal([]byte(clean), &resp); err != nil {
		return set, false, fmt.Errorf("failed to parse adjustment response: %w", err)
	}

	sentences := append([]models.AdjustedSentence(nil), set.Sentences...)
	approved := false

	for _, action := range resp.Actions {
		switch action.Tool {
		case "approve":
			approved = true
		case "adjust_timestamp":
			var params adjustTimestampParams
			if err := json.Unmarshal(action.Parameters, &params); err != nil {
				return set, false, fmt.Errorf("invalid adjust_timestamp parameters: %w", err)
			}
			if err := applyAdjustment(sentences, params); err != nil {
				return set, false, err
			}
		default:
			return set, false, fmt.Errorf("unknown adjustment tool %q", action.Tool)
		}
	}

	updated, err := models.NewAdjustedSentenceSet(sentences)
	if err != nil {
		return set, false, fmt.Errorf("adjustment produced invalid sentence set: %w", err)
	}
	return updated, approved, nil
}

func applyAdjustment(sentences []models.AdjustedSentence, params adjustTimestampParams) error {
	n := int(params.SentenceIndex)
	if n < 1 || n > len(sentences) {
		return fmt.Errorf("adjust_timestamp references unknown sentence %d", n)
	}

	switch params.Field {
	case "adjusted_start":
		sentences[n-1].AdjustedStart = params.NewValue
	case "adjusted_end":
		sentences[n-1].AdjustedEnd = params.NewValue
	default:
		return fmt.Errorf("adjust_timestamp has unknown field %q", params.Field)
	}
	return nil
}

func numberedSentences(sentences []models.Sentence) string {
	var b strings.Builder
	for i, s := range sentences {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.Text)
	}
	return b.String()
}

func scriptText(script models.Script) string {
	var b strings.Builder
	for _, line := range script.Lines {
		if line.ImageFilename != "" {
			fmt.Fprintf(&b, "[%s] ", line.ImageFilename)
		}
		b.WriteString(line.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// adjustedSentencesText renders a set for a prompt, optionally with the
// word-level timestamps that enable word-precise cuts.
func adjustedSentencesText(set models.AdjustedSentenceSet, includeWords bool) string {
	var b strings.Builder
	for _, s := range set.Sentences {
		fmt.Fprintf(&b, "Sentence %s:\n%q [%.2f - %.2f]\n", s.Index, s.Text, s.AdjustedStart, s.AdjustedEnd)
		if includeWords {
			for _, w := range s.Words {
				fmt.Fprintf(&b, "[%.2f - %.2f] %s\n", w.Start, w.End, w.Word)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
