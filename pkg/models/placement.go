package models

// ImageDescription is a planned overlay image: which sentences it should
// cover and the prompt used to generate it
type ImageDescription struct {
	Description    string          `json:"description"`
	SentenceIDs    []SentenceIndex `json:"sentence_ids"`
	DetailedPrompt string          `json:"detailed_prompt"`
}

// ImagePlan is the image planning agent's full response
type ImagePlan struct {
	Thoughts string             `json:"thoughts"`
	Images   []ImageDescription `json:"images"`
}

// ImagePlacement associates one image file with the kept-sentence indices it
// should appear over. Indices refer to AdjustedSentenceSet positions, not
// original transcript numbering.
type ImagePlacement struct {
	Filepath        string          `json:"filepath"`
	SentenceIndexes []SentenceIndex `json:"sentence_indexes"`
}

// ImagePlacements is an ordered list of placements, chronological by first
// referenced sentence. Placements should not overlap, though that is not
// enforced here; overlapping input is resolved by the renderer's track order.
type ImagePlacements struct {
	Placements []ImagePlacement `json:"placements"`
}

// ScriptLine is one line of an externally parsed planning script, optionally
// carrying the image that was attached to it in the source document
type ScriptLine struct {
	Text          string `json:"text"`
	ImageFilename string `json:"image_filename,omitempty"`
}

// Script is a parsed planning document: the text the speaker intended to
// read, with image associations. Produced by an external parser; consumed by
// the placement agent.
type Script struct {
	Lines []ScriptLine `json:"lines"`
}
