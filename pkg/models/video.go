package models

import "time"

// SourceVideo represents an uploaded talking-head recording
type SourceVideo struct {
	ID        string    `json:"id" db:"id"`
	Filename  string    `json:"filename" db:"filename"`
	ObjectKey string    `json:"object_key" db:"object_key"`
	Size      int64     `json:"size" db:"size"`
	Duration  float64   `json:"duration" db:"duration"`
	Width     int       `json:"width" db:"width"`
	Height    int       `json:"height" db:"height"`
	Codec     string    `json:"codec" db:"codec"`
	FrameRate float64   `json:"frame_rate" db:"frame_rate"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SourceVideo status constants
const (
	VideoStatusUploaded   = "uploaded"
	VideoStatusProcessing = "processing"
	VideoStatusReady      = "ready"
	VideoStatusFailed     = "failed"
)
