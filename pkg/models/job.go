package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// EditJob represents one run of the editing pipeline for a source video
type EditJob struct {
	ID          string     `json:"id" db:"id"`
	VideoID     string     `json:"video_id" db:"video_id"`
	Status      string     `json:"status" db:"status"`
	Stage       string     `json:"stage" db:"stage"`
	Priority    int        `json:"priority" db:"priority"`
	Progress    float64    `json:"progress" db:"progress"`
	ErrorMsg    string     `json:"error_msg,omitempty" db:"error_msg"`
	RetryCount  int        `json:"retry_count" db:"retry_count"`
	WorkerID    string     `json:"worker_id,omitempty" db:"worker_id"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	Config      EditConfig `json:"config" db:"config"`
}

// EditConfig holds per-job editing configuration
type EditConfig struct {
	Instruction         string            `json:"instruction,omitempty"`
	OverlayPolicy       string            `json:"overlay_policy,omitempty"`
	OverlayWindowFrames int               `json:"overlay_window_frames,omitempty"`
	RenderHeight        int               `json:"render_height,omitempty"`
	GenerateImages      bool              `json:"generate_images,omitempty"`
	Extra               map[string]string `json:"extra,omitempty"`
}

// Value implements driver.Valuer for database storage
func (c EditConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for database retrieval
func (c *EditConfig) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, c)
}

// EditJob status constants
const (
	JobStatusPending    = "pending"
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusAwaiting   = "awaiting_review"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

// Pipeline stage names, in execution order
const (
	StageProxy      = "proxy"
	StageAudio      = "audio"
	StageTranscribe = "transcribe"
	StageDecide     = "decide"
	StageTrim       = "trim"
	StageCut        = "cut"
	StageOverlay    = "overlay"
)

// Job priority constants
const (
	JobPriorityLow    = 0
	JobPriorityNormal = 5
	JobPriorityHigh   = 10
)
