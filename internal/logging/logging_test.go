package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid stdout json logger",
			config: Config{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "valid stderr console logger",
			config: Config{
				Level:  "debug",
				Format: "console",
				Output: "stderr",
			},
			wantErr: false,
		},
		{
			name: "invalid level falls back to info",
			config: Config{
				Level:  "not-a-level",
				Format: "json",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "unwritable file path",
			config: Config{
				Level:  "info",
				Format: "json",
				Output: "/nonexistent-dir/app.log",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestLoggerChaining(t *testing.T) {
	logger, err := NewDefaultLogger()
	require.NoError(t, err)

	chained := logger.
		WithJobID("job-1").
		WithVideoID("video-1").
		WithWorkerID("worker-1").
		WithField("attempt", 2)

	assert.NotNil(t, chained)
	assert.NotSame(t, logger, chained)

	// Domain helpers must not panic
	chained.LogPipelineStage("job-1", "trim", 120*time.Millisecond, nil)
	chained.LogTrimEvent("job-1", 3, 0.18, 0.42, "clip-level")
	chained.LogNoSpeech("job-1", 4, "video-level")
	chained.LogThreshold("audio/source.wav", -38.5, -23.5)
}

func TestNewConsoleLogger(t *testing.T) {
	logger, err := NewConsoleLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
