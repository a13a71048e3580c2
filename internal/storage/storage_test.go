package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetContentType(t *testing.T) {
	tests := []struct {
		filePath string
		wantType string
	}{
		{"video.mp4", "video/mp4"},
		{"video.mov", "video/quicktime"},
		{"video.mkv", "video/x-matroska"},
		{"video.webm", "video/webm"},
		{"audio.wav", "audio/wav"},
		{"overlay.png", "image/png"},
		{"photo.jpg", "image/jpeg"},
		{"project.mlt", "application/xml"},
		{"unknown.xyz", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filePath, func(t *testing.T) {
			assert.Equal(t, tt.wantType, getContentType(tt.filePath))
		})
	}
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "videos/vid-1/source.mp4", SourceKey("vid-1", "my talk.mp4"))
	assert.Equal(t, "jobs/job-1/proxy.mp4", ProxyKey("job-1"))
	assert.Equal(t, "jobs/job-1/audio.wav", AudioKey("job-1"))
	assert.Equal(t, "jobs/job-1/overlays/image1.png", OverlayKey("job-1", "image1.png"))
	assert.Equal(t, "jobs/job-1/output.mp4", OutputKey("job-1"))
	assert.Equal(t, "jobs/job-1/projects/cut.mlt", ProjectKey("job-1", "cut.mlt"))
}
