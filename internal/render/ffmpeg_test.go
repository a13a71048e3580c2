package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogdean/talkcut/pkg/models"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		raw string
		num int
		den int
		fps float64
	}{
		{"30/1", 30, 1, 30.0},
		{"30000/1001", 30000, 1001, 29.97002997002997},
		{"25", 25, 1, 25.0},
		{"", 0, 1, 0},
		{"0/0", 0, 1, 0},
	}

	for _, tt := range tests {
		num, den, fps := parseFrameRate(tt.raw)
		assert.Equal(t, tt.num, num, tt.raw)
		assert.Equal(t, tt.den, den, tt.raw)
		assert.InDelta(t, tt.fps, fps, 1e-9, tt.raw)
	}
}

func TestBuildCutFilter(t *testing.T) {
	set, err := models.NewAdjustedSentenceSet([]models.AdjustedSentence{
		{Index: 1, OriginalStart: 0, OriginalEnd: 3, AdjustedStart: 0.5, AdjustedEnd: 2.5},
		{Index: 2, OriginalStart: 5, OriginalEnd: 9, AdjustedStart: 5.25, AdjustedEnd: 8.0},
	})
	require.NoError(t, err)

	filter := buildCutFilter(set)

	assert.Contains(t, filter, "[0:v]trim=start=0.500000:end=2.500000,setpts=PTS-STARTPTS[v0];")
	assert.Contains(t, filter, "[0:a]atrim=start=0.500000:end=2.500000,asetpts=PTS-STARTPTS[a0];")
	assert.Contains(t, filter, "[0:v]trim=start=5.250000:end=8.000000,setpts=PTS-STARTPTS[v1];")
	assert.Contains(t, filter, "[v0][a0][v1][a1]concat=n=2:v=1:a=1[outv][outa]")
}
