package silence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogdean/talkcut/internal/audio"
	"github.com/ogdean/talkcut/internal/config"
	"github.com/ogdean/talkcut/pkg/models"
)

func testSilenceConfig() config.SilenceConfig {
	return config.SilenceConfig{
		SpeechPercentile:   85.0,
		SilenceOffsetDB:    15.0,
		ClipDeviationDB:    5.0,
		PaddingSeconds:     0.02,
		FrameLength:        512,
		HopLength:          256,
		AnalysisSampleRate: 22050,
	}
}

// toneClip builds a mono clip at the analysis rate with a sine tone between
// toneStart and toneEnd seconds and silence elsewhere.
func toneClip(totalSec, toneStart, toneEnd float64) *audio.Clip {
	rate := 22050
	samples := make([]float64, int(totalSec*float64(rate)))
	for i := range samples {
		t := float64(i) / float64(rate)
		if t >= toneStart && t < toneEnd {
			samples[i] = 0.5 * math.Sin(2*math.Pi*440*t)
		}
	}
	return &audio.Clip{Samples: samples, SampleRate: rate}
}

// constantClip builds a clip with constant amplitude
func constantClip(totalSec, amplitude float64) *audio.Clip {
	rate := 22050
	samples := make([]float64, int(totalSec*float64(rate)))
	for i := range samples {
		samples[i] = amplitude
	}
	return &audio.Clip{Samples: samples, SampleRate: rate}
}

func TestTrimSentenceRemovesSilence(t *testing.T) {
	trimmer := NewTrimmer(testSilenceConfig(), nil)

	// Speech occupies the middle second of a three second sentence
	clip := toneClip(3.0, 1.0, 2.0)
	sentence := models.Sentence{Text: "hello.", Start: 0.0, End: 3.0}

	global := trimmer.GlobalThreshold(clip, "test-audio")
	start, end, source, err := trimmer.TrimSentence(clip, sentence, global)
	require.NoError(t, err)

	// Boundary precision is one analysis frame plus the outward padding
	assert.InDelta(t, 0.98, start, 0.05)
	assert.InDelta(t, 2.02, end, 0.05)
	assert.Equal(t, models.ThresholdSourceClip, source)

	// Adjusted bounds always stay within the original ones
	assert.GreaterOrEqual(t, start, sentence.Start)
	assert.LessOrEqual(t, end, sentence.End)
	assert.LessOrEqual(t, start, end)
}

func TestTrimSentencePaddingClamped(t *testing.T) {
	trimmer := NewTrimmer(testSilenceConfig(), nil)

	// Speech reaches both edges of the sentence, so the outward padding
	// would escape the original bounds and must be clamped
	clip := toneClip(2.0, 0.0, 2.0)
	sentence := models.Sentence{Text: "edge to edge.", Start: 0.0, End: 2.0}

	global := trimmer.GlobalThreshold(clip, "edge")
	start, end, _, err := trimmer.TrimSentence(clip, sentence, global)
	require.NoError(t, err)

	assert.Equal(t, 0.0, start)
	assert.Equal(t, 2.0, end)
}

func TestTrimSentenceNoSpeech(t *testing.T) {
	trimmer := NewTrimmer(testSilenceConfig(), nil)
	clip := toneClip(3.0, 0.0, 3.0)

	// A zero-length sentence has no frames to analyze; its bounds come
	// back unchanged
	sentence := models.Sentence{Text: "", Start: 1.5, End: 1.5}

	start, end, _, err := trimmer.TrimSentence(clip, sentence, -20.0)
	require.NoError(t, err)
	assert.Equal(t, 1.5, start)
	assert.Equal(t, 1.5, end)
}

func TestTrimSentenceWindowOutOfRange(t *testing.T) {
	trimmer := NewTrimmer(testSilenceConfig(), nil)
	clip := toneClip(2.0, 0.0, 2.0)

	sentence := models.Sentence{Start: 5.0, End: 6.0}
	_, _, _, err := trimmer.TrimSentence(clip, sentence, -20.0)
	assert.ErrorIs(t, err, audio.ErrWindowOutOfRange)
}

func TestThresholdSourceResolution(t *testing.T) {
	cfg := testSilenceConfig()
	trimmer := NewTrimmer(cfg, nil)

	// A constant-amplitude window puts every frame at 0 dB, so the local
	// threshold is exactly -15 dB. The source then depends only on how far
	// the recording-level threshold sits above it.
	clip := constantClip(1.0, 0.3)
	sentence := models.Sentence{Text: "steady.", Start: 0.0, End: 1.0}

	tests := []struct {
		name   string
		global float64
		want   models.ThresholdSource
	}{
		{"deviation below limit keeps local", -16.0, models.ThresholdSourceClip},
		{"deviation exactly at limit keeps local", -10.0, models.ThresholdSourceClip},
		{"deviation above limit switches to recording level", -9.9, models.ThresholdSourceVideo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, source, err := trimmer.TrimSentence(clip, sentence, tt.global)
			require.NoError(t, err)
			assert.Equal(t, tt.want, source)
		})
	}
}

type spyCache struct {
	inner *MemoryThresholdCache
	sets  int
}

func (c *spyCache) GetThreshold(key string) (float64, bool) {
	return c.inner.GetThreshold(key)
}

func (c *spyCache) SetThreshold(key string, threshold float64) {
	c.sets++
	c.inner.SetThreshold(key, threshold)
}

func TestGlobalThresholdCached(t *testing.T) {
	cache := &spyCache{inner: NewMemoryThresholdCache()}
	trimmer := NewTrimmer(testSilenceConfig(), cache)
	clip := toneClip(3.0, 1.0, 2.0)

	first := trimmer.GlobalThreshold(clip, "audio/source.wav")
	second := trimmer.GlobalThreshold(clip, "audio/source.wav")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets)

	// A different recording gets its own entry
	trimmer.GlobalThreshold(constantClip(1.0, 0.2), "audio/other.wav")
	assert.Equal(t, 2, cache.sets)
}

func TestPrepareResamples(t *testing.T) {
	trimmer := NewTrimmer(testSilenceConfig(), nil)

	clip := &audio.Clip{Samples: make([]float64, 44100), SampleRate: 44100}
	prepared := trimmer.Prepare(clip)
	assert.Equal(t, 22050, prepared.SampleRate)
	assert.InDelta(t, clip.Duration(), prepared.Duration(), 0.01)

	// Already at the analysis rate: no copy
	atRate := &audio.Clip{Samples: make([]float64, 22050), SampleRate: 22050}
	assert.Same(t, atRate, trimmer.Prepare(atRate))
}

func TestEstimatorThreshold(t *testing.T) {
	estimator := Estimator{SpeechPercentile: 85.0, SilenceOffsetDB: 15.0}

	db := []float64{-80, -80, -80, -80, -80, -80, 0, 0, 0, 0}
	level := estimator.SpeechLevel(db)
	assert.InDelta(t, 0.0, level, 1e-9)
	assert.InDelta(t, -15.0, estimator.Threshold(db), 1e-9)
}
