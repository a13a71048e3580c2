package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestWAV encodes samples in [-1, 1] as a 16-bit WAV file.
func writeTestWAV(t *testing.T, samples []float64, sampleRate, channels int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s * 32767.0)
	}
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())

	return path
}

// sine generates n samples of a sine wave at the given amplitude.
func sine(n int, amplitude, freq float64, sampleRate int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestLoadWAVMono(t *testing.T) {
	samples := sine(22050, 0.5, 440, 22050)
	path := writeTestWAV(t, samples, 22050, 1)

	clip, err := LoadWAV(path)
	require.NoError(t, err)

	assert.Equal(t, 22050, clip.SampleRate)
	assert.Equal(t, len(samples), len(clip.Samples))
	assert.InDelta(t, 1.0, clip.Duration(), 1e-6)
}

func TestLoadWAVStereoMixdown(t *testing.T) {
	// Interleaved stereo: left is a sine, right is silence. The mixdown
	// should halve the amplitude.
	mono := sine(4410, 0.8, 440, 44100)
	interleaved := make([]float64, 0, len(mono)*2)
	for _, s := range mono {
		interleaved = append(interleaved, s, 0)
	}
	path := writeTestWAV(t, interleaved, 44100, 2)

	clip, err := LoadWAV(path)
	require.NoError(t, err)
	require.Equal(t, len(mono), len(clip.Samples))

	var peak float64
	for _, s := range clip.Samples {
		if math.Abs(s) > peak {
			peak = math.Abs(s)
		}
	}
	assert.InDelta(t, 0.4, peak, 0.02)
}

func TestLoadWAVInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0644))

	_, err := LoadWAV(path)
	assert.Error(t, err)
}

func TestResample(t *testing.T) {
	clip := &Clip{Samples: sine(44100, 0.5, 440, 44100), SampleRate: 44100}

	resampled := clip.Resample(22050)
	assert.Equal(t, 22050, resampled.SampleRate)
	assert.InDelta(t, clip.Duration(), resampled.Duration(), 0.01)

	// Same rate returns the receiver untouched
	same := clip.Resample(44100)
	assert.Same(t, clip, same)
}

func TestWindow(t *testing.T) {
	clip := &Clip{Samples: make([]float64, 22050), SampleRate: 22050}

	window, err := clip.Window(0.5, 0.25)
	require.NoError(t, err)
	assert.Len(t, window, 22050/4)

	// Window extending past the end is clamped to the clip
	window, err = clip.Window(0.9, 0.5)
	require.NoError(t, err)
	assert.Len(t, window, 2205)

	// Offset beyond the clip is an error
	_, err = clip.Window(2.0, 0.1)
	assert.ErrorIs(t, err, ErrWindowOutOfRange)

	_, err = clip.Window(-0.1, 0.5)
	assert.ErrorIs(t, err, ErrWindowOutOfRange)
}

func TestRMSProfile(t *testing.T) {
	analyzer := Analyzer{FrameLength: 512, HopLength: 256}

	// Constant amplitude signal: every frame has RMS equal to the amplitude
	samples := make([]float64, 2048)
	for i := range samples {
		samples[i] = 0.25
	}

	profile := analyzer.RMSProfile(samples)
	require.Len(t, profile, 8)
	for _, v := range profile {
		assert.InDelta(t, 0.25, v, 1e-9)
	}

	assert.Nil(t, analyzer.RMSProfile(nil))
}

func TestRMSProfileFrameCount(t *testing.T) {
	analyzer := Analyzer{FrameLength: 512, HopLength: 256}

	// One hop past a full frame still yields a (short) trailing frame
	profile := analyzer.RMSProfile(make([]float64, 600))
	assert.Len(t, profile, 3)
}

func TestDBProfile(t *testing.T) {
	db := DBProfile([]float64{1.0, 0.1, 0.01})
	require.Len(t, db, 3)

	// Peak frame sits at 0 dB, the rest are relative to it
	assert.InDelta(t, 0.0, db[0], 1e-9)
	assert.InDelta(t, -20.0, db[1], 1e-9)
	assert.InDelta(t, -40.0, db[2], 1e-9)
}

func TestDBProfileFloor(t *testing.T) {
	// Total silence must not produce -Inf
	db := DBProfile([]float64{0, 0, 1.0})
	require.Len(t, db, 3)
	assert.False(t, math.IsInf(db[0], -1))
	assert.Equal(t, -80.0, db[0])
}

func TestPercentile(t *testing.T) {
	xs := []float64{10, 20, 30, 40, 50}

	assert.Equal(t, 10.0, Percentile(xs, 0))
	assert.Equal(t, 50.0, Percentile(xs, 100))
	assert.Equal(t, 30.0, Percentile(xs, 50))
	assert.InDelta(t, 44.0, Percentile(xs, 85), 1e-9)

	// Input order must not matter and the input must not be modified
	shuffled := []float64{50, 10, 40, 20, 30}
	assert.Equal(t, 30.0, Percentile(shuffled, 50))
	assert.Equal(t, []float64{50, 10, 40, 20, 30}, shuffled)

	assert.Equal(t, 0.0, Percentile(nil, 50))
}
