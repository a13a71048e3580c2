package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/go-audio/wav"
)

// Reference floor for dB conversion. Amplitudes below this are clamped so
// silence does not produce -Inf.
const amplitudeFloor = 1e-5

// Dynamic range kept below the window peak when converting to dB.
const topDB = 80.0

var (
	// ErrWindowOutOfRange is returned when a requested analysis window does
	// not lie within the decoded audio.
	ErrWindowOutOfRange = errors.New("analysis window out of range")

	// ErrEmptyAudio is returned when a decoded file contains no samples.
	ErrEmptyAudio = errors.New("audio contains no samples")
)

// Clip is decoded mono PCM audio.
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// LoadWAV decodes a WAV file into a mono clip. Multi-channel audio is mixed
// down by averaging channels.
func LoadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	if len(buf.Data) == 0 {
		return nil, ErrEmptyAudio
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	// Normalize integer samples to [-1, 1] using the source bit depth.
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch]) / scale
		}
		samples[i] = sum / float64(channels)
	}

	return &Clip{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// Resample converts the clip to the target sample rate by linear
// interpolation. Returns the receiver unchanged if the rate already matches.
func (c *Clip) Resample(targetRate int) *Clip {
	if targetRate == c.SampleRate || len(c.Samples) == 0 {
		return c
	}

	ratio := float64(c.SampleRate) / float64(targetRate)
	outLen := int(math.Floor(float64(len(c.Samples)) / ratio))
	if outLen < 1 {
		outLen = 1
	}

	out := make([]float64, outLen)
	for i := range out {
		pos := float64(i) * ratio
		lo := int(pos)
		if lo >= len(c.Samples)-1 {
			out[i] = c.Samples[len(c.Samples)-1]
			continue
		}
		frac := pos - float64(lo)
		out[i] = c.Samples[lo]*(1-frac) + c.Samples[lo+1]*frac
	}

	return &Clip{Samples: out, SampleRate: targetRate}
}

// Window returns the samples covering [offset, offset+duration) seconds.
// The window must lie within the clip.
func (c *Clip) Window(offset, duration float64) ([]float64, error) {
	if offset < 0 || duration < 0 {
		return nil, fmt.Errorf("%w: offset=%.3f duration=%.3f", ErrWindowOutOfRange, offset, duration)
	}

	start := int(offset * float64(c.SampleRate))
	end := start + int(duration*float64(c.SampleRate))
	if start > len(c.Samples) {
		return nil, fmt.Errorf("%w: offset %.3fs beyond clip end %.3fs", ErrWindowOutOfRange, offset, c.Duration())
	}
	if end > len(c.Samples) {
		end = len(c.Samples)
	}

	return c.Samples[start:end], nil
}

// Analyzer computes framed RMS energy profiles.
type Analyzer struct {
	FrameLength int
	HopLength   int
}

// RMSProfile returns the root-mean-square energy of each analysis frame.
// The final frame may be shorter than FrameLength.
func (a Analyzer) RMSProfile(samples []float64) []float64 {
	if len(samples) == 0 || a.HopLength <= 0 || a.FrameLength <= 0 {
		return nil
	}

	profile := make([]float64, 0, 1+len(samples)/a.HopLength)
	for start := 0; start < len(samples); start += a.HopLength {
		end := start + a.FrameLength
		if end > len(samples) {
			end = len(samples)
		}

		var sum float64
		for _, s := range samples[start:end] {
			sum += s * s
		}
		profile = append(profile, math.Sqrt(sum/float64(end-start)))
	}

	return profile
}

// DBProfile converts an RMS profile to decibels relative to the profile's own
// peak. Values more than topDB below the peak are clamped.
func DBProfile(rms []float64) []float64 {
	if len(rms) == 0 {
		return nil
	}

	ref := rms[0]
	for _, v := range rms[1:] {
		if v > ref {
			ref = v
		}
	}
	if ref < amplitudeFloor {
		ref = amplitudeFloor
	}

	db := make([]float64, len(rms))
	for i, v := range rms {
		if v < amplitudeFloor {
			v = amplitudeFloor
		}
		db[i] = 20 * math.Log10(v/ref)
		if db[i] < -topDB {
			db[i] = -topDB
		}
	}

	return db
}

// Percentile returns the p-th percentile of xs using linear interpolation
// between closest ranks. The input is not modified.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(pos)
	frac := pos - float64(lo)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}
