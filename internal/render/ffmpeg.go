package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ogdean/talkcut/pkg/models"
)

// FFmpeg wraps ffmpeg and ffprobe invocations
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates a new FFmpeg instance
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// VideoProperties holds the source properties rendering depends on
type VideoProperties struct {
	Width        int
	Height       int
	Codec        string
	FPS          float64
	FrameRateNum int
	FrameRateDen int
	Duration     float64
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Probe extracts resolution, frame rate and duration from a video file
func (f *FFmpeg) Probe(ctx context.Context, inputPath string) (*VideoProperties, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	props := &VideoProperties{}
	if duration, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		props.Duration = duration
	}

	for _, stream := range out.Streams {
		if stream.CodecType != "video" {
			continue
		}
		props.Width = stream.Width
		props.Height = stream.Height
		props.Codec = stream.CodecName
		props.FrameRateNum, props.FrameRateDen, props.FPS = parseFrameRate(stream.RFrameRate)
		break
	}

	if props.Width == 0 || props.Height == 0 {
		return nil, fmt.Errorf("no video stream found in %s", inputPath)
	}

	return props, nil
}

// parseFrameRate parses ffprobe's "num/den" (or plain "num") frame rate form
func parseFrameRate(raw string) (num, den int, fps float64) {
	num, den = 0, 1
	if strings.Contains(raw, "/") {
		parts := strings.SplitN(raw, "/", 2)
		num, _ = strconv.Atoi(parts[0])
		den, _ = strconv.Atoi(parts[1])
		if den == 0 {
			den = 1
		}
	} else if raw != "" {
		num, _ = strconv.Atoi(raw)
	}
	if num > 0 {
		fps = float64(num) / float64(den)
	}
	return num, den, fps
}

// ExtractAudio writes the input's audio as a mono PCM WAV at the given sample
// rate, the format the silence analysis consumes.
func (f *FFmpeg) ExtractAudio(ctx context.Context, inputPath, outputPath string, sampleRate int) error {
	args := []string{
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audio extraction failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// ProxyVideo writes a downscaled working copy. Width is derived to keep the
// aspect ratio and stay divisible by two.
func (f *FFmpeg) ProxyVideo(ctx context.Context, inputPath, outputPath string, height int) error {
	args := []string{
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=-2:%d", height),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "28",
		"-c:a", "aac",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("proxy generation failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// CutVideo renders the edited video by concatenating each adjusted sentence's
// span from the source, dropping everything between them.
func (f *FFmpeg) CutVideo(ctx context.Context, inputPath, outputPath string, set models.AdjustedSentenceSet) error {
	if set.Len() == 0 {
		return fmt.Errorf("no sentences to cut")
	}

	args := []string{
		"-i", inputPath,
		"-filter_complex", buildCutFilter(set),
		"-map", "[outv]",
		"-map", "[outa]",
		"-c:v", "libx264",
		"-preset", "fast",
		"-c:a", "aac",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cut rendering failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// buildCutFilter produces a trim/concat filter graph with one video and one
// audio segment per sentence.
func buildCutFilter(set models.AdjustedSentenceSet) string {
	var filter strings.Builder

	for i, s := range set.Sentences {
		filter.WriteString(fmt.Sprintf(
			"[0:v]trim=start=%.6f:end=%.6f,setpts=PTS-STARTPTS[v%d];",
			s.AdjustedStart, s.AdjustedEnd, i))
		filter.WriteString(fmt.Sprintf(
			"[0:a]atrim=start=%.6f:end=%.6f,asetpts=PTS-STARTPTS[a%d];",
			s.AdjustedStart, s.AdjustedEnd, i))
	}

	for i := range set.Sentences {
		filter.WriteString(fmt.Sprintf("[v%d][a%d]", i, i))
	}
	filter.WriteString(fmt.Sprintf("concat=n=%d:v=1:a=1[outv][outa]", set.Len()))

	return filter.String()
}
