package render

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/ogdean/talkcut/internal/timeline"
	"github.com/ogdean/talkcut/pkg/models"
)

// SafeZone bounds the frame region overlays may occupy, expressed as
// fractions of the frame dimensions.
type SafeZone struct {
	TopPercent    float64
	BottomPercent float64
	LeftPercent   float64
	RightPercent  float64
}

// DefaultSafeZone puts overlays in the upper middle of the frame, clear of a
// centered talking head.
var DefaultSafeZone = SafeZone{
	TopPercent:    0.20,
	BottomPercent: 0.40,
	LeftPercent:   0.30,
	RightPercent:  0.70,
}

// Pixels resolves the zone against concrete frame dimensions
func (z SafeZone) Pixels(props *VideoProperties) (left, top, width, height int) {
	top = int(float64(props.Height) * z.TopPercent)
	bottom := int(float64(props.Height) * z.BottomPercent)
	left = int(float64(props.Width) * z.LeftPercent)
	right := int(float64(props.Width) * z.RightPercent)
	return left, top, right - left, bottom - top
}

// element is a generic MLT XML node
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []element
}

func el(name string, attrs ...string) element {
	e := element{XMLName: xml.Name{Local: name}}
	for i := 0; i+1 < len(attrs); i += 2 {
		e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: attrs[i]}, Value: attrs[i+1]})
	}
	return e
}

func prop(name, value string) element {
	e := el("property", "name", name)
	e.Text = value
	return e
}

func writeXML(w io.Writer, root element) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("failed to encode MLT XML: %w", err)
	}
	return nil
}

// framesToTimecode converts a frame count to MLT's HH:MM:SS.mmm form
func framesToTimecode(frames int, fps float64) string {
	totalSeconds := float64(frames) / fps
	hours := int(totalSeconds) / 3600
	minutes := (int(totalSeconds) % 3600) / 60
	seconds := int(totalSeconds) % 60
	millis := int((totalSeconds - float64(int(totalSeconds))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

func profileElement(props *VideoProperties) element {
	return el("profile",
		"description", fmt.Sprintf("Custom %dx%d %.2f fps", props.Width, props.Height, props.FPS),
		"width", fmt.Sprintf("%d", props.Width),
		"height", fmt.Sprintf("%d", props.Height),
		"progressive", "1",
		"frame_rate_num", fmt.Sprintf("%d", props.FrameRateNum),
		"frame_rate_den", fmt.Sprintf("%d", props.FrameRateDen),
	)
}

// WriteCutXML writes an MLT project that plays only the adjusted sentence
// spans of the source, in order. Frame ranges use MLT's inclusive `out`, so
// the end frame is decremented by one.
func WriteCutXML(w io.Writer, videoPath string, set models.AdjustedSentenceSet, props *VideoProperties) error {
	root := el("mlt", "LC_NUMERIC", "C", "version", "7.0.1", "root", filepath.Dir(videoPath))
	root.Children = append(root.Children, profileElement(props))

	producer := el("producer", "id", "source_video")
	producer.Children = append(producer.Children,
		prop("resource", videoPath),
		prop("mlt_service", "avformat"),
	)
	root.Children = append(root.Children, producer)

	playlist := el("playlist", "id", "main_playlist")
	for _, s := range set.Sentences {
		startFrame := timeline.FrameForSeconds(s.AdjustedStart, props.FPS)
		endFrame := timeline.FrameForSeconds(s.AdjustedEnd, props.FPS)
		if endFrame <= startFrame {
			continue
		}
		playlist.Children = append(playlist.Children, el("entry",
			"producer", "source_video",
			"in", fmt.Sprintf("%d", startFrame),
			"out", fmt.Sprintf("%d", endFrame-1),
		))
	}
	root.Children = append(root.Children, playlist)

	tractor := el("tractor", "id", "main_tractor")
	tractor.Children = append(tractor.Children, el("track", "producer", "main_playlist"))
	root.Children = append(root.Children, tractor)

	return writeXML(w, root)
}

// WriteOverlayXML writes an MLT project that plays the edited video on one
// track with image overlays composited above it inside the safe zone. The
// overlays must be in output-time coordinates.
func WriteOverlayXML(w io.Writer, videoPath string, overlays []timeline.ResolvedOverlay, props *VideoProperties, zone SafeZone) error {
	totalFrames := timeline.FrameForSeconds(props.Duration, props.FPS)
	totalTC := framesToTimecode(totalFrames, props.FPS)

	root := el("mlt", "LC_NUMERIC", "C", "version", "7.0.1", "root", filepath.Dir(videoPath))
	root.Children = append(root.Children, profileElement(props))

	// Black background producer
	black := el("producer", "id", "black", "in", "00:00:00.000", "out", totalTC)
	black.Children = append(black.Children,
		prop("length", totalTC),
		prop("eof", "pause"),
		prop("resource", "0"),
		prop("mlt_service", "color"),
		prop("mlt_image_format", "rgba"),
		prop("set.test_audio", "0"),
	)
	root.Children = append(root.Children, black)

	// Source video chain
	chain := el("chain", "id", "chain_source_video", "out", totalTC)
	chain.Children = append(chain.Children,
		prop("length", totalTC),
		prop("eof", "pause"),
		prop("resource", videoPath),
		prop("mlt_service", "avformat-novalidate"),
		prop("audio_index", "1"),
		prop("video_index", "0"),
	)
	root.Children = append(root.Children, chain)

	sorted := append([]timeline.ResolvedOverlay(nil), overlays...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	// One long-lived still producer per image
	for i, overlay := range sorted {
		producer := el("producer",
			"id", fmt.Sprintf("producer_%d", i),
			"in", "00:00:00.000",
			"out", "03:59:59.987",
		)
		producer.Children = append(producer.Children,
			prop("length", "04:00:00.000"),
			prop("eof", "pause"),
			prop("resource", overlay.Filepath),
			prop("ttl", "1"),
			prop("progressive", "1"),
			prop("mlt_service", "qimage"),
		)
		root.Children = append(root.Children, producer)
	}

	// Background and video playlists
	background := el("playlist", "id", "background")
	background.Children = append(background.Children, el("entry",
		"producer", "black", "in", "00:00:00.000", "out", totalTC))
	root.Children = append(root.Children, background)

	video := el("playlist", "id", "playlist0")
	video.Children = append(video.Children, el("entry",
		"producer", "chain_source_video", "in", "00:00:00.000", "out", totalTC))
	root.Children = append(root.Children, video)

	// Overlay playlist: blanks fill the gaps between image spans
	overlayPlaylist := el("playlist", "id", "playlist1")
	cursor := 0
	for i, overlay := range sorted {
		startFrame := timeline.FrameForSeconds(overlay.Start, props.FPS)
		endFrame := timeline.FrameForSeconds(overlay.End, props.FPS)
		if endFrame <= startFrame {
			continue
		}
		if startFrame > cursor {
			overlayPlaylist.Children = append(overlayPlaylist.Children,
				el("blank", "length", fmt.Sprintf("%d", startFrame-cursor)))
		}
		overlayPlaylist.Children = append(overlayPlaylist.Children, el("entry",
			"producer", fmt.Sprintf("producer_%d", i),
			"in", "0",
			"out", fmt.Sprintf("%d", endFrame-startFrame-1),
		))
		cursor = endFrame
	}
	root.Children = append(root.Children, overlayPlaylist)

	// Main tractor: background, video, overlay tracks
	tractor := el("tractor", "id", "tractor0", "in", "00:00:00.000", "out", totalTC)
	tractor.Children = append(tractor.Children,
		el("track", "producer", "background"),
		el("track", "producer", "playlist0"),
		el("track", "producer", "playlist1"),
		mixTransition("transition0", 0, 1),
		mixTransition("transition1", 0, 2),
		compositeTransition("transition2", 1, 2, zone, props),
	)
	root.Children = append(root.Children, tractor)

	return writeXML(w, root)
}

func mixTransition(id string, aTrack, bTrack int) element {
	t := el("transition", "id", id)
	t.Children = append(t.Children,
		prop("a_track", fmt.Sprintf("%d", aTrack)),
		prop("b_track", fmt.Sprintf("%d", bTrack)),
		prop("mlt_service", "mix"),
		prop("always_active", "1"),
		prop("sum", "1"),
	)
	return t
}

func compositeTransition(id string, aTrack, bTrack int, zone SafeZone, props *VideoProperties) element {
	left, top, width, height := zone.Pixels(props)
	t := el("transition", "id", id)
	t.Children = append(t.Children,
		prop("a_track", fmt.Sprintf("%d", aTrack)),
		prop("b_track", fmt.Sprintf("%d", bTrack)),
		prop("mlt_service", "composite"),
		prop("geometry", fmt.Sprintf("%d:%d:%dx%d:100", left, top, width, height)),
		prop("fill", "1"),
		prop("distort", "0"),
		prop("operator", "over"),
	)
	return t
}

// Melt wraps melt invocations for rendering MLT projects
type Melt struct {
	meltPath string
}

// NewMelt creates a new Melt instance
func NewMelt(meltPath string) *Melt {
	return &Melt{meltPath: meltPath}
}

// Render renders an MLT project file to a video
func (m *Melt) Render(ctx context.Context, mltPath, outputPath string) error {
	args := []string{
		mltPath,
		"-consumer", fmt.Sprintf("avformat:%s", outputPath),
		"vcodec=libx264",
		"acodec=aac",
		"crf=18",
		"preset=medium",
	}

	cmd := exec.CommandContext(ctx, m.meltPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("melt failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}
