package silence

import (
	"fmt"

	"github.com/ogdean/talkcut/internal/audio"
	"github.com/ogdean/talkcut/internal/config"
	"github.com/ogdean/talkcut/pkg/models"
)

// Trimmer tightens sentence boundaries to the detected speech within them.
// Each sentence is analyzed in isolation; when its local threshold deviates
// too far from the whole-recording threshold (a sentence that is mostly
// silence skews its own statistics), the recording-level threshold is
// substituted.
type Trimmer struct {
	cfg       config.SilenceConfig
	estimator Estimator
	analyzer  audio.Analyzer
	cache     ThresholdCache
}

// NewTrimmer creates a Trimmer. The cache holds whole-recording thresholds
// across calls and may be shared between jobs analyzing the same audio.
func NewTrimmer(cfg config.SilenceConfig, cache ThresholdCache) *Trimmer {
	if cache == nil {
		cache = NewMemoryThresholdCache()
	}
	return &Trimmer{
		cfg: cfg,
		estimator: Estimator{
			SpeechPercentile: cfg.SpeechPercentile,
			SilenceOffsetDB:  cfg.SilenceOffsetDB,
		},
		analyzer: audio.Analyzer{
			FrameLength: cfg.FrameLength,
			HopLength:   cfg.HopLength,
		},
		cache: cache,
	}
}

// Prepare resamples a clip to the analysis rate. Call once per recording and
// reuse the result for GlobalThreshold and TrimSentence.
func (t *Trimmer) Prepare(clip *audio.Clip) *audio.Clip {
	return clip.Resample(t.cfg.AnalysisSampleRate)
}

// GlobalThreshold returns the whole-recording silence threshold for the clip,
// computing and caching it under audioKey on first use.
func (t *Trimmer) GlobalThreshold(clip *audio.Clip, audioKey string) float64 {
	if cached, ok := t.cache.GetThreshold(audioKey); ok {
		return cached
	}

	db := audio.DBProfile(t.analyzer.RMSProfile(clip.Samples))
	threshold := t.estimator.Threshold(db)
	t.cache.SetThreshold(audioKey, threshold)

	return threshold
}

// TrimSentence returns the adjusted bounds for one sentence. The clip must be
// at the analysis sample rate (see Prepare). When no frame within the
// sentence exceeds the threshold the original bounds are returned unchanged.
func (t *Trimmer) TrimSentence(clip *audio.Clip, sentence models.Sentence, globalThreshold float64) (float64, float64, models.ThresholdSource, error) {
	window, err := clip.Window(sentence.Start, sentence.End-sentence.Start)
	if err != nil {
		return 0, 0, "", fmt.Errorf("sentence [%.3f, %.3f]: %w", sentence.Start, sentence.End, err)
	}

	db := audio.DBProfile(t.analyzer.RMSProfile(window))
	localThreshold := t.estimator.Threshold(db)

	threshold := localThreshold
	source := models.ThresholdSourceClip
	if globalThreshold-localThreshold > t.cfg.ClipDeviationDB {
		threshold = globalThreshold
		source = models.ThresholdSourceVideo
	}

	first, last := -1, -1
	for i, v := range db {
		if v > threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return sentence.Start, sentence.End, source, nil
	}

	rate := float64(clip.SampleRate)
	startOffset := float64(first*t.cfg.HopLength) / rate
	endOffset := float64((last+1)*t.cfg.HopLength) / rate

	adjustedStart := sentence.Start + startOffset - t.cfg.PaddingSeconds
	adjustedEnd := sentence.Start + endOffset + t.cfg.PaddingSeconds

	if adjustedStart < sentence.Start {
		adjustedStart = sentence.Start
	}
	if adjustedEnd > sentence.End {
		adjustedEnd = sentence.End
	}

	return adjustedStart, adjustedEnd, source, nil
}
