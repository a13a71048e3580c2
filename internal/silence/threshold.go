package silence

import (
	"sync"

	"github.com/ogdean/talkcut/internal/audio"
)

// ThresholdCache stores whole-recording silence thresholds keyed by audio
// identity, so the expensive full-file analysis runs once per recording.
// Writes are idempotent: storing the same key twice is harmless.
type ThresholdCache interface {
	GetThreshold(key string) (float64, bool)
	SetThreshold(key string, threshold float64)
}

// MemoryThresholdCache is an in-process ThresholdCache.
type MemoryThresholdCache struct {
	mu         sync.RWMutex
	thresholds map[string]float64
}

// NewMemoryThresholdCache creates an empty in-process threshold cache
func NewMemoryThresholdCache() *MemoryThresholdCache {
	return &MemoryThresholdCache{thresholds: make(map[string]float64)}
}

// GetThreshold returns the cached threshold for the given audio key
func (c *MemoryThresholdCache) GetThreshold(key string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.thresholds[key]
	return v, ok
}

// SetThreshold stores the threshold for the given audio key
func (c *MemoryThresholdCache) SetThreshold(key string, threshold float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thresholds[key] = threshold
}

// Estimator derives a silence threshold from an energy profile. The speech
// level is taken as a high percentile of the dB profile and the threshold
// sits a fixed offset below it, so the estimate adapts to the recording's
// own loudness instead of using an absolute level.
type Estimator struct {
	SpeechPercentile float64
	SilenceOffsetDB  float64
}

// Threshold returns the silence threshold in dB for the given profile
func (e Estimator) Threshold(db []float64) float64 {
	return e.SpeechLevel(db) - e.SilenceOffsetDB
}

// SpeechLevel returns the estimated speech level in dB for the given profile
func (e Estimator) SpeechLevel(db []float64) float64 {
	return audio.Percentile(db, e.SpeechPercentile)
}
