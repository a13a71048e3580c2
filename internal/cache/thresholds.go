package cache

import (
	"context"
	"fmt"
	"time"
)

// ThresholdStore mirrors whole-recording silence thresholds in Redis so
// every worker that touches the same audio reuses one threshold instead of
// recomputing it. Writes are idempotent; the first computed value wins for
// the lifetime of the TTL and repeats overwrite it with the same number.
type ThresholdStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewThresholdStore creates a threshold mirror with the given TTL
func NewThresholdStore(cache *Cache, ttl time.Duration) *ThresholdStore {
	return &ThresholdStore{cache: cache, ttl: ttl}
}

// GetThreshold returns the cached threshold for an audio key, if present
func (s *ThresholdStore) GetThreshold(audioKey string) (float64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("threshold:%s", audioKey)
	val, err := s.cache.client.Get(ctx, key).Float64()
	if err != nil {
		return 0, false
	}
	return val, true
}

// SetThreshold stores the threshold for an audio key. Errors are swallowed:
// a missed write only costs a recomputation on the next lookup.
func (s *ThresholdStore) SetThreshold(audioKey string, threshold float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("threshold:%s", audioKey)
	s.cache.client.Set(ctx, key, threshold, s.ttl)
}
