package cache

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// Kind separates the independent bounded caches by query type.
type Kind string

const (
	KindSummary         Kind = "summary"
	KindTrend           Kind = "trend"
	KindDistribution    Kind = "distribution"
	KindRecommendations Kind = "recommendations"
)

const (
	DefaultTTLWindow = 2 * time.Minute
	DefaultCapacity  = 256

	DefaultSoftWatermark = 70.0
	DefaultHardWatermark = 85.0
)

type entry struct {
	value      any
	generation int64
}

type Settings struct {
	// TTLWindow quantizes validity: every entry written inside the same
	// floor(now/window) generation expires together at the window edge.
	TTLWindow time.Duration
	// Capacity bounds each per-kind LRU independently.
	Capacity      int
	SoftWatermark float64
	HardWatermark float64
	Monitor       PressureMonitor
	Clock         func() time.Time
}

// QueryCache memoizes query results per kind, keyed by filter fingerprint.
// Safe for concurrent use; a miss under concurrent identical requests may
// recompute redundantly, which is tolerated.
type QueryCache struct {
	ttlWindow time.Duration
	soft      float64
	hard      float64
	monitor   PressureMonitor
	clock     func() time.Time

	mu    sync.Mutex
	kinds map[Kind]*lru.Cache[string, entry]
	cap   int
}

func New(settings Settings) *QueryCache {
	if settings.TTLWindow <= 0 {
		settings.TTLWindow = DefaultTTLWindow
	}
	if settings.Capacity <= 0 {
		settings.Capacity = DefaultCapacity
	}
	if settings.SoftWatermark <= 0 {
		settings.SoftWatermark = DefaultSoftWatermark
	}
	if settings.HardWatermark <= 0 {
		settings.HardWatermark = DefaultHardWatermark
	}
	if settings.Monitor == nil {
		settings.Monitor = SystemMonitor{}
	}
	if settings.Clock == nil {
		settings.Clock = time.Now
	}

	return &QueryCache{
		ttlWindow: settings.TTLWindow,
		soft:      settings.SoftWatermark,
		hard:      settings.HardWatermark,
		monitor:   settings.Monitor,
		clock:     settings.Clock,
		kinds:     make(map[Kind]*lru.Cache[string, entry]),
		cap:       settings.Capacity,
	}
}

// Get returns the cached value for a fingerprint if it was stored within
// the current TTL generation.
func (c *QueryCache) Get(kind Kind, fingerprint string) (any, bool) {
	bucket := c.bucket(kind)

	e, ok := bucket.Get(fingerprint)
	if !ok {
		return nil, false
	}
	if e.generation != c.generation() {
		bucket.Remove(fingerprint)
		return nil, false
	}
	return e.value, true
}

// Set stores a value under the current TTL generation.
func (c *QueryCache) Set(kind Kind, fingerprint string, value any) {
	c.bucket(kind).Add(fingerprint, entry{value: value, generation: c.generation()})
}

// Purge drops every entry in every kind.
func (c *QueryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, bucket := range c.kinds {
		bucket.Purge()
	}
}

// Len reports the total entry count across kinds.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, bucket := range c.kinds {
		total += bucket.Len()
	}
	return total
}

// Sweep runs the synchronous post-request pressure check. Above the soft
// watermark every cache is cleared; above the hard watermark a forced
// GC/free pass follows. Best-effort back-pressure, not correctness: a
// cleared cache just recomputes on next access.
func (c *QueryCache) Sweep(ctx context.Context) {
	logger := zerolog.Ctx(ctx)

	used, err := c.monitor.UsedPercent()
	if err != nil {
		logger.Warn().Err(err).Msg("memory pressure probe failed")
		return
	}

	switch {
	case used >= c.hard:
		logger.Warn().Float64("used_percent", used).Msg("hard memory watermark crossed, clearing caches and freeing memory")
		c.Purge()
		debug.FreeOSMemory()
	case used >= c.soft:
		logger.Info().Float64("used_percent", used).Msg("soft memory watermark crossed, clearing caches")
		c.Purge()
	}
}

func (c *QueryCache) generation() int64 {
	return c.clock().Unix() / int64(c.ttlWindow.Seconds())
}

func (c *QueryCache) bucket(kind Kind) *lru.Cache[string, entry] {
	c.mu.Lock()
	defer c.mu.Unlock()

	bucket, ok := c.kinds[kind]
	if !ok {
		// Capacity is validated in New, so this cannot fail.
		bucket, _ = lru.New[string, entry](c.cap)
		c.kinds[kind] = bucket
	}
	return bucket
}
