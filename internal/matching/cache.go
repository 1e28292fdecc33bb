package matching

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/gdugdh24/mpit2026-matching/internal/metrics"
)

// EmbeddingCache maps a text fingerprint to its vector. Entries live for the
// lifetime of the process.
type EmbeddingCache struct {
	enabled bool

	mu      sync.RWMutex
	entries map[string][]float32
}

func NewEmbeddingCache(enabled bool) *EmbeddingCache {
	return &EmbeddingCache{enabled: enabled, entries: make(map[string][]float32)}
}

func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *EmbeddingCache) Get(fingerprint string) ([]float32, bool) {
	if c == nil || !c.enabled {
		return nil, false
	}
	c.mu.RLock()
	vec, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if ok {
		metrics.EmbeddingCacheHits.Inc()
	} else {
		metrics.EmbeddingCacheMisses.Inc()
	}
	return vec, ok
}

func (c *EmbeddingCache) Put(fingerprint string, vec []float32) {
	if c == nil || !c.enabled {
		return
	}
	c.mu.Lock()
	c.entries[fingerprint] = vec
	size := len(c.entries)
	c.mu.Unlock()
	metrics.EmbeddingCacheSize.Set(float64(size))
}

func (c *EmbeddingCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
