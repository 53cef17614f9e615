package scope

import (
	"time"

	"github.com/oscilok/bench/waveform"
)

// cacheRecent is how young a cached reading must be to short-circuit a
// read with no USB traffic at all.
const cacheRecent = 1800 * time.Millisecond

// cacheLifetime is how long a cached reading is considered valid for
// anything; older entries are treated as if they were never cached.
const cacheLifetime = 3500 * time.Millisecond

// cacheMinLen is the shortest sample that is worth caching; shorter reads
// (partial or failed acquisitions) are never stored.
const cacheMinLen = 3200

type cacheEntry struct {
	wave  waveform.Wave
	stamp time.Time
}

// readingCache holds the most recent reading per channel. It is not
// concurrency-safe; the Scope that owns it is only ever touched from one
// goroutine at a time.
type readingCache struct {
	entries map[int]cacheEntry
}

func newReadingCache() *readingCache {
	return &readingCache{entries: make(map[int]cacheEntry)}
}

// get returns the cached wave for channel if it is younger than
// cacheRecent. An entry older than cacheLifetime is also deleted as a side
// effect.
func (c *readingCache) get(channel int) (waveform.Wave, bool) {
	e, ok := c.entries[channel]
	if !ok {
		return waveform.Wave{}, false
	}
	age := time.Since(e.stamp)
	if age >= cacheLifetime {
		delete(c.entries, channel)
		return waveform.Wave{}, false
	}
	if age < cacheRecent {
		return e.wave, true
	}
	return waveform.Wave{}, false
}

// put stores a reading for channel, unless its sample data is shorter than
// cacheMinLen.
func (c *readingCache) put(channel int, w waveform.Wave, sampleLen int) {
	if sampleLen < cacheMinLen {
		return
	}
	c.entries[channel] = cacheEntry{wave: w, stamp: time.Now()}
}

func (c *readingCache) clear() {
	c.entries = make(map[int]cacheEntry)
}
