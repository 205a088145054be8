package services

import (
	"fmt"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
)

// Caches groups the memoization layers shared across services. A nil
// *Caches (or nil inner cache) disables memoization entirely; every
// service must behave identically either way.
type Caches struct {
	Summaries *cache.LRU[core.MonthlySummary]
}

// NewCaches builds the cache set from the configured bounds. Binaries
// construct one of these and hand it to every service they wire up.
func NewCaches(maxSize int, ttl time.Duration) *Caches {
	return &Caches{Summaries: cache.New[core.MonthlySummary](maxSize, ttl)}
}

// Cleaners lists the inner caches for the periodic sweep.
func (c *Caches) Cleaners() []cache.Cleaner {
	if c == nil {
		return nil
	}
	return []cache.Cleaner{c.Summaries}
}

func summaryKey(householdID int64, p core.Period) string {
	return fmt.Sprintf("summary:%d:%04d-%02d", householdID, p.Year, p.Month)
}

func (c *Caches) summaries() *cache.LRU[core.MonthlySummary] {
	if c == nil {
		return nil
	}
	return c.Summaries
}

// InvalidatePeriod drops the cached summary for one household period.
// Mutations call it for the period they touched; entries for other
// periods age out via TTL.
func (c *Caches) InvalidatePeriod(householdID int64, p core.Period) {
	c.summaries().Invalidate(summaryKey(householdID, p))
}
