// Package cache keeps recently used dated catalogues in memory.
//
// Lookups fall through to the record store on a miss. A background loop
// computes tonight's catalogue at startup and again whenever the calendar
// date changes, and evicts catalogues older than the retention window.
package cache

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yetanothergithubaccount/ObsPi/internal/catalogue"
	"github.com/yetanothergithubaccount/ObsPi/internal/metrics"
	"github.com/yetanothergithubaccount/ObsPi/internal/store"
	"github.com/yetanothergithubaccount/ObsPi/internal/visibility"
)

// Config holds cache configuration.
type Config struct {
	Retention     time.Duration // Keep catalogues for dates this far back (default: 7 days)
	Prewarm       bool          // Compute tonight's catalogue in the background
	CheckInterval time.Duration // How often the loop looks for a date change (default: 1m)
	Now           func() time.Time
	// OnStart and OnRun, when set, bracket every Compute.
	OnStart func(date time.Time)
	OnRun   func(date time.Time, report catalogue.Report, err error)
	// OnEvict, when set, receives the cutoff of every eviction pass.
	OnEvict func(cutoff time.Time)
}

// Source computes and loads dated catalogues.
type Source interface {
	Evaluate(ctx context.Context, date time.Time, names []string) (*catalogue.Catalogue, catalogue.Report, error)
	Load(date time.Time) (*catalogue.Catalogue, error)
}

type cacheEntry struct {
	cat      *catalogue.Catalogue
	loadedAt time.Time
}

// Catalogues is an in-memory cache of dated catalogues.
// Safe for concurrent use by multiple goroutines.
type Catalogues struct {
	mu      sync.RWMutex
	entries map[time.Time]*cacheEntry

	config Config
	source Source
	names  []string
	logger *slog.Logger

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	prewarming  atomic.Bool
	lastPrewarm atomic.Int64 // unix seconds
}

// New creates a catalogue cache that evaluates names on demand.
func New(config Config, source Source, names []string, logger *slog.Logger) *Catalogues {
	if config.Retention <= 0 {
		config.Retention = 7 * 24 * time.Hour
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	logger.Info("catalogue cache initialized",
		"retention_hours", config.Retention.Hours(),
		"prewarm", config.Prewarm,
		"objects", len(names),
	)

	return &Catalogues{
		entries: make(map[time.Time]*cacheEntry),
		config:  config,
		source:  source,
		names:   names,
		logger:  logger,
	}
}

// Today returns the current observation date.
func (c *Catalogues) Today() time.Time {
	return visibility.Day(c.config.Now())
}

// Get returns the catalogue for date from memory or the store. A date that
// was never computed yields an error wrapping store.ErrNotExist.
func (c *Catalogues) Get(date time.Time) (*catalogue.Catalogue, error) {
	key := visibility.Day(date)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		return entry.cat, nil
	}

	c.misses.Add(1)
	cat, err := c.source.Load(key)
	if err != nil {
		return nil, err
	}
	c.Put(key, cat)
	return cat, nil
}

// Compute returns the catalogue for date, evaluating and storing it when no
// stored file exists yet.
func (c *Catalogues) Compute(ctx context.Context, date time.Time) (*catalogue.Catalogue, catalogue.Report, error) {
	key := visibility.Day(date)
	if c.config.OnStart != nil {
		c.config.OnStart(key)
	}
	cat, report, err := c.source.Evaluate(ctx, key, c.names)
	if c.config.OnRun != nil {
		c.config.OnRun(key, report, err)
	}
	if err != nil {
		return nil, report, err
	}
	c.Put(key, cat)
	return cat, report, nil
}

// Put stores a catalogue for date.
func (c *Catalogues) Put(date time.Time, cat *catalogue.Catalogue) {
	c.mu.Lock()
	c.entries[visibility.Day(date)] = &cacheEntry{cat: cat, loadedAt: time.Now()}
	c.mu.Unlock()

	c.updateMetrics()
}

// evictExpired removes catalogues for dates before today - retention.
func (c *Catalogues) evictExpired() int {
	cutoff := c.Today().Add(-c.config.Retention)
	var removed int

	c.mu.Lock()
	for d := range c.entries {
		if d.Before(cutoff) {
			delete(c.entries, d)
			removed++
		}
	}
	c.mu.Unlock()

	if c.config.OnEvict != nil {
		c.config.OnEvict(cutoff)
	}
	if removed > 0 {
		c.evictions.Add(int64(removed))
		c.updateMetrics()
		c.logger.Debug("cache eviction", "entries_removed", removed)
	}

	return removed
}

// Stats holds cache statistics for the stats endpoint.
type Stats struct {
	Entries     int       `json:"entries"`
	Dates       []string  `json:"dates"`
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Evictions   int64     `json:"evictions"`
	Prewarming  bool      `json:"prewarming"`
	LastPrewarm time.Time `json:"last_prewarm,omitempty"`
}

// Stats returns current cache statistics.
func (c *Catalogues) Stats() Stats {
	c.mu.RLock()
	dates := make([]time.Time, 0, len(c.entries))
	for d := range c.entries {
		dates = append(dates, d)
	}
	c.mu.RUnlock()

	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	labels := make([]string, len(dates))
	for i, d := range dates {
		labels[i] = d.Format(store.DateLayout)
	}

	var last time.Time
	if ts := c.lastPrewarm.Load(); ts > 0 {
		last = time.Unix(ts, 0).UTC()
	}

	return Stats{
		Entries:     len(dates),
		Dates:       labels,
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Prewarming:  c.prewarming.Load(),
		LastPrewarm: last,
	}
}

// updateMetrics publishes current cache size to Prometheus.
func (c *Catalogues) updateMetrics() {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	metrics.CachedCatalogues.Set(float64(count))
}
