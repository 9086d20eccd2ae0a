package cache

import (
	"context"
	"time"

	"github.com/yetanothergithubaccount/ObsPi/internal/store"
)

// Start runs the background maintenance loop until ctx is cancelled. With
// prewarm enabled it computes tonight's catalogue immediately and again
// after every date change; every tick evicts expired catalogues.
func (c *Catalogues) Start(ctx context.Context) {
	var warmed time.Time
	if c.config.Prewarm {
		warmed = c.Today()
		c.prewarm(ctx, warmed)
	}

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("catalogue cache loop stopped")
			return
		case <-ticker.C:
			if today := c.Today(); c.config.Prewarm && !today.Equal(warmed) {
				warmed = today
				c.prewarm(ctx, today)
			}
			c.evictExpired()
		}
	}
}

// prewarm computes the catalogue for date, loading it instead when it was
// stored earlier.
func (c *Catalogues) prewarm(ctx context.Context, date time.Time) {
	c.prewarming.Store(true)
	defer c.prewarming.Store(false)

	c.logger.Info("catalogue prewarm starting", "date", date.Format(store.DateLayout))

	start := time.Now()
	_, report, err := c.Compute(ctx, date)
	if err != nil {
		c.logger.Error("catalogue prewarm failed", "date", date.Format(store.DateLayout), "error", err)
		return
	}
	c.lastPrewarm.Store(time.Now().Unix())

	c.logger.Info("catalogue prewarm complete",
		"date", report.Date,
		"loaded", report.Loaded,
		"evaluated", report.Evaluated,
		"skipped", len(report.Skipped),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
