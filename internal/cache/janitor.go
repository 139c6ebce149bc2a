package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps expired entries out of registered caches.
type Janitor struct {
	caches []Cleaner
	logger *slog.Logger
}

func NewJanitor(logger *slog.Logger, caches ...Cleaner) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{caches: caches, logger: logger}
}

// Sweep cleans every cache once and returns the number of removed entries.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Run sweeps every interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := j.Sweep(); removed > 0 {
				j.logger.Debug("cache sweep", slog.Int("removed", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}
