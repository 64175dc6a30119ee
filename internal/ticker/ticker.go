// Package ticker drives continuous evolution: every real-time tick advances
// the Lindblad channels of all regions by one integration step.
package ticker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/substrate/internal/modules/region"
)

// Ticker is the engine heartbeat. It only knows about time progression; the
// region service decides what one step means.
type Ticker struct {
	regions  *region.Service
	interval time.Duration
	ticks    atomic.Int64
	stopChan chan struct{}
	log      zerolog.Logger
}

// New creates a ticker firing at the given interval.
func New(regions *region.Service, interval time.Duration, log zerolog.Logger) *Ticker {
	return &Ticker{
		regions:  regions,
		interval: interval,
		stopChan: make(chan struct{}),
		log:      log.With().Str("component", "ticker").Logger(),
	}
}

// Start begins the evolution loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.log.Info().Dur("interval", t.interval).Msg("Evolution ticker started")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info().Msg("Evolution ticker stopped by context")
			return
		case <-t.stopChan:
			t.log.Info().Msg("Evolution ticker stopped")
			return
		case <-ticker.C:
			t.regions.Tick()
			t.ticks.Add(1)
		}
	}
}

// Stop gracefully stops the ticker.
func (t *Ticker) Stop() {
	close(t.stopChan)
}

// Ticks returns the number of completed ticks.
func (t *Ticker) Ticks() int64 {
	return t.ticks.Load()
}
