package metrics

import (
	"time"

	"github.com/quaddb/sail/pkg/leakcheck"
	"github.com/quaddb/sail/pkg/source"
)

// Collector periodically samples gauges that have no natural event to
// update them on, such as the arena's live-branch count and the leak
// tracker's live-resource count.
type Collector struct {
	arena   *source.Arena
	tracker *leakcheck.Tracker
	stopCh  chan struct{}
}

// NewCollector creates a new metrics collector over an arena and its
// leak tracker.
func NewCollector(arena *source.Arena, tracker *leakcheck.Tracker) *Collector {
	return &Collector{
		arena:   arena,
		tracker: tracker,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15-second interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if c.arena != nil {
		OpenBranchesTotal.Set(float64(c.arena.Live()))
	}
	if c.tracker != nil {
		LeakTrackedResourcesTotal.Set(float64(c.tracker.Live()))
	}
}
