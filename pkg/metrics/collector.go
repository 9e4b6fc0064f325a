package metrics

import (
	"context"
	"time"

	"github.com/neerajsharma26/resumerank/pkg/store"
	"github.com/neerajsharma26/resumerank/pkg/types"
)

// Collector periodically refreshes the gauge metrics that aren't natural to
// update inline with every state transition (BatchesTotal; only its
// "running" series is set, from the count of active batches).
type Collector struct {
	st     store.Store
	stopCh chan struct{}
}

// NewCollector builds a collector over st.
func NewCollector(st store.Store) *Collector {
	return &Collector{st: st, stopCh: make(chan struct{})}
}

// Start begins collecting on a 15 second cadence.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
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

// Stop halts collection.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	active, err := c.st.ListActiveBatches(ctx)
	if err != nil {
		return
	}
	BatchesTotal.WithLabelValues(string(types.BatchStatusRunning)).Set(float64(len(active)))
}
