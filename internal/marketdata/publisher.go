package marketdata

import (
	"context"
	"log"
	"time"

	"edge-tradesim/internal/events"
)

// RunPublisher nudges the table every interval and publishes each quote
// until ctx is cancelled.
func RunPublisher(ctx context.Context, table *Table, bus *events.Bus, interval time.Duration) {
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[publisher] starting with %d pairs every %s", len(table.List()), interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, q := range table.Nudge() {
				bus.Publish(events.Event{Type: events.TypeQuote, Data: q})
			}
		}
	}
}
