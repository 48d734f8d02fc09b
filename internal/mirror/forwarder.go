package mirror

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"edge-tradesim/internal/events"

	"github.com/google/uuid"
)

// Forwarder drains the event bus into a bounded queue and sends each
// account event to the sink. A full queue drops the event.
type Forwarder struct {
	bus     *events.Bus
	sink    Sink
	queue   chan Envelope
	timeout time.Duration

	sent    atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewForwarder(bus *events.Bus, sink Sink, queueSize int) *Forwarder {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Forwarder{
		bus:     bus,
		sink:    sink,
		queue:   make(chan Envelope, queueSize),
		timeout: 30 * time.Second,
	}
}

type Stats struct {
	Sent    int64 `json:"sent"`
	Dropped int64 `json:"dropped"`
	Failed  int64 `json:"failed"`
}

func (f *Forwarder) Stats() Stats {
	return Stats{Sent: f.sent.Load(), Dropped: f.dropped.Load(), Failed: f.failed.Load()}
}

// Run forwards until ctx is cancelled. It returns immediately when the
// sink is disabled.
func (f *Forwarder) Run(ctx context.Context) {
	if !f.sink.Enabled() {
		log.Printf("[mirror] disabled")
		return
	}
	sub := f.bus.Subscribe()
	defer f.bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.drain(ctx)
	}()

	log.Printf("[mirror] forwarding (queue %d)", cap(f.queue))
	for {
		select {
		case <-ctx.Done():
			<-done
			return
		case evt, ok := <-sub:
			if !ok {
				<-done
				return
			}
			if evt.AccountID == "" {
				continue
			}
			f.enqueue(Envelope{
				ID:        uuid.NewString(),
				Type:      evt.Type,
				AccountID: evt.AccountID,
				Data:      evt.Data,
				At:        evt.At,
			})
		}
	}
}

func (f *Forwarder) enqueue(env Envelope) {
	select {
	case f.queue <- env:
	default:
		f.dropped.Add(1)
		log.Printf("[mirror] queue full, dropped %s %s", env.Type, env.ID)
	}
}

func (f *Forwarder) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-f.queue:
			sendCtx, cancel := context.WithTimeout(ctx, f.timeout)
			err := f.sink.Send(sendCtx, env)
			cancel()
			if err != nil {
				f.failed.Add(1)
				log.Printf("[mirror] send %s %s failed: %v", env.Type, env.ID, err)
				continue
			}
			f.sent.Add(1)
		}
	}
}
