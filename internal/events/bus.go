// Package events fans out committed state changes to websocket clients and
// the remote mirror. Publishing never blocks: slow subscribers drop events.
package events

import (
	"sync"
	"time"
)

const (
	TypeBalance    = "balance"
	TypeTrade      = "trade"
	TypeSettled    = "settled"
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
	TypeQuote      = "quote"
)

type Event struct {
	Type      string    `json:"type"`
	AccountID string    `json:"account_id,omitempty"`
	Data      any       `json:"data"`
	At        time.Time `json:"at"`
}

type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	size int
}

func NewBus() *Bus {
	return NewBusWithBuffer(100)
}

func NewBusWithBuffer(size int) *Bus {
	if size <= 0 {
		size = 100
	}
	return &Bus{subs: make(map[chan Event]struct{}), size: size}
}

func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, b.size)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish is safe on a nil Bus.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.RUnlock()
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
