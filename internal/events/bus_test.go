package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOut(t *testing.T) {
	b := NewBus()
	a, c := b.Subscribe(), b.Subscribe()
	b.Publish(Event{Type: TypeBalance, AccountID: "acct"})

	for _, ch := range []chan Event{a, c} {
		evt := <-ch
		assert.Equal(t, TypeBalance, evt.Type)
		assert.Equal(t, "acct", evt.AccountID)
		assert.False(t, evt.At.IsZero())
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := NewBusWithBuffer(1)
	ch := b.Subscribe()
	b.Publish(Event{Type: "one"})
	b.Publish(Event{Type: "two"})
	require.Len(t, ch, 1)
	assert.Equal(t, "one", (<-ch).Type)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.Subscribers())
	b.Unsubscribe(ch)
}

func TestNilBusPublish(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() { b.Publish(Event{Type: TypeTrade}) })
}
