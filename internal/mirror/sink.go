// Package mirror replicates committed account events to an optional remote
// sink. Replication is best effort: failures are logged and dropped and
// never reach the operation that produced the event.
package mirror

import (
	"context"
	"time"
)

// Envelope is one replicated event.
type Envelope struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	AccountID string    `json:"account_id"`
	Data      any       `json:"data"`
	At        time.Time `json:"at"`
}

type Sink interface {
	Send(ctx context.Context, env Envelope) error
	Enabled() bool
}

type Disabled struct{}

func NewDisabled() *Disabled {
	return &Disabled{}
}

func (d *Disabled) Send(ctx context.Context, env Envelope) error { return nil }

func (d *Disabled) Enabled() bool { return false }
