package model

import (
	"time"

	"edge-tradesim/internal/money"
	"edge-tradesim/internal/types"

	"github.com/shopspring/decimal"
)

// Balance is one account's bucket record together with its trade counter.
type Balance struct {
	AccountID  string      `json:"account_id"`
	Deposit    money.Money `json:"deposit"`
	Trading    money.Money `json:"trading"`
	Locked     money.Money `json:"locked"`
	Total      money.Money `json:"total"`
	TradeCount int64       `json:"trade_count"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type TradeOrder struct {
	ID              string            `json:"id"`
	AccountID       string            `json:"account_id"`
	Pair            string            `json:"pair"`
	Side            types.TradeSide   `json:"side"`
	Amount          money.Money       `json:"amount"`
	StopLoss        *decimal.Decimal  `json:"stop_loss,omitempty"`
	TakeProfit      *decimal.Decimal  `json:"take_profit,omitempty"`
	DurationMinutes int               `json:"duration_minutes"`
	Seq             int64             `json:"seq"`
	PlacedAt        time.Time         `json:"placed_at"`
	SettleAt        time.Time         `json:"settle_at"`
	Status          types.TradeStatus `json:"status"`
	Result          types.TradeResult `json:"result"`
	Payout          *money.Money      `json:"payout,omitempty"`
	ClosedAt        *time.Time        `json:"closed_at,omitempty"`
}

type DepositRequest struct {
	ID        string              `json:"id"`
	AccountID string              `json:"account_id"`
	Asset     string              `json:"asset"`
	Amount    money.Money         `json:"amount"`
	Address   string              `json:"address"`
	CreatedAt time.Time           `json:"created_at"`
	ExpiresAt time.Time           `json:"expires_at"`
	Status    types.RequestStatus `json:"status"`
	DecidedAt *time.Time          `json:"decided_at,omitempty"`
}

// SecondsRemaining is the display countdown to ExpiresAt, floored at zero.
func (d DepositRequest) SecondsRemaining(now time.Time) int64 {
	left := d.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int64(left / time.Second)
}

type WithdrawalRequest struct {
	ID          string              `json:"id"`
	AccountID   string              `json:"account_id"`
	Asset       string              `json:"asset"`
	Destination string              `json:"destination"`
	Amount      money.Money         `json:"amount"`
	CreatedAt   time.Time           `json:"created_at"`
	Status      types.RequestStatus `json:"status"`
	DecidedAt   *time.Time          `json:"decided_at,omitempty"`
}
