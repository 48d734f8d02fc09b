package types

type TradeSide string

type TradeStatus string

type TradeResult string

type RequestStatus string

type Bucket string

type ConvertDirection string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

const (
	TradeResultWin  TradeResult = "win"
	TradeResultLoss TradeResult = "loss"
)

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

const (
	BucketDeposit Bucket = "deposit"
	BucketTrading Bucket = "trading"
)

const (
	ConvertDepositToTrading ConvertDirection = "dep-to-trade"
	ConvertTradingToDeposit ConvertDirection = "trade-to-dep"
)

func (s TradeSide) Valid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

func (b Bucket) Valid() bool {
	return b == BucketDeposit || b == BucketTrading
}

func (d ConvertDirection) Valid() bool {
	return d == ConvertDepositToTrading || d == ConvertTradingToDeposit
}
