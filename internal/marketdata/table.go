// Package marketdata keeps the simulated quote table shown next to the
// trade ticket. Quotes are display only; placing a trade never consults
// them.
package marketdata

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryCrypto    Category = "crypto"
	CategoryForex     Category = "forex"
	CategoryCommodity Category = "commodity"
	CategoryStock     Category = "stock"
)

type Quote struct {
	Pair      string          `json:"pair"`
	Category  Category        `json:"category"`
	Buy       decimal.Decimal `json:"buy"`
	Sell      decimal.Decimal `json:"sell"`
	Trend     string          `json:"trend,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type seed struct {
	pair      string
	buy, sell string
	category  Category
}

var seeds = []seed{
	{"BTC/USD", "63520.12", "63510.44", CategoryCrypto},
	{"ETH/USD", "2790.45", "2788.10", CategoryCrypto},
	{"BNB/USD", "585.22", "584.61", CategoryCrypto},
	{"SOL/USD", "145.30", "144.92", CategoryCrypto},
	{"XRP/USD", "0.5922", "0.5920", CategoryCrypto},
	{"ADA/USD", "0.4855", "0.4852", CategoryCrypto},
	{"DOT/USD", "7.25", "7.24", CategoryCrypto},
	{"DOGE/USD", "0.1325", "0.1324", CategoryCrypto},
	{"EUR/USD", "1.0915", "1.0913", CategoryForex},
	{"GBP/USD", "1.2812", "1.2809", CategoryForex},
	{"USD/JPY", "148.23", "148.21", CategoryForex},
	{"AUD/USD", "0.7425", "0.7423", CategoryForex},
	{"USD/CAD", "1.3245", "1.3243", CategoryForex},
	{"USD/CHF", "0.9155", "0.9153", CategoryForex},
	{"XAU/USD", "2432.80", "2431.10", CategoryCommodity},
	{"XAG/USD", "28.45", "28.42", CategoryCommodity},
	{"OIL/USD", "82.35", "82.32", CategoryCommodity},
	{"GAS/USD", "3.250", "3.248", CategoryCommodity},
	{"AAPL/USD", "224.22", "224.00", CategoryStock},
	{"TSLA/USD", "192.11", "191.89", CategoryStock},
	{"MSFT/USD", "425.65", "425.45", CategoryStock},
	{"AMZN/USD", "178.35", "178.25", CategoryStock},
	{"GOOGL/USD", "155.80", "155.70", CategoryStock},
	{"META/USD", "425.50", "425.30", CategoryStock},
	{"NVDA/USD", "890.45", "890.25", CategoryStock},
}

// Table is the process-wide quote state. It is safe for concurrent use.
type Table struct {
	mu     sync.RWMutex
	quotes map[string]Quote
	order  []string
	rng    *rand.Rand
	now    func() time.Time
}

// NewTable seeds the table. A nil rng draws from a randomly seeded source.
func NewTable(rng *rand.Rand, now func() time.Time) *Table {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	t := &Table{quotes: make(map[string]Quote, len(seeds)), rng: rng, now: now}
	at := now()
	for _, s := range seeds {
		t.quotes[s.pair] = Quote{
			Pair:      s.pair,
			Category:  s.category,
			Buy:       decimal.RequireFromString(s.buy),
			Sell:      decimal.RequireFromString(s.sell),
			UpdatedAt: at,
		}
		t.order = append(t.order, s.pair)
	}
	return t
}

func (t *Table) Get(pair string) (Quote, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	q, ok := t.quotes[strings.ToUpper(strings.TrimSpace(pair))]
	return q, ok
}

// List returns quotes grouped by category, in seed order within a group.
func (t *Table) List() []Quote {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Quote, 0, len(t.order))
	for _, p := range t.order {
		out = append(out, t.quotes[p])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return categoryRank(out[i].Category) < categoryRank(out[j].Category)
	})
	return out
}

func categoryRank(c Category) int {
	switch c {
	case CategoryCrypto:
		return 0
	case CategoryForex:
		return 1
	case CategoryCommodity:
		return 2
	default:
		return 3
	}
}

var (
	d1000 = decimal.NewFromInt(1000)
	d500  = decimal.NewFromInt(500)
	d100  = decimal.NewFromInt(100)
	d1    = decimal.NewFromInt(1)
)

// volatility is the largest single-step drift for a quote.
func volatility(q Quote) decimal.Decimal {
	switch q.Category {
	case CategoryCrypto:
		switch {
		case q.Buy.GreaterThan(d1000):
			return decimal.NewFromInt(2)
		case q.Buy.GreaterThan(d100):
			return decimal.RequireFromString("0.5")
		case q.Buy.GreaterThan(d1):
			return decimal.RequireFromString("0.01")
		default:
			return decimal.RequireFromString("0.0001")
		}
	case CategoryForex:
		return decimal.RequireFromString("0.0002")
	case CategoryCommodity:
		if q.Buy.GreaterThan(d1000) {
			return decimal.RequireFromString("0.5")
		}
		return decimal.RequireFromString("0.02")
	case CategoryStock:
		if q.Buy.GreaterThan(d500) {
			return decimal.RequireFromString("0.3")
		}
		return decimal.RequireFromString("0.1")
	default:
		return decimal.RequireFromString("0.01")
	}
}

func spread(buy decimal.Decimal) decimal.Decimal {
	switch {
	case buy.GreaterThan(d1000):
		return decimal.RequireFromString("0.5")
	case buy.GreaterThan(d100):
		return decimal.RequireFromString("0.2")
	case buy.GreaterThan(d1):
		return decimal.RequireFromString("0.002")
	default:
		return decimal.RequireFromString("0.0002")
	}
}

// Nudge applies one random drift step to every quote and returns the new
// snapshot.
func (t *Table) Nudge() []Quote {
	t.mu.Lock()
	at := t.now()
	for _, p := range t.order {
		q := t.quotes[p]
		drift := volatility(q).Mul(decimal.NewFromFloat(t.rng.Float64()))
		if t.rng.IntN(2) == 0 {
			drift = drift.Neg()
		}
		buy := q.Buy.Add(drift).Round(4)
		sp := spread(q.Buy)
		if !buy.Sub(sp).IsPositive() {
			buy = q.Buy
		}
		q.Trend = "down"
		if drift.IsPositive() {
			q.Trend = "up"
		}
		q.Buy = buy
		q.Sell = buy.Sub(sp).Round(4)
		q.UpdatedAt = at
		t.quotes[p] = q
	}
	t.mu.Unlock()
	return t.List()
}
