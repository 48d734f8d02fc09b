// Package depositmethods is the catalog of assets a deposit or withdrawal
// request can name, and the display addresses handed out for deposits.
// Addresses are format-only placeholders with no custody behind them.
package depositmethods

import (
	"strings"

	"github.com/google/uuid"
)

type Method struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Network       string `json:"network"`
	AddressPrefix string `json:"address_prefix"`
}

const defaultPrefix = "0x"

var methodCatalog = []Method{
	{ID: "BTC", Title: "Bitcoin", Network: "bitcoin", AddressPrefix: "bc1q"},
	{ID: "ETH", Title: "Ethereum", Network: "ethereum", AddressPrefix: "0x"},
	{ID: "USDT-TRC20", Title: "Tether (TRC20)", Network: "tron", AddressPrefix: "T"},
	{ID: "USDC-TRC20", Title: "USD Coin (TRC20)", Network: "tron", AddressPrefix: "T"},
	{ID: "USDT-ERC20", Title: "Tether (ERC20)", Network: "ethereum", AddressPrefix: "0x"},
}

func Defaults() []Method {
	out := make([]Method, len(methodCatalog))
	copy(out, methodCatalog)
	return out
}

// Normalize upper-cases and trims an asset id.
func Normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func Lookup(id string) (Method, bool) {
	normalized := Normalize(id)
	for _, m := range methodCatalog {
		if m.ID == normalized {
			return m, true
		}
	}
	return Method{}, false
}

func TitleByID(id string) string {
	if m, ok := Lookup(id); ok {
		return m.Title
	}
	return Normalize(id)
}

const (
	addressAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	addressBodyLen  = 18
)

// Address returns a display deposit address for asset: the asset's prefix
// followed by 18 random lowercase alphanumerics. Unknown assets get "0x".
func Address(asset string) string {
	prefix := defaultPrefix
	if m, ok := Lookup(asset); ok {
		prefix = m.AddressPrefix
	}
	a, b := uuid.New(), uuid.New()
	raw := append(a[:], b[:]...)
	var sb strings.Builder
	sb.Grow(len(prefix) + addressBodyLen)
	sb.WriteString(prefix)
	for i := 0; i < addressBodyLen; i++ {
		sb.WriteByte(addressAlphabet[int(raw[i])%len(addressAlphabet)])
	}
	return sb.String()
}
