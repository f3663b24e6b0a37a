package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeType distinguishes the two sides of a trade.
type TradeType string

const (
	Buy  TradeType = "buy"
	Sell TradeType = "sell"
)

// Holding is a user's current share count for one symbol.
type Holding struct {
	UserID int64  `json:"user_id"`
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}

// Transaction is an immutable entry of the trade log.
type Transaction struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Shares    int64           `json:"shares"`
	Type      TradeType       `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

// Amount is price times shares.
func (t Transaction) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares))
}

// Trade is a validated order executed at a resolved price.
type Trade struct {
	UserID int64
	Symbol string
	Price  decimal.Decimal
	Shares int64
	Type   TradeType
}

// Amount is the cash moved by the trade.
func (t Trade) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares))
}

// Quote is a point-in-time price lookup for a symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}
