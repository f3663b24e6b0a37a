// Package trading implements the portfolio, quote, buy, sell and history
// operations on top of a store and a quote provider.
package trading

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hongminglow/papertrade/internal/logging"
	"github.com/hongminglow/papertrade/internal/models"
	"github.com/hongminglow/papertrade/internal/quote"
	"github.com/hongminglow/papertrade/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrSymbolRequired = errors.New("symbol required")
	ErrInvalidShares  = errors.New("shares must be a positive whole number")
	ErrNotOwned       = errors.New("you do not own that symbol")
)

// Position is one holding valued at the current price.
type Position struct {
	Symbol    string
	Name      string
	Shares    int64
	Price     decimal.Decimal
	Total     decimal.Decimal
	Available bool
}

// Portfolio is the index page model.
type Portfolio struct {
	Positions []Position
	Cash      decimal.Decimal
	Total     decimal.Decimal
}

// priceScale matches the precision of stored prices and cash.
const priceScale = 4

// Service is safe for concurrent use; all state lives in the store.
type Service struct {
	store  storage.Store
	quotes quote.Provider
}

// NewService wires the store and the price lookup.
func NewService(store storage.Store, quotes quote.Provider) *Service {
	return &Service{store: store, quotes: quotes}
}

// ParseShares accepts a base-10 integer of at least one.
func ParseShares(raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		return 0, ErrInvalidShares
	}
	return n, nil
}

// Portfolio values every holding at its current price. A holding whose lookup
// fails stays in the list, marked unavailable and left out of the total.
func (s *Service) Portfolio(ctx context.Context, userID int64) (Portfolio, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return Portfolio{}, fmt.Errorf("load user: %w", err)
	}
	holdings, err := s.store.Holdings(ctx, userID)
	if err != nil {
		return Portfolio{}, fmt.Errorf("load holdings: %w", err)
	}

	out := Portfolio{Cash: user.Cash, Total: user.Cash}
	for _, h := range holdings {
		pos := Position{Symbol: h.Symbol, Shares: h.Shares}
		q, err := s.quotes.Lookup(ctx, h.Symbol)
		if err != nil {
			logging.FromContext(ctx).WithError(err).WithField("symbol", h.Symbol).Warn("price unavailable for holding")
		} else {
			pos.Name = q.Name
			pos.Price = q.Price
			pos.Total = q.Price.Mul(decimal.NewFromInt(h.Shares))
			pos.Available = true
			out.Total = out.Total.Add(pos.Total)
		}
		out.Positions = append(out.Positions, pos)
	}
	return out, nil
}

// Quote looks up a symbol.
func (s *Service) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	if strings.TrimSpace(symbol) == "" {
		return models.Quote{}, ErrSymbolRequired
	}
	return s.quotes.Lookup(ctx, symbol)
}

// Buy purchases shares at the current price.
func (s *Service) Buy(ctx context.Context, userID int64, symbol, shares string) (models.Transaction, error) {
	if strings.TrimSpace(symbol) == "" {
		return models.Transaction{}, ErrSymbolRequired
	}
	n, err := ParseShares(shares)
	if err != nil {
		return models.Transaction{}, err
	}
	q, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		return models.Transaction{}, err
	}
	return s.store.ApplyTrade(ctx, models.Trade{
		UserID: userID,
		Symbol: q.Symbol,
		Price:  q.Price.Round(priceScale),
		Shares: n,
		Type:   models.Buy,
	})
}

// Sell sells shares at the current price. The holding is checked before the
// price lookup; the store checks it again under lock.
func (s *Service) Sell(ctx context.Context, userID int64, symbol, shares string) (models.Transaction, error) {
	sym := quote.NormalizeSymbol(symbol)
	if strings.TrimSpace(symbol) == "" {
		return models.Transaction{}, ErrSymbolRequired
	}
	n, err := ParseShares(shares)
	if err != nil {
		return models.Transaction{}, err
	}
	if sym == "" {
		return models.Transaction{}, ErrNotOwned
	}

	holding, err := s.store.Holding(ctx, userID, sym)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Transaction{}, ErrNotOwned
		}
		return models.Transaction{}, fmt.Errorf("load holding: %w", err)
	}
	if holding.Shares < n {
		return models.Transaction{}, storage.ErrInsufficientShares
	}

	q, err := s.quotes.Lookup(ctx, sym)
	if err != nil {
		return models.Transaction{}, err
	}
	return s.store.ApplyTrade(ctx, models.Trade{
		UserID: userID,
		Symbol: holding.Symbol,
		Price:  q.Price.Round(priceScale),
		Shares: n,
		Type:   models.Sell,
	})
}

// OwnedSymbols lists the symbols the user can sell.
func (s *Service) OwnedSymbols(ctx context.Context, userID int64) ([]string, error) {
	holdings, err := s.store.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbols = append(symbols, h.Symbol)
	}
	return symbols, nil
}

// History returns the user's transactions newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]models.Transaction, error) {
	return s.store.Transactions(ctx, userID)
}

// ClearHistory deletes the user's transaction log. Holdings and cash are kept.
func (s *Service) ClearHistory(ctx context.Context, userID int64) (int64, error) {
	n, err := s.store.ClearTransactions(ctx, userID)
	if err != nil {
		return 0, err
	}
	logging.FromContext(ctx).WithFields(logrus.Fields{"user_id": userID, "deleted": n}).Info("transaction history cleared")
	return n, nil
}
