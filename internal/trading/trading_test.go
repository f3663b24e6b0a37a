package trading

import (
	"context"
	"errors"
	"testing"

	"github.com/hongminglow/papertrade/internal/models"
	"github.com/hongminglow/papertrade/internal/quote"
	"github.com/hongminglow/papertrade/internal/storage"
	"github.com/hongminglow/papertrade/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuotes struct {
	prices map[string]decimal.Decimal
	err    error
	calls  int
}

func (s *stubQuotes) Lookup(_ context.Context, symbol string) (models.Quote, error) {
	s.calls++
	if s.err != nil {
		return models.Quote{}, s.err
	}
	sym := quote.NormalizeSymbol(symbol)
	price, ok := s.prices[sym]
	if !ok {
		return models.Quote{}, quote.ErrSymbolNotFound
	}
	return models.Quote{Symbol: sym, Name: sym + " Inc", Price: price}, nil
}

func setup(t *testing.T, cash int64) (*Service, *memory.Store, *stubQuotes, models.User) {
	t.Helper()
	store := memory.New()
	user, err := store.CreateUser(context.Background(), "alice", "hash", decimal.NewFromInt(cash))
	require.NoError(t, err)
	quotes := &stubQuotes{prices: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(150)}}
	return NewService(store, quotes), store, quotes, user
}

func cashOf(t *testing.T, store *memory.Store, userID int64) decimal.Decimal {
	t.Helper()
	u, err := store.FindByID(context.Background(), userID)
	require.NoError(t, err)
	return u.Cash
}

func TestBuyThenSellScenario(t *testing.T) {
	ctx := context.Background()
	svc, store, quotes, user := setup(t, 10000)

	tx, err := svc.Buy(ctx, user.ID, "aapl", "10")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", tx.Symbol)
	assert.True(t, tx.Price.Equal(decimal.NewFromInt(150)))
	assert.True(t, cashOf(t, store, user.ID).Equal(decimal.NewFromInt(8500)))

	h, err := store.Holding(ctx, user.ID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(10), h.Shares)

	quotes.prices["AAPL"] = decimal.NewFromInt(160)
	_, err = svc.Sell(ctx, user.ID, "AAPL", "10")
	require.NoError(t, err)
	assert.True(t, cashOf(t, store, user.ID).Equal(decimal.NewFromInt(10100)))

	_, err = store.Holding(ctx, user.ID, "AAPL")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	history, err := svc.History(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.Sell, history[0].Type)
	assert.True(t, history[0].Price.Equal(decimal.NewFromInt(160)))
	assert.Equal(t, models.Buy, history[1].Type)
}

func TestBuyAddsToExistingHolding(t *testing.T) {
	ctx := context.Background()
	svc, store, _, user := setup(t, 10000)

	_, err := svc.Buy(ctx, user.ID, "AAPL", "2")
	require.NoError(t, err)
	_, err = svc.Buy(ctx, user.ID, "AAPL", "3")
	require.NoError(t, err)

	h, err := store.Holding(ctx, user.ID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(5), h.Shares)
	assert.True(t, cashOf(t, store, user.ID).Equal(decimal.NewFromInt(10000-5*150)))
}

func TestPartialSellKeepsHolding(t *testing.T) {
	ctx := context.Background()
	svc, store, _, user := setup(t, 10000)
	_, err := svc.Buy(ctx, user.ID, "AAPL", "4")
	require.NoError(t, err)

	_, err = svc.Sell(ctx, user.ID, "AAPL", "1")
	require.NoError(t, err)

	h, err := store.Holding(ctx, user.ID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(3), h.Shares)
}

func TestBuyRejections(t *testing.T) {
	cases := []struct {
		name   string
		symbol string
		shares string
		want   error
	}{
		{"missing symbol", " ", "1", ErrSymbolRequired},
		{"zero shares", "AAPL", "0", ErrInvalidShares},
		{"negative shares", "AAPL", "-3", ErrInvalidShares},
		{"fractional shares", "AAPL", "1.5", ErrInvalidShares},
		{"text shares", "AAPL", "ten", ErrInvalidShares},
		{"unknown symbol", "ZZZZ", "1", quote.ErrSymbolNotFound},
		{"too expensive", "AAPL", "100", storage.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			svc, store, _, user := setup(t, 10000)

			_, err := svc.Buy(ctx, user.ID, tc.symbol, tc.shares)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, cashOf(t, store, user.ID).Equal(decimal.NewFromInt(10000)))
			history, err := svc.History(ctx, user.ID)
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}

func TestSellRejections(t *testing.T) {
	ctx := context.Background()
	svc, store, quotes, user := setup(t, 10000)
	_, err := svc.Buy(ctx, user.ID, "AAPL", "2")
	require.NoError(t, err)
	calls := quotes.calls

	_, err = svc.Sell(ctx, user.ID, "AAPL", "3")
	assert.ErrorIs(t, err, storage.ErrInsufficientShares)

	_, err = svc.Sell(ctx, user.ID, "MSFT", "1")
	assert.ErrorIs(t, err, ErrNotOwned)

	_, err = svc.Sell(ctx, user.ID, "", "1")
	assert.ErrorIs(t, err, ErrSymbolRequired)

	_, err = svc.Sell(ctx, user.ID, "AAPL", "0")
	assert.ErrorIs(t, err, ErrInvalidShares)

	assert.Equal(t, calls, quotes.calls, "rejected sells must not hit the price service")
	assert.True(t, cashOf(t, store, user.ID).Equal(decimal.NewFromInt(10000-300)))
	h, err := store.Holding(ctx, user.ID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.Shares)
}

func TestSellPropagatesLookupFailure(t *testing.T) {
	ctx := context.Background()
	svc, _, quotes, user := setup(t, 10000)
	_, err := svc.Buy(ctx, user.ID, "AAPL", "1")
	require.NoError(t, err)

	quotes.err = quote.ErrUnavailable
	_, err = svc.Sell(ctx, user.ID, "AAPL", "1")
	assert.ErrorIs(t, err, quote.ErrUnavailable)
}

func TestPortfolioValuesHoldings(t *testing.T) {
	ctx := context.Background()
	svc, _, quotes, user := setup(t, 10000)
	quotes.prices["MSFT"] = decimal.NewFromInt(100)
	_, err := svc.Buy(ctx, user.ID, "AAPL", "10")
	require.NoError(t, err)
	_, err = svc.Buy(ctx, user.ID, "MSFT", "5")
	require.NoError(t, err)

	quotes.prices["AAPL"] = decimal.NewFromInt(200)
	p, err := svc.Portfolio(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, p.Positions, 2)
	assert.Equal(t, "AAPL", p.Positions[0].Symbol)
	assert.True(t, p.Positions[0].Total.Equal(decimal.NewFromInt(2000)))
	assert.True(t, p.Cash.Equal(decimal.NewFromInt(8000)))
	assert.True(t, p.Total.Equal(decimal.NewFromInt(8000+2000+500)))
}

func TestPortfolioSkipsUnpricedHoldingsInTotal(t *testing.T) {
	ctx := context.Background()
	svc, _, quotes, user := setup(t, 10000)
	_, err := svc.Buy(ctx, user.ID, "AAPL", "10")
	require.NoError(t, err)

	quotes.err = errors.New("boom")
	p, err := svc.Portfolio(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, p.Positions, 1)
	assert.False(t, p.Positions[0].Available)
	assert.Equal(t, int64(10), p.Positions[0].Shares)
	assert.True(t, p.Total.Equal(p.Cash))
}

func TestClearHistoryKeepsHoldings(t *testing.T) {
	ctx := context.Background()
	svc, store, _, user := setup(t, 10000)
	_, err := svc.Buy(ctx, user.ID, "AAPL", "1")
	require.NoError(t, err)

	n, err := svc.ClearHistory(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	history, err := svc.History(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	_, err = store.Holding(ctx, user.ID, "AAPL")
	assert.NoError(t, err)
}

func TestQuoteRequiresSymbol(t *testing.T) {
	svc, _, _, _ := setup(t, 0)
	_, err := svc.Quote(context.Background(), "")
	assert.ErrorIs(t, err, ErrSymbolRequired)

	q, err := svc.Quote(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
}

func TestTradesUseStoredPricePrecision(t *testing.T) {
	svc, store, quotes, user := setup(t, 1000)
	ctx := context.Background()
	quotes.prices["AAPL"] = decimal.RequireFromString("150.12345")

	tx, err := svc.Buy(ctx, user.ID, "AAPL", "2")
	require.NoError(t, err)
	assert.Equal(t, "150.1235", tx.Price.String())

	quotes.prices["AAPL"] = decimal.RequireFromString("160.00004")
	tx, err = svc.Sell(ctx, user.ID, "AAPL", "2")
	require.NoError(t, err)
	assert.Equal(t, "160", tx.Price.String())

	txs, err := store.Transactions(ctx, user.ID)
	require.NoError(t, err)
	net := decimal.Zero
	for _, tx := range txs {
		if tx.Type == models.Buy {
			net = net.Sub(tx.Amount())
		} else {
			net = net.Add(tx.Amount())
		}
	}
	assert.True(t, cashOf(t, store, user.ID).Equal(decimal.NewFromInt(1000).Add(net)), cashOf(t, store, user.ID).String())
}
