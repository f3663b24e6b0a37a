package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hongminglow/papertrade/internal/models"
	"github.com/hongminglow/papertrade/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(t *testing.T, s *Store, cash string) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), "alice", "hash", decimal.RequireFromString(cash))
	require.NoError(t, err)
	return u
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	s := New()
	newUser(t, s, "10000")
	_, err := s.CreateUser(context.Background(), "alice", "other", decimal.Zero)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestApplyTradeBuyThenSellAll(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "10000")

	_, err := s.ApplyTrade(ctx, models.Trade{UserID: u.ID, Symbol: "AAPL", Price: decimal.NewFromInt(150), Shares: 10, Type: models.Buy})
	require.NoError(t, err)

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Cash.Equal(decimal.NewFromInt(8500)), "cash = %s", got.Cash)
	h, err := s.Holding(ctx, u.ID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(10), h.Shares)

	_, err = s.ApplyTrade(ctx, models.Trade{UserID: u.ID, Symbol: "AAPL", Price: decimal.NewFromInt(160), Shares: 10, Type: models.Sell})
	require.NoError(t, err)

	got, err = s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Cash.Equal(decimal.NewFromInt(10100)), "cash = %s", got.Cash)
	_, err = s.Holding(ctx, u.ID, "AAPL")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	txs, err := s.Transactions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.Sell, txs[0].Type)
	assert.Equal(t, models.Buy, txs[1].Type)
}

func TestApplyTradeRejectionsLeaveStateUntouched(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "100")

	_, err := s.ApplyTrade(ctx, models.Trade{UserID: u.ID, Symbol: "AAPL", Price: decimal.NewFromInt(150), Shares: 1, Type: models.Buy})
	assert.ErrorIs(t, err, storage.ErrInsufficientFunds)

	_, err = s.ApplyTrade(ctx, models.Trade{UserID: u.ID, Symbol: "AAPL", Price: decimal.NewFromInt(1), Shares: 1, Type: models.Sell})
	assert.ErrorIs(t, err, storage.ErrInsufficientShares)

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Cash.Equal(decimal.NewFromInt(100)))
	txs, err := s.Transactions(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
	holdings, err := s.Holdings(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestApplyTradeConcurrentBuysNeverOverspend(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "1000")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ApplyTrade(ctx, models.Trade{UserID: u.ID, Symbol: "MSFT", Price: decimal.NewFromInt(100), Shares: 1, Type: models.Buy})
		}()
	}
	wg.Wait()

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Cash.IsZero(), "cash = %s", got.Cash)
	h, err := s.Holding(ctx, u.ID, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, int64(10), h.Shares)
}

func TestClearTransactionsOnlyTouchesOwner(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := newUser(t, s, "1000")
	b, err := s.CreateUser(ctx, "bob", "hash", decimal.NewFromInt(1000))
	require.NoError(t, err)

	for _, id := range []int64{a.ID, a.ID, b.ID} {
		_, err := s.ApplyTrade(ctx, models.Trade{UserID: id, Symbol: "IBM", Price: decimal.NewFromInt(10), Shares: 1, Type: models.Buy})
		require.NoError(t, err)
	}

	n, err := s.ClearTransactions(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := s.Transactions(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestSessionsExpire(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "0")
	now := time.Now()

	require.NoError(t, s.CreateSession(ctx, models.Session{ID: "live", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.CreateSession(ctx, models.Session{ID: "stale", UserID: u.ID, ExpiresAt: now.Add(-time.Minute)}))

	_, err := s.FindSession(ctx, "stale", now)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.FindSession(ctx, "live", now)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)

	require.NoError(t, s.DeleteSession(ctx, "live"))
	_, err = s.FindSession(ctx, "live", now)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
