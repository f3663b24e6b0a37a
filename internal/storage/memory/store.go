// Package memory keeps all state in process. A single mutex serialises every
// mutation so trades are applied atomically, matching the Postgres store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hongminglow/papertrade/internal/models"
	"github.com/hongminglow/papertrade/internal/storage"
	"github.com/shopspring/decimal"
)

var _ storage.Store = (*Store)(nil)

type holdingKey struct {
	userID int64
	symbol string
}

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu       sync.Mutex
	nextUser int64
	nextTx   int64
	users    map[int64]*models.User
	holdings map[holdingKey]int64
	txs      []models.Transaction
	sessions map[string]models.Session
	now      func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:    make(map[int64]*models.User),
		holdings: make(map[holdingKey]int64),
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// CreateUser adds a user, rejecting duplicate usernames.
func (s *Store) CreateUser(_ context.Context, username, passwordHash string, cash decimal.Decimal) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	s.nextUser++
	u := &models.User{
		ID:           s.nextUser,
		Username:     username,
		PasswordHash: passwordHash,
		Cash:         cash,
		CreatedAt:    s.now(),
	}
	s.users[u.ID] = u
	return *u, nil
}

// FindByUsername looks a user up by exact username.
func (s *Store) FindByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return *u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

// FindByID looks a user up by id.
func (s *Store) FindByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return *u, nil
}

// Holdings lists the user's positions ordered by symbol.
func (s *Store) Holdings(_ context.Context, userID int64) ([]models.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Holding
	for k, shares := range s.holdings {
		if k.userID == userID {
			out = append(out, models.Holding{UserID: userID, Symbol: k.symbol, Shares: shares})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// Holding returns one position or storage.ErrNotFound.
func (s *Store) Holding(_ context.Context, userID int64, symbol string) (models.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shares, ok := s.holdings[holdingKey{userID, strings.ToUpper(symbol)}]
	if !ok {
		return models.Holding{}, storage.ErrNotFound
	}
	return models.Holding{UserID: userID, Symbol: strings.ToUpper(symbol), Shares: shares}, nil
}

// ApplyTrade validates and applies the trade while holding the lock, so either
// every change lands or none does.
func (s *Store) ApplyTrade(_ context.Context, trade models.Trade) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[trade.UserID]
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	key := holdingKey{trade.UserID, trade.Symbol}
	owned, held := s.holdings[key]
	amount := trade.Amount()

	switch trade.Type {
	case models.Buy:
		if amount.GreaterThan(u.Cash) {
			return models.Transaction{}, storage.ErrInsufficientFunds
		}
		s.holdings[key] = owned + trade.Shares
		u.Cash = u.Cash.Sub(amount)
	case models.Sell:
		if !held || owned < trade.Shares {
			return models.Transaction{}, storage.ErrInsufficientShares
		}
		if remaining := owned - trade.Shares; remaining == 0 {
			delete(s.holdings, key)
		} else {
			s.holdings[key] = remaining
		}
		u.Cash = u.Cash.Add(amount)
	default:
		return models.Transaction{}, fmt.Errorf("unknown trade type %q", trade.Type)
	}

	s.nextTx++
	tx := models.Transaction{
		ID:        s.nextTx,
		UserID:    trade.UserID,
		Symbol:    trade.Symbol,
		Price:     trade.Price,
		Shares:    trade.Shares,
		Type:      trade.Type,
		CreatedAt: s.now(),
	}
	s.txs = append(s.txs, tx)
	return tx, nil
}

// Transactions returns the user's trade log, newest first.
func (s *Store) Transactions(_ context.Context, userID int64) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for i := len(s.txs) - 1; i >= 0; i-- {
		if s.txs[i].UserID == userID {
			out = append(out, s.txs[i])
		}
	}
	return out, nil
}

// ClearTransactions deletes the user's trade log and returns the number removed.
func (s *Store) ClearTransactions(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.txs[:0]
	var removed int64
	for _, tx := range s.txs {
		if tx.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, tx)
	}
	s.txs = kept
	return removed, nil
}

// CreateSession stores a session for an existing user.
func (s *Store) CreateSession(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[session.UserID]; !ok {
		return storage.ErrNotFound
	}
	if _, ok := s.sessions[session.ID]; ok {
		return storage.ErrAlreadyExists
	}
	s.sessions[session.ID] = session
	return nil
}

// FindSession returns the session while it is unexpired at now.
func (s *Store) FindSession(_ context.Context, id string, now time.Time) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || session.Expired(now) {
		return models.Session{}, storage.ErrNotFound
	}
	return session, nil
}

// DeleteSession removes a session if present.
func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// DeleteExpiredSessions removes sessions expired at now.
func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
