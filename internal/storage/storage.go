package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/papertrade/internal/models"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrInsufficientFunds indicates a buy costs more than the available cash.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInsufficientShares indicates a sell exceeds the shares held.
var ErrInsufficientShares = errors.New("insufficient shares")

// UserStore captures persistence operations on accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, cash decimal.Decimal) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
}

// PortfolioStore captures holdings and the transaction log.
type PortfolioStore interface {
	Holdings(ctx context.Context, userID int64) ([]models.Holding, error)
	Holding(ctx context.Context, userID int64, symbol string) (models.Holding, error)
	// ApplyTrade records the transaction, adjusts the holding and moves cash as
	// a single unit. Nothing is written when any step fails.
	ApplyTrade(ctx context.Context, trade models.Trade) (models.Transaction, error)
	// Transactions lists the user's log newest first.
	Transactions(ctx context.Context, userID int64) ([]models.Transaction, error)
	ClearTransactions(ctx context.Context, userID int64) (int64, error)
}

// SessionStore keeps server-side login sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session models.Session) error
	FindSession(ctx context.Context, id string, now time.Time) (models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Store is everything the application persists.
type Store interface {
	UserStore
	PortfolioStore
	SessionStore
	Ping(ctx context.Context) error
	Close()
}
