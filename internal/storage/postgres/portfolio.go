package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/hongminglow/papertrade/internal/models"
	"github.com/hongminglow/papertrade/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Holdings lists the user's current positions ordered by symbol.
func (s *Store) Holdings(ctx context.Context, userID int64) ([]models.Holding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, symbol, shares FROM stocks WHERE user_id = $1 ORDER BY symbol`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.UserID, &h.Symbol, &h.Shares); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// Holding fetches a single position.
func (s *Store) Holding(ctx context.Context, userID int64, symbol string) (models.Holding, error) {
	var h models.Holding
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, symbol, shares FROM stocks WHERE user_id = $1 AND symbol = $2`,
		userID, symbol,
	).Scan(&h.UserID, &h.Symbol, &h.Shares)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Holding{}, storage.ErrNotFound
		}
		return models.Holding{}, err
	}
	return h, nil
}

// ApplyTrade runs the whole trade inside one transaction. The user row and the
// holding row are locked with FOR UPDATE, so concurrent trades by the same user
// queue behind each other instead of racing on cash or shares.
func (s *Store) ApplyTrade(ctx context.Context, trade models.Trade) (models.Transaction, error) {
	var out models.Transaction
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var cash decimal.Decimal
		err := tx.QueryRow(ctx, `SELECT cash FROM users WHERE id = $1 FOR UPDATE`, trade.UserID).Scan(&cash)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}

		amount := trade.Amount()
		switch trade.Type {
		case models.Buy:
			if amount.GreaterThan(cash) {
				return storage.ErrInsufficientFunds
			}
			if err := buyShares(ctx, tx, trade); err != nil {
				return err
			}
			cash = cash.Sub(amount)
		case models.Sell:
			if err := sellShares(ctx, tx, trade); err != nil {
				return err
			}
			cash = cash.Add(amount)
		default:
			return fmt.Errorf("unknown trade type %q", trade.Type)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO transactions (user_id, symbol, price, shares, transaction_type)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, user_id, symbol, price, shares, transaction_type, created_at`,
			trade.UserID, trade.Symbol, trade.Price, trade.Shares, string(trade.Type),
		).Scan(&out.ID, &out.UserID, &out.Symbol, &out.Price, &out.Shares, &out.Type, &out.CreatedAt)
		if err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET cash = $1 WHERE id = $2`, cash, trade.UserID); err != nil {
			return fmt.Errorf("update cash: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return out, nil
}

func buyShares(ctx context.Context, tx pgx.Tx, trade models.Trade) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stocks (user_id, symbol, shares)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, symbol) DO UPDATE SET
			shares = stocks.shares + EXCLUDED.shares`,
		trade.UserID, trade.Symbol, trade.Shares)
	if err != nil {
		return fmt.Errorf("add shares: %w", err)
	}
	return nil
}

func sellShares(ctx context.Context, tx pgx.Tx, trade models.Trade) error {
	var owned int64
	err := tx.QueryRow(ctx,
		`SELECT shares FROM stocks WHERE user_id = $1 AND symbol = $2 FOR UPDATE`,
		trade.UserID, trade.Symbol,
	).Scan(&owned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrInsufficientShares
		}
		return fmt.Errorf("lock holding: %w", err)
	}
	if owned < trade.Shares {
		return storage.ErrInsufficientShares
	}

	remaining := owned - trade.Shares
	if remaining == 0 {
		_, err = tx.Exec(ctx, `DELETE FROM stocks WHERE user_id = $1 AND symbol = $2`, trade.UserID, trade.Symbol)
	} else {
		_, err = tx.Exec(ctx, `UPDATE stocks SET shares = $1 WHERE user_id = $2 AND symbol = $3`, remaining, trade.UserID, trade.Symbol)
	}
	if err != nil {
		return fmt.Errorf("remove shares: %w", err)
	}
	return nil
}

// Transactions returns the user's log newest first.
func (s *Store) Transactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, symbol, price, shares, transaction_type, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Price, &t.Shares, &t.Type, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ClearTransactions deletes the user's whole log and reports how many rows went.
func (s *Store) ClearTransactions(ctx context.Context, userID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
