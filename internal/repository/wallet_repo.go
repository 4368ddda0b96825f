package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrInsufficientFunds is returned when a debit would drive the
	// balance negative. No mutation happens in that case.
	ErrInsufficientFunds = errors.New("insufficient_funds")
	// ErrUserNotFound is returned when the wallet owner does not exist.
	ErrUserNotFound = errors.New("user_not_found")
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("invalid_amount")
)

// WalletRepository is the append-only coin ledger. Every balance mutation
// writes exactly one wallet_transactions row in the same transaction that
// updates the denormalized user_profiles.wallet column.
type WalletRepository interface {
	// Credit increments the balance and appends a ledger entry. Returns the new balance.
	Credit(ctx context.Context, userID string, amount int, reason string, metadata map[string]string) (int, error)
	// Debit atomically decrements the balance if it covers the amount, appending
	// a ledger entry. Returns ErrInsufficientFunds (no mutation) otherwise.
	Debit(ctx context.Context, userID string, amount int, reason string, metadata map[string]string) (int, error)
	// Balance returns the current denormalized balance.
	Balance(ctx context.Context, userID string) (int, error)
	// Transactions returns the most recent ledger entries, newest first.
	Transactions(ctx context.Context, userID string, limit int) ([]model.WalletTransaction, error)
	// LedgerSum recomputes sum(credits) - sum(debits) from the ledger.
	LedgerSum(ctx context.Context, userID string) (int, error)
}

type walletRepo struct {
	pool *pgxpool.Pool
}

// NewWalletRepo creates a new WalletRepository.
func NewWalletRepo(pool *pgxpool.Pool) WalletRepository {
	return &walletRepo{pool: pool}
}

func (r *walletRepo) Credit(ctx context.Context, userID string, amount int, reason string, metadata map[string]string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("starting credit transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const updateQ = `
		UPDATE user_profiles
		SET wallet = wallet + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING wallet
	`
	var balance int
	if err := tx.QueryRow(ctx, updateQ, userID, amount).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("crediting wallet for user %s: %w", userID, err)
	}
	if err := appendEntry(ctx, tx, userID, amount, model.DirectionCredit, reason, metadata); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing credit for user %s: %w", userID, err)
	}
	return balance, nil
}

func (r *walletRepo) Debit(ctx context.Context, userID string, amount int, reason string, metadata map[string]string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("starting debit transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Conditional decrement: the WHERE clause serializes concurrent debits
	// across server instances and keeps the balance non-negative.
	const updateQ = `
		UPDATE user_profiles
		SET wallet = wallet - $2, updated_at = NOW()
		WHERE user_id = $1 AND wallet >= $2
		RETURNING wallet
	`
	var balance int
	if err := tx.QueryRow(ctx, updateQ, userID, amount).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			const existsQ = `SELECT EXISTS (SELECT 1 FROM user_profiles WHERE user_id = $1)`
			if err := tx.QueryRow(ctx, existsQ, userID).Scan(&exists); err != nil {
				return 0, fmt.Errorf("checking user %s for debit: %w", userID, err)
			}
			if !exists {
				return 0, ErrUserNotFound
			}
			return 0, ErrInsufficientFunds
		}
		return 0, fmt.Errorf("debiting wallet for user %s: %w", userID, err)
	}
	if err := appendEntry(ctx, tx, userID, amount, model.DirectionDebit, reason, metadata); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing debit for user %s: %w", userID, err)
	}
	return balance, nil
}

func appendEntry(ctx context.Context, tx pgx.Tx, userID string, amount int, direction, reason string, metadata map[string]string) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshaling ledger metadata: %w", err)
	}
	const insertQ = `
		INSERT INTO wallet_transactions (id, user_id, amount, direction, reason, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, insertQ, uuid.NewString(), userID, amount, direction, reason, meta); err != nil {
		return fmt.Errorf("appending ledger entry for user %s: %w", userID, err)
	}
	return nil
}

func (r *walletRepo) Balance(ctx context.Context, userID string) (int, error) {
	const q = `SELECT wallet FROM user_profiles WHERE user_id = $1`
	var balance int
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("fetching balance for user %s: %w", userID, err)
	}
	return balance, nil
}

func (r *walletRepo) Transactions(ctx context.Context, userID string, limit int) ([]model.WalletTransaction, error) {
	const q = `
		SELECT id, user_id, amount, direction, reason, metadata, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var txs []model.WalletTransaction
	for rows.Next() {
		var t model.WalletTransaction
		var meta []byte
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Direction, &t.Reason, &meta, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction for user %s: %w", userID, err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &t.Metadata); err != nil {
				return nil, fmt.Errorf("decoding transaction metadata: %w", err)
			}
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *walletRepo) LedgerSum(ctx context.Context, userID string) (int, error) {
	const q = `
		SELECT COALESCE(SUM(CASE direction WHEN 'credit' THEN amount ELSE -amount END), 0)
		FROM wallet_transactions
		WHERE user_id = $1
	`
	var sum int
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("summing ledger for user %s: %w", userID, err)
	}
	return sum, nil
}
