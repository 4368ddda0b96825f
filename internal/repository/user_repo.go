package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository manages user profiles and their subscription fields.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// ActivateSubscription records a verified payment against the user. The
	// update is conditioned on the payment ID not being applied yet, so two
	// writers racing on the same payment activate it exactly once; the
	// return value reports whether this call was the one that applied it.
	ActivateSubscription(ctx context.Context, userID, plan, status string, date, expiry time.Time, paymentID, orderID string) (bool, error)
	DeleteUser(ctx context.Context, id string) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a new UserRepository.
func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	const q = `
		INSERT INTO user_profiles (user_id, full_name, email, phone, wallet, subscription_plan, subscription_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, q,
		u.UserID, u.FullName, u.Email, u.Phone, u.Wallet, u.SubscriptionPlan, u.SubscriptionStatus,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating user %s: %w", u.UserID, err)
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
		SELECT user_id, full_name, email, phone, wallet,
		       subscription_plan, subscription_status, subscription_date, subscription_expiry,
		       subscription_payment_id, subscription_order_id, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`
	var u model.User
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&u.UserID, &u.FullName, &u.Email, &u.Phone, &u.Wallet,
		&u.SubscriptionPlan, &u.SubscriptionStatus, &u.SubscriptionDate, &u.SubscriptionExpiry,
		&u.SubscriptionPaymentID, &u.SubscriptionOrderID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching user %s: %w", id, err)
	}
	return &u, nil
}

func (r *userRepo) ActivateSubscription(ctx context.Context, userID, plan, status string, date, expiry time.Time, paymentID, orderID string) (bool, error) {
	const q = `
		UPDATE user_profiles
		SET subscription_plan = $2, subscription_status = $3, subscription_date = $4,
		    subscription_expiry = $5, subscription_payment_id = $6, subscription_order_id = $7,
		    updated_at = NOW()
		WHERE user_id = $1 AND subscription_payment_id IS DISTINCT FROM $6
	`
	tag, err := r.pool.Exec(ctx, q, userID, plan, status, date, expiry, paymentID, orderID)
	if err != nil {
		return false, fmt.Errorf("updating subscription for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// Zero rows means either the payment was already applied or the user
	// does not exist; tell the two apart.
	u, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, ErrUserNotFound
	}
	return false, nil
}

func (r *userRepo) DeleteUser(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_profiles WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
