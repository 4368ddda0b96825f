package service

import (
	"context"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// WalletService is the coin ledger facade used by the lifecycle and
// publishing services. Insufficient funds surface as
// repository.ErrInsufficientFunds so callers can prompt a top-up.
type WalletService interface {
	Credit(ctx context.Context, userID string, amount int, reason string, metadata map[string]string) (int, error)
	Debit(ctx context.Context, userID string, amount int, reason string, metadata map[string]string) (int, error)
	Balance(ctx context.Context, userID string) (int, error)
	Transactions(ctx context.Context, userID string, limit int) ([]model.WalletTransaction, error)
	// Reconcile compares the denormalized balance with the ledger sum.
	Reconcile(ctx context.Context, userID string) (balance, ledgerSum int, consistent bool, err error)
}

type walletService struct {
	repo   repository.WalletRepository
	logger zerolog.Logger
}

// NewWalletService creates a new WalletService with a scoped logger.
func NewWalletService(repo repository.WalletRepository, logger zerolog.Logger) WalletService {
	return &walletService{
		repo:   repo,
		logger: logger.With().Str("service", "WalletService").Logger(),
	}
}

func (s *walletService) Credit(ctx context.Context, userID string, amount int, reason string, metadata map[string]string) (int, error) {
	balance, err := s.repo.Credit(ctx, userID, amount, reason, metadata)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Int("amount", amount).Str("reason", reason).Msg("Credit failed")
		return 0, err
	}
	s.logger.Info().Str("user_id", userID).Int("amount", amount).Str("reason", reason).Int("balance", balance).Msg("Wallet credited")
	return balance, nil
}

func (s *walletService) Debit(ctx context.Context, userID string, amount int, reason string, metadata map[string]string) (int, error) {
	balance, err := s.repo.Debit(ctx, userID, amount, reason, metadata)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Int("amount", amount).Str("reason", reason).Msg("Debit failed")
		return 0, err
	}
	s.logger.Info().Str("user_id", userID).Int("amount", amount).Str("reason", reason).Int("balance", balance).Msg("Wallet debited")
	return balance, nil
}

func (s *walletService) Balance(ctx context.Context, userID string) (int, error) {
	return s.repo.Balance(ctx, userID)
}

func (s *walletService) Transactions(ctx context.Context, userID string, limit int) ([]model.WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.Transactions(ctx, userID, limit)
}

func (s *walletService) Reconcile(ctx context.Context, userID string) (int, int, bool, error) {
	balance, err := s.repo.Balance(ctx, userID)
	if err != nil {
		return 0, 0, false, err
	}
	sum, err := s.repo.LedgerSum(ctx, userID)
	if err != nil {
		return 0, 0, false, err
	}
	if balance != sum {
		s.logger.Error().Str("user_id", userID).Int("balance", balance).Int("ledger_sum", sum).Msg("Ledger does not reconcile with stored balance")
	}
	return balance, sum, balance == sum, nil
}
