package service

import (
	"context"

	"app/internal/model"
	"app/internal/repository"
)

type UserService interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	// AdjustWallet applies a manual admin credit or debit and returns the
	// new balance.
	AdjustWallet(ctx context.Context, userID string, amount int, direction, note string) (int, error)
	Delete(ctx context.Context, id string) error
}

type userService struct {
	userRepo repository.UserRepository
	wallet   WalletService
}

func NewUserService(userRepo repository.UserRepository, wallet WalletService) UserService {
	return &userService{userRepo: userRepo, wallet: wallet}
}

func (s *userService) Create(ctx context.Context, u *model.User) (*model.User, error) {
	if u.SubscriptionPlan == "" {
		u.SubscriptionPlan = model.PlanFree
	}
	err := s.userRepo.CreateUser(ctx, u)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *userService) AdjustWallet(ctx context.Context, userID string, amount int, direction, note string) (int, error) {
	meta := map[string]string{"note": note}
	if direction == model.DirectionDebit {
		return s.wallet.Debit(ctx, userID, amount, model.ReasonAdminAdjustment, meta)
	}
	return s.wallet.Credit(ctx, userID, amount, model.ReasonAdminAdjustment, meta)
}

func (s *userService) Delete(ctx context.Context, id string) error {
	return s.userRepo.DeleteUser(ctx, id)
}
