package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"app/internal/model"
	"app/internal/repository"
)

func TestDebitNeverOverdraws(t *testing.T) {
	repo := newMemWalletRepo(map[string]int{"user-1": 100})
	svc := NewWalletService(repo, testLogger())
	ctx := context.Background()

	// 100 coins, 20 concurrent debits of 10: exactly 10 must succeed.
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, refused := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Debit(ctx, "user-1", 10, model.ReasonPostOnGMB, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, repository.ErrInsufficientFunds):
				refused++
			default:
				t.Errorf("unexpected debit error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 || refused != 10 {
		t.Fatalf("succeeded=%d refused=%d, want 10/10", succeeded, refused)
	}
	balance, err := svc.Balance(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
	if balance < 0 {
		t.Fatal("balance went negative")
	}
}

func TestDebitInsufficientFundsLeavesNoTrace(t *testing.T) {
	repo := newMemWalletRepo(map[string]int{"user-1": 5})
	svc := NewWalletService(repo, testLogger())
	ctx := context.Background()

	_, err := svc.Debit(ctx, "user-1", 10, model.ReasonPostOnGMB, nil)
	if !errors.Is(err, repository.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	sum, err := repo.LedgerSum(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if sum != 0 {
		t.Fatalf("refused debit wrote a ledger entry, sum = %d", sum)
	}
	balance, _ := svc.Balance(ctx, "user-1")
	if balance != 5 {
		t.Fatalf("balance = %d, want 5 untouched", balance)
	}
}

func TestDebitUnknownUser(t *testing.T) {
	repo := newMemWalletRepo(nil)
	svc := NewWalletService(repo, testLogger())
	if _, err := svc.Debit(context.Background(), "ghost", 10, model.ReasonPostOnGMB, nil); !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestReconcileMatchesLedger(t *testing.T) {
	repo := newMemWalletRepo(map[string]int{"user-1": 0})
	svc := NewWalletService(repo, testLogger())
	ctx := context.Background()

	if _, err := svc.Credit(ctx, "user-1", 500, model.ReasonSubscriptionPurchase, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Debit(ctx, "user-1", 80, model.ReasonImageGenerated, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Debit(ctx, "user-1", 40, model.ReasonPostOnGMB, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Credit(ctx, "user-1", 40, model.ReasonRefundPostFailed, nil); err != nil {
		t.Fatal(err)
	}

	balance, ledgerSum, consistent, err := svc.Reconcile(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if !consistent {
		t.Fatalf("balance %d and ledger sum %d diverged", balance, ledgerSum)
	}
	if balance != 420 {
		t.Fatalf("balance = %d, want 420", balance)
	}
}

func TestTransactionsLimitClamped(t *testing.T) {
	repo := newMemWalletRepo(map[string]int{"user-1": 0})
	svc := NewWalletService(repo, testLogger())
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		if _, err := svc.Credit(ctx, "user-1", 1, model.ReasonAdminAdjustment, nil); err != nil {
			t.Fatal(err)
		}
	}
	txns, err := svc.Transactions(ctx, "user-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 50 {
		t.Fatalf("default limit returned %d entries, want 50", len(txns))
	}
}
