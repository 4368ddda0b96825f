package publishing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"app/internal/model"
	"app/internal/repository"
	"app/internal/service"
)

func TestIsPermanent(t *testing.T) {
	permanent := []error{
		repository.ErrPostNotFound,
		repository.ErrInsufficientFunds,
		model.ErrInvalidTransition,
		service.ErrLocationSelectionEmpty,
		service.ErrLocationUnknown,
		service.ErrLocationNotVerified,
		fmt.Errorf("wrapped: %w", repository.ErrInsufficientFunds),
	}
	for _, err := range permanent {
		if !isPermanent(err) {
			t.Errorf("expected %v to be permanent", err)
		}
	}

	transient := []error{
		service.ErrDispatchFailed,
		fmt.Errorf("%w: webhook returned status 502", service.ErrDispatchFailed),
		errors.New("connection refused"),
	}
	for _, err := range transient {
		if isPermanent(err) {
			t.Errorf("expected %v to be retried", err)
		}
	}
}

func TestSleepContextElapses(t *testing.T) {
	if !sleepContext(context.Background(), 10*time.Millisecond) {
		t.Fatal("expected the full duration to elapse")
	}
}

func TestSleepContextCancelShortensBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	elapsed := sleepContext(ctx, time.Minute)
	if elapsed {
		t.Fatal("expected cancellation to cut the wait short")
	}
	if waited := time.Since(start); waited > 5*time.Second {
		t.Fatalf("waited %v after cancellation, want an immediate return", waited)
	}
}
