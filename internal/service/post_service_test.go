package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"app/internal/model"
	"app/internal/repository"
)

func newTestPostService(wallet *memWalletRepo, posts *memPostRepo, gen *fakeGenerator, queue *fakeEnqueuer) PostService {
	return NewPostService(posts, NewWalletService(wallet, testLogger()), gen, queue, nil, testConfig(), testLogger())
}

func TestGenerateImageDebitsAfterSave(t *testing.T) {
	wallet := newMemWalletRepo(map[string]int{"user-1": 200})
	posts := newMemPostRepo()
	gen := &fakeGenerator{imageResult: &GenerationResult{OutputURL: "https://cdn/img.png", Description: "fresh bakes"}}
	svc := newTestPostService(wallet, posts, gen, &fakeEnqueuer{})

	post, err := svc.GenerateImage(context.Background(), "user-1", ImageGenerationRequest{Prompt: "bakery promo"})
	if err != nil {
		t.Fatal(err)
	}
	if post.Status != model.PostStatusPending {
		t.Fatalf("status = %s, want pending", post.Status)
	}
	if post.AIOutput != "https://cdn/img.png" || post.Description != "fresh bakes" {
		t.Fatalf("unexpected post content: %+v", post)
	}

	balance, _ := wallet.Balance(context.Background(), "user-1")
	if balance != 120 {
		t.Fatalf("balance = %d, want 120 after image debit", balance)
	}
	entries := wallet.entriesByReason(model.ReasonImageGenerated)
	if len(entries) != 1 || entries[0].Metadata["post_id"] != post.ID {
		t.Fatalf("expected one image_generated entry tagged with post ID, got %+v", entries)
	}
	if _, err := posts.GetPost(context.Background(), post.ID, "user-1"); err != nil {
		t.Fatalf("post not persisted: %v", err)
	}
}

func TestGenerateVideoCostsMore(t *testing.T) {
	wallet := newMemWalletRepo(map[string]int{"user-1": 200})
	posts := newMemPostRepo()
	gen := &fakeGenerator{videoResult: &GenerationResult{OutputURL: "https://cdn/vid.mp4"}}
	svc := newTestPostService(wallet, posts, gen, &fakeEnqueuer{})

	post, err := svc.GenerateVideo(context.Background(), "user-1", VideoGenerationRequest{ProductName: "cake", Size: "9:16", Duration: 10})
	if err != nil {
		t.Fatal(err)
	}
	if post.Kind != model.PostKindVideo {
		t.Fatalf("kind = %s, want video", post.Kind)
	}
	balance, _ := wallet.Balance(context.Background(), "user-1")
	if balance != 50 {
		t.Fatalf("balance = %d, want 50 after video debit", balance)
	}
}

func TestGenerateInsufficientFundsSkipsGateway(t *testing.T) {
	wallet := newMemWalletRepo(map[string]int{"user-1": 10})
	posts := newMemPostRepo()
	gen := &fakeGenerator{imageResult: &GenerationResult{OutputURL: "x"}}
	svc := newTestPostService(wallet, posts, gen, &fakeEnqueuer{})

	_, err := svc.GenerateImage(context.Background(), "user-1", ImageGenerationRequest{Prompt: "p"})
	if !errors.Is(err, repository.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatal("generation gateway called despite insufficient funds")
	}
	balance, _ := wallet.Balance(context.Background(), "user-1")
	if balance != 10 {
		t.Fatalf("balance = %d, want 10 untouched", balance)
	}
}

func TestGenerationFailureChargesNothing(t *testing.T) {
	wallet := newMemWalletRepo(map[string]int{"user-1": 200})
	posts := newMemPostRepo()
	gen := &fakeGenerator{err: ErrGenerationTimeout}
	svc := newTestPostService(wallet, posts, gen, &fakeEnqueuer{})

	_, err := svc.GenerateImage(context.Background(), "user-1", ImageGenerationRequest{Prompt: "p"})
	if !errors.Is(err, ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}
	balance, _ := wallet.Balance(context.Background(), "user-1")
	if balance != 200 {
		t.Fatalf("balance = %d, want 200 untouched after failed generation", balance)
	}
	all, _ := posts.ListPosts(context.Background(), "user-1", "")
	if len(all) != 0 {
		t.Fatal("failed generation left a post record")
	}
}

func TestDebitFailureKeepsPost(t *testing.T) {
	// User not present in the wallet store: the post saves, the debit
	// fails, and the generated asset is not dropped.
	wallet := newMemWalletRepo(map[string]int{"user-1": 200})
	posts := newMemPostRepo()
	gen := &fakeGenerator{imageResult: &GenerationResult{OutputURL: "x"}}
	svc := NewPostService(posts, &balanceOnlyWallet{inner: NewWalletService(wallet, testLogger())}, gen, &fakeEnqueuer{}, nil, testConfig(), testLogger())

	post, err := svc.GenerateImage(context.Background(), "user-1", ImageGenerationRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("debit failure must not fail generation: %v", err)
	}
	if _, err := posts.GetPost(context.Background(), post.ID, "user-1"); err != nil {
		t.Fatal("post dropped after debit failure")
	}
}

// balanceOnlyWallet reports balances but refuses all mutations.
type balanceOnlyWallet struct {
	inner WalletService
}

func (w *balanceOnlyWallet) Credit(ctx context.Context, userID string, amount int, reason string, metadata map[string]string) (int, error) {
	return 0, errors.New("credit unavailable")
}

func (w *balanceOnlyWallet) Debit(ctx context.Context, userID string, amount int, reason string, metadata map[string]string) (int, error) {
	return 0, errors.New("debit unavailable")
}

func (w *balanceOnlyWallet) Balance(ctx context.Context, userID string) (int, error) {
	return w.inner.Balance(ctx, userID)
}

func (w *balanceOnlyWallet) Transactions(ctx context.Context, userID string, limit int) ([]model.WalletTransaction, error) {
	return w.inner.Transactions(ctx, userID, limit)
}

func (w *balanceOnlyWallet) Reconcile(ctx context.Context, userID string) (int, int, bool, error) {
	return w.inner.Reconcile(ctx, userID)
}

func TestScheduleEnqueuesDelayedJob(t *testing.T) {
	wallet := newMemWalletRepo(map[string]int{"user-1": 200})
	posts := newMemPostRepo()
	queue := &fakeEnqueuer{}
	svc := newTestPostService(wallet, posts, &fakeGenerator{}, queue)

	post := &model.Post{ID: "post-1", UserID: "user-1", Status: model.PostStatusApproved}
	if err := posts.CreatePost(context.Background(), post); err != nil {
		t.Fatal(err)
	}

	at := time.Now().Add(2 * time.Hour)
	job := PublishJob{AccountID: "acc-1", LocationIDs: []string{"loc-1"}, AccessToken: "tok"}
	scheduled, err := svc.Schedule(context.Background(), "post-1", "user-1", at, job)
	if err != nil {
		t.Fatal(err)
	}
	if scheduled.Status != model.PostStatusScheduled {
		t.Fatalf("status = %s, want scheduled", scheduled.Status)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(queue.jobs))
	}
	got := queue.jobs[0]
	if got.PostID != "post-1" || got.UserID != "user-1" || got.AccountID != "acc-1" {
		t.Fatalf("job missing identity fields: %+v", got)
	}
	if queue.delays[0] < time.Hour {
		t.Fatalf("delay = %s, want roughly two hours", queue.delays[0])
	}
}

func TestScheduleRequiresLocations(t *testing.T) {
	svc := newTestPostService(newMemWalletRepo(nil), newMemPostRepo(), &fakeGenerator{}, &fakeEnqueuer{})
	_, err := svc.Schedule(context.Background(), "post-1", "user-1", time.Now().Add(time.Hour), PublishJob{})
	if !errors.Is(err, ErrLocationSelectionEmpty) {
		t.Fatalf("expected ErrLocationSelectionEmpty, got %v", err)
	}
}

func TestSchedulePastDate(t *testing.T) {
	posts := newMemPostRepo()
	posts.CreatePost(context.Background(), &model.Post{ID: "post-1", UserID: "user-1", Status: model.PostStatusApproved})
	svc := newTestPostService(newMemWalletRepo(nil), posts, &fakeGenerator{}, &fakeEnqueuer{})

	_, err := svc.Schedule(context.Background(), "post-1", "user-1", time.Now().Add(-time.Minute), PublishJob{LocationIDs: []string{"loc-1"}})
	if !errors.Is(err, model.ErrScheduleDatePast) {
		t.Fatalf("expected ErrScheduleDatePast, got %v", err)
	}
}

func TestRejectThenEditLocked(t *testing.T) {
	posts := newMemPostRepo()
	posts.CreatePost(context.Background(), &model.Post{ID: "post-1", UserID: "user-1", Status: model.PostStatusPending})
	svc := newTestPostService(newMemWalletRepo(nil), posts, &fakeGenerator{}, &fakeEnqueuer{})
	ctx := context.Background()

	if _, err := svc.Reject(ctx, "post-1", "user-1", "wrong brand colors"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.EditDescription(ctx, "post-1", "user-1", "new text", nil)
	if !errors.Is(err, model.ErrPostContentLocked) {
		t.Fatalf("expected ErrPostContentLocked, got %v", err)
	}
}
