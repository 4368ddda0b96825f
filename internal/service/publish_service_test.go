package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"app/internal/model"
	"app/internal/repository"
)

func verifiedLocations() []model.Location {
	return []model.Location{
		{LocationID: "loc-1", AccountID: "acc-1", Title: "Pune", Address: "FC Road, Pune", WebsiteURL: "https://book/pune", IsVerified: true},
		{LocationID: "loc-2", AccountID: "acc-1", Title: "Mumbai", Address: "Bandra, Mumbai", WebsiteURL: "https://book/mumbai", IsVerified: true},
		{LocationID: "loc-3", AccountID: "acc-1", Title: "Nagpur", Address: "Civil Lines, Nagpur", IsVerified: false},
	}
}

func publishTestService(t *testing.T, wallet *memWalletRepo, posts *memPostRepo, webhook http.HandlerFunc) (PublishService, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(webhook)
	t.Cleanup(srv.Close)
	cfg := testConfig()
	cfg.PublishWebhookURL = srv.URL
	svc := NewPublishService(posts, NewWalletService(wallet, testLogger()), &fakeDirectory{locations: verifiedLocations()}, nil, cfg, testLogger())
	return svc, srv
}

func TestPublishChargesPerLocationAndMarksPosted(t *testing.T) {
	wallet := newMemWalletRepo(map[string]int{"user-1": 100})
	posts := newMemPostRepo()
	posts.CreatePost(context.Background(), &model.Post{
		ID: "post-1", UserID: "user-1", Status: model.PostStatusApproved,
		AIOutput: "https://cdn/img.png", Description: "offer",
	})

	var captured dispatchPayload
	svc, _ := publishTestService(t, wallet, posts, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusOK)
	})

	post, err := svc.Post(context.Background(), PublishRequest{
		PostID: "post-1", UserID: "user-1", AccountID: "acc-1",
		LocationIDs: []string{"loc-1", "loc-2"}, AccessToken: "tok",
		Checkmark: model.Checkmark{Post: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if post.Status != model.PostStatusPosted {
		t.Fatalf("status = %s, want posted", post.Status)
	}
	balance, _ := wallet.Balance(context.Background(), "user-1")
	if balance != 60 {
		t.Fatalf("balance = %d, want 60 after 2x20 debit", balance)
	}
	if len(captured.LocationData) != 2 {
		t.Fatalf("dispatched %d locations in one call, want 2", len(captured.LocationData))
	}
	if captured.Account != "acc-1" || captured.Output != "https://cdn/img.png" || captured.AccessToken != "tok" {
		t.Fatalf("dispatch payload incomplete: %+v", captured)
	}
	if captured.LocationData[0].BookURL != "https://book/pune" {
		t.Fatalf("book URL not carried: %+v", captured.LocationData[0])
	}

	stored, _ := posts.GetPost(context.Background(), "post-1", "user-1")
	for _, loc := range stored.Locations {
		if !loc.IsPosted {
			t.Errorf("location %s not persisted as posted", loc.LocationID)
		}
	}
}

func TestPublishDispatchFailureRefunds(t *testing.T) {
	wallet := newMemWalletRepo(map[string]int{"user-1": 100})
	posts := newMemPostRepo()
	posts.CreatePost(context.Background(), &model.Post{
		ID: "post-1", UserID: "user-1", Status: model.PostStatusApproved,
	})

	svc, _ := publishTestService(t, wallet, posts, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gbp rejected the media", http.StatusBadGateway)
	})

	_, err := svc.Post(context.Background(), PublishRequest{
		PostID: "post-1", UserID: "user-1", AccountID: "acc-1",
		LocationIDs: []string{"loc-1", "loc-2"}, AccessToken: "tok",
	})
	if !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}

	// Debit and compensating refund must net to zero.
	balance, _ := wallet.Balance(context.Background(), "user-1")
	if balance != 100 {
		t.Fatalf("balance = %d, want 100 after refund", balance)
	}
	refunds := wallet.entriesByReason(model.ReasonRefundPostFailed)
	if len(refunds) != 1 || refunds[0].Amount != 40 {
		t.Fatalf("expected one 40-coin refund entry, got %+v", refunds)
	}
	debits := wallet.entriesByReason(model.ReasonPostOnGMB)
	if len(debits) != 1 || debits[0].Amount != 40 {
		t.Fatalf("expected one 40-coin debit entry, got %+v", debits)
	}

	stored, _ := posts.GetPost(context.Background(), "post-1", "user-1")
	if stored.Status != model.PostStatusApproved {
		t.Fatalf("status = %s, want approved preserved on failure", stored.Status)
	}
}

func TestRepostChargesOnlyNewLocations(t *testing.T) {
	wallet := newMemWalletRepo(map[string]int{"user-1": 100})
	posts := newMemPostRepo()
	posts.CreatePost(context.Background(), &model.Post{
		ID: "post-1", UserID: "user-1", Status: model.PostStatusPosted,
		Locations: []model.PostLocation{{LocationID: "loc-1", IsPosted: true}},
	})

	svc, _ := publishTestService(t, wallet, posts, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	post, err := svc.Post(context.Background(), PublishRequest{
		PostID: "post-1", UserID: "user-1", AccountID: "acc-1",
		LocationIDs: []string{"loc-1", "loc-2"}, AccessToken: "tok",
	})
	if err != nil {
		t.Fatal(err)
	}
	balance, _ := wallet.Balance(context.Background(), "user-1")
	if balance != 80 {
		t.Fatalf("balance = %d, want 80: only the new location is charged", balance)
	}
	if len(post.Locations) != 2 {
		t.Fatalf("locations = %d, want 2", len(post.Locations))
	}
}

func TestRepostFullOverlapIsFreeNoOp(t *testing.T) {
	wallet := newMemWalletRepo(map[string]int{"user-1": 100})
	posts := newMemPostRepo()
	posts.CreatePost(context.Background(), &model.Post{
		ID: "post-1", UserID: "user-1", Status: model.PostStatusPosted,
		Locations: []model.PostLocation{
			{LocationID: "loc-1", IsPosted: true},
			{LocationID: "loc-2", IsPosted: true},
		},
	})

	webhookCalled := false
	svc, _ := publishTestService(t, wallet, posts, func(w http.ResponseWriter, r *http.Request) {
		webhookCalled = true
		w.WriteHeader(http.StatusOK)
	})

	post, err := svc.Post(context.Background(), PublishRequest{
		PostID: "post-1", UserID: "user-1", AccountID: "acc-1",
		LocationIDs: []string{"loc-1", "loc-2"}, AccessToken: "tok",
	})
	if err != nil {
		t.Fatal(err)
	}
	if webhookCalled {
		t.Fatal("webhook dispatched for a full-overlap re-post")
	}
	balance, _ := wallet.Balance(context.Background(), "user-1")
	if balance != 100 {
		t.Fatalf("balance = %d, want 100: full overlap is charge-free", balance)
	}
	if post.Status != model.PostStatusPosted {
		t.Fatalf("status = %s, want posted", post.Status)
	}
}

func TestPublishRefusesUnverifiedLocation(t *testing.T) {
	wallet := newMemWalletRepo(map[string]int{"user-1": 100})
	posts := newMemPostRepo()
	posts.CreatePost(context.Background(), &model.Post{ID: "post-1", UserID: "user-1", Status: model.PostStatusApproved})

	svc, _ := publishTestService(t, wallet, posts, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := svc.Post(context.Background(), PublishRequest{
		PostID: "post-1", UserID: "user-1", AccountID: "acc-1",
		LocationIDs: []string{"loc-3"}, AccessToken: "tok",
	})
	if !errors.Is(err, ErrLocationNotVerified) {
		t.Fatalf("expected ErrLocationNotVerified, got %v", err)
	}
	balance, _ := wallet.Balance(context.Background(), "user-1")
	if balance != 100 {
		t.Fatalf("balance = %d, want 100: validation happens before any debit", balance)
	}
}

func TestPublishInsufficientFundsBeforeDispatch(t *testing.T) {
	wallet := newMemWalletRepo(map[string]int{"user-1": 30})
	posts := newMemPostRepo()
	posts.CreatePost(context.Background(), &model.Post{ID: "post-1", UserID: "user-1", Status: model.PostStatusApproved})

	webhookCalled := false
	svc, _ := publishTestService(t, wallet, posts, func(w http.ResponseWriter, r *http.Request) {
		webhookCalled = true
		w.WriteHeader(http.StatusOK)
	})

	_, err := svc.Post(context.Background(), PublishRequest{
		PostID: "post-1", UserID: "user-1", AccountID: "acc-1",
		LocationIDs: []string{"loc-1", "loc-2"}, AccessToken: "tok",
	})
	if !errors.Is(err, repository.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if webhookCalled {
		t.Fatal("webhook dispatched without funds reserved")
	}
}

func TestPublishPendingPostRefused(t *testing.T) {
	wallet := newMemWalletRepo(map[string]int{"user-1": 100})
	posts := newMemPostRepo()
	posts.CreatePost(context.Background(), &model.Post{ID: "post-1", UserID: "user-1", Status: model.PostStatusPending})

	svc, _ := publishTestService(t, wallet, posts, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := svc.Post(context.Background(), PublishRequest{
		PostID: "post-1", UserID: "user-1", AccountID: "acc-1",
		LocationIDs: []string{"loc-1"}, AccessToken: "tok",
	})
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for pending post, got %v", err)
	}
}

func TestPublishEmptySelection(t *testing.T) {
	svc, _ := publishTestService(t, newMemWalletRepo(nil), newMemPostRepo(), func(w http.ResponseWriter, r *http.Request) {})
	_, err := svc.Post(context.Background(), PublishRequest{PostID: "post-1", UserID: "user-1"})
	if !errors.Is(err, ErrLocationSelectionEmpty) {
		t.Fatalf("expected ErrLocationSelectionEmpty, got %v", err)
	}
}
