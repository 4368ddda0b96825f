package service

import (
	"context"
	"sync"
	"time"

	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

func testConfig() *config.Config {
	return &config.Config{
		GenerationImageCost:      80,
		GenerationVideoCost:      150,
		PerLocationCost:          20,
		PublishWebhookTimeoutSec: 5,
		PubSubEventsTopic:        "post-lifecycle-events",
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// memWalletRepo mirrors the SQL conditional-decrement semantics in memory
// so wallet behavior can be exercised without a database.
type memWalletRepo struct {
	mu       sync.Mutex
	balances map[string]int
	ledger   []model.WalletTransaction
}

func newMemWalletRepo(balances map[string]int) *memWalletRepo {
	if balances == nil {
		balances = map[string]int{}
	}
	return &memWalletRepo{balances: balances}
}

func (r *memWalletRepo) Credit(ctx context.Context, userID string, amount int, reason string, metadata map[string]string) (int, error) {
	if amount <= 0 {
		return 0, repository.ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.balances[userID]; !ok {
		return 0, repository.ErrUserNotFound
	}
	r.balances[userID] += amount
	r.ledger = append(r.ledger, model.WalletTransaction{
		UserID:    userID,
		Amount:    amount,
		Direction: model.DirectionCredit,
		Reason:    reason,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})
	return r.balances[userID], nil
}

func (r *memWalletRepo) Debit(ctx context.Context, userID string, amount int, reason string, metadata map[string]string) (int, error) {
	if amount <= 0 {
		return 0, repository.ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	balance, ok := r.balances[userID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	if balance < amount {
		return 0, repository.ErrInsufficientFunds
	}
	r.balances[userID] = balance - amount
	r.ledger = append(r.ledger, model.WalletTransaction{
		UserID:    userID,
		Amount:    amount,
		Direction: model.DirectionDebit,
		Reason:    reason,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})
	return r.balances[userID], nil
}

func (r *memWalletRepo) Balance(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	balance, ok := r.balances[userID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	return balance, nil
}

func (r *memWalletRepo) Transactions(ctx context.Context, userID string, limit int) ([]model.WalletTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.WalletTransaction
	for i := len(r.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if r.ledger[i].UserID == userID {
			out = append(out, r.ledger[i])
		}
	}
	return out, nil
}

func (r *memWalletRepo) LedgerSum(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, t := range r.ledger {
		if t.UserID != userID {
			continue
		}
		if t.Direction == model.DirectionCredit {
			sum += t.Amount
		} else {
			sum -= t.Amount
		}
	}
	return sum, nil
}

func (r *memWalletRepo) entriesByReason(reason string) []model.WalletTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.WalletTransaction
	for _, t := range r.ledger {
		if t.Reason == reason {
			out = append(out, t)
		}
	}
	return out
}

// memUserRepo mirrors the conditional subscription activation in memory:
// a payment ID already on the row makes the activation a no-op.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserRepo(ids ...string) *memUserRepo {
	users := map[string]*model.User{}
	for _, id := range ids {
		users[id] = &model.User{UserID: id, SubscriptionPlan: model.PlanFree}
	}
	return &memUserRepo{users: users}
}

func (r *memUserRepo) CreateUser(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.UserID] = u
	return nil
}

func (r *memUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) ActivateSubscription(ctx context.Context, userID, plan, status string, date, expiry time.Time, paymentID, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return false, repository.ErrUserNotFound
	}
	if u.SubscriptionPaymentID != nil && *u.SubscriptionPaymentID == paymentID {
		return false, nil
	}
	u.SubscriptionPlan = plan
	u.SubscriptionStatus = status
	u.SubscriptionDate = &date
	u.SubscriptionExpiry = &expiry
	u.SubscriptionPaymentID = &paymentID
	u.SubscriptionOrderID = &orderID
	return true, nil
}

func (r *memUserRepo) DeleteUser(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// memPostRepo is an in-memory PostRepository.
type memPostRepo struct {
	mu    sync.Mutex
	posts map[string]*model.Post
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{posts: map[string]*model.Post{}}
}

func (r *memPostRepo) CreatePost(ctx context.Context, p *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.posts[p.ID] = &cp
	return nil
}

func (r *memPostRepo) GetPost(ctx context.Context, postID, userID string) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok || p.UserID != userID {
		return nil, repository.ErrPostNotFound
	}
	cp := *p
	cp.Locations = append([]model.PostLocation(nil), p.Locations...)
	return &cp, nil
}

func (r *memPostRepo) UpdatePost(ctx context.Context, p *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[p.ID]; !ok {
		return repository.ErrPostNotFound
	}
	cp := *p
	cp.Locations = append([]model.PostLocation(nil), p.Locations...)
	r.posts[p.ID] = &cp
	return nil
}

func (r *memPostRepo) DeletePost(ctx context.Context, postID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok || p.UserID != userID {
		return repository.ErrPostNotFound
	}
	delete(r.posts, postID)
	return nil
}

func (r *memPostRepo) ListPosts(ctx context.Context, userID, status string) ([]model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Post
	for _, p := range r.posts {
		if p.UserID != userID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// fakeGenerator returns canned generation results.
type fakeGenerator struct {
	imageResult *GenerationResult
	videoResult *GenerationResult
	err         error
	calls       int
}

func (g *fakeGenerator) GenerateImage(ctx context.Context, req ImageGenerationRequest) (*GenerationResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.imageResult, nil
}

func (g *fakeGenerator) GenerateVideo(ctx context.Context, req VideoGenerationRequest) (*GenerationResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.videoResult, nil
}

// fakeEnqueuer records enqueued jobs.
type fakeEnqueuer struct {
	jobs   []PublishJob
	delays []time.Duration
	err    error
}

func (q *fakeEnqueuer) Enqueue(ctx context.Context, job PublishJob, delay time.Duration) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	q.delays = append(q.delays, delay)
	return nil
}

// fakeDirectory serves a static location projection.
type fakeDirectory struct {
	locations []model.Location
	err       error
}

func (d *fakeDirectory) Locations(ctx context.Context, accountID, accessToken string) ([]model.Location, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.locations, nil
}
