package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidPlan is returned for an unknown subscription plan name.
	ErrInvalidPlan = errors.New("invalid_plan")
	// ErrSignatureMismatch is returned when a payment signature fails
	// verification. The subscription is not touched.
	ErrSignatureMismatch = errors.New("payment_signature_mismatch")
)

// planDetails describes a purchasable subscription tier: its price in
// paise and the coin grant credited on a verified payment.
type planDetails struct {
	AmountPaise int
	CoinGrant   int
}

var plans = map[string]planDetails{
	model.PlanBasic:    {AmountPaise: 99900, CoinGrant: 1000},
	model.PlanStandard: {AmountPaise: 199900, CoinGrant: 2500},
	model.PlanPremium:  {AmountPaise: 499900, CoinGrant: 7000},
}

const subscriptionPeriod = 30 * 24 * time.Hour

// RazorpayService manages the Razorpay integration: order creation,
// payment signature verification and webhook handling.
type RazorpayService struct {
	cfg      *config.Config
	client   *razorpay.Client
	userRepo repository.UserRepository
	wallet   WalletService
	logger   zerolog.Logger
}

// NewRazorpayService initializes the Razorpay client and returns the
// service with a scoped logger.
func NewRazorpayService(cfg *config.Config, userRepo repository.UserRepository, wallet WalletService, logger zerolog.Logger) *RazorpayService {
	return &RazorpayService{
		cfg:      cfg,
		client:   razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
		userRepo: userRepo,
		wallet:   wallet,
		logger:   logger.With().Str("service", "RazorpayService").Logger(),
	}
}

// CreateOrder creates a Razorpay order for the given plan and returns its
// ID along with the amount and the public key the checkout widget needs.
func (s *RazorpayService) CreateOrder(ctx context.Context, userID, plan string) (orderID string, amountPaise int, keyID string, err error) {
	details, ok := plans[plan]
	if !ok {
		return "", 0, "", fmt.Errorf("%w: %s", ErrInvalidPlan, plan)
	}
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return "", 0, "", fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		return "", 0, "", repository.ErrUserNotFound
	}

	data := map[string]interface{}{
		"amount":   details.AmountPaise,
		"currency": "INR",
		"receipt":  fmt.Sprintf("sub_%s_%d", userID, time.Now().Unix()),
		"notes": map[string]interface{}{
			"user_id": userID,
			"plan":    plan,
		},
	}
	order, err := s.client.Order.Create(data, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("plan", plan).Msg("Failed to create Razorpay order")
		return "", 0, "", fmt.Errorf("create razorpay order: %w", err)
	}
	id, _ := order["id"].(string)
	if id == "" {
		return "", 0, "", fmt.Errorf("razorpay order response missing id")
	}
	return id, details.AmountPaise, s.cfg.RazorpayKeyID, nil
}

// VerifyPayment checks the checkout signature and, on success, activates
// the subscription and credits the plan's coin grant.
func (s *RazorpayService) VerifyPayment(ctx context.Context, userID, plan, orderID, paymentID, signature string) error {
	details, ok := plans[plan]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidPlan, plan)
	}
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	if !utils.VerifyPaymentSignature(params, signature, s.cfg.RazorpayKeySecret) {
		s.logger.Warn().Str("user_id", userID).Str("order_id", orderID).Msg("Payment signature verification failed")
		return ErrSignatureMismatch
	}
	return s.activate(ctx, userID, plan, details, paymentID, orderID)
}

func (s *RazorpayService) activate(ctx context.Context, userID, plan string, details planDetails, paymentID, orderID string) error {
	now := time.Now().UTC()
	expiry := now.Add(subscriptionPeriod)
	// Webhook and checkout verification can race; the conditional update
	// applies a given payment ID at most once, and only the winner credits
	// the coin grant.
	activated, err := s.userRepo.ActivateSubscription(ctx, userID, plan, "active", now, expiry, paymentID, orderID)
	if err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	if !activated {
		s.logger.Info().Str("user_id", userID).Str("payment_id", paymentID).Msg("Payment already processed, skipping activation")
		return nil
	}
	meta := map[string]string{"plan": plan, "payment_id": paymentID, "order_id": orderID}
	if _, err := s.wallet.Credit(ctx, userID, details.CoinGrant, model.ReasonSubscriptionPurchase, meta); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to credit plan coin grant")
		return err
	}
	s.logger.Info().Str("user_id", userID).Str("plan", plan).Int("coins", details.CoinGrant).Msg("Subscription activated")
	return nil
}

// HandleWebhook processes Razorpay webhook events.
func (s *RazorpayService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	// The endpoint is unauthenticated and grants coins. Without a secret,
	// HMAC verification would run against an empty key anyone can compute,
	// so refuse every event instead.
	if s.cfg.RazorpayWebhookSecret == "" {
		s.logger.Error().Msg("Razorpay webhook secret not configured, rejecting event")
		http.Error(w, "webhook not configured", http.StatusServiceUnavailable)
		return
	}
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Razorpay webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("X-Razorpay-Signature")
	if !utils.VerifyWebhookSignature(string(payload), sig, s.cfg.RazorpayWebhookSecret) {
		s.logger.Error().Msg("Signature verification failed for Razorpay webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}

	var event struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string            `json:"id"`
					OrderID string            `json:"order_id"`
					Notes   map[string]string `json:"notes"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Error().Err(err).Msg("Invalid Razorpay webhook payload")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", event.Event).Msg("Razorpay webhook received")

	ctx := r.Context()
	switch event.Event {
	case "payment.captured":
		entity := event.Payload.Payment.Entity
		userID := entity.Notes["user_id"]
		plan := entity.Notes["plan"]
		details, ok := plans[plan]
		if userID == "" || !ok {
			s.logger.Error().Str("payment_id", entity.ID).Msg("Webhook payment missing user_id or plan notes")
			http.Error(w, "missing notes", http.StatusBadRequest)
			return
		}
		if err := s.activate(ctx, userID, plan, details, entity.ID, entity.OrderID); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to activate subscription on payment.captured")
			http.Error(w, "failed to activate subscription", http.StatusInternalServerError)
			return
		}
	case "payment.failed":
		entity := event.Payload.Payment.Entity
		s.logger.Warn().Str("payment_id", entity.ID).Str("order_id", entity.OrderID).Msg("Payment failed")
	default:
		s.logger.Warn().Str("event_type", event.Event).Msg("Unhandled Razorpay webhook event")
	}
	w.WriteHeader(http.StatusOK)
}
