package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// SubscriptionHandler handles plan purchases through Razorpay
type SubscriptionHandler struct {
	razorpayService *service.RazorpayService
	validate        *validator.Validate
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(razorpayService *service.RazorpayService, validate *validator.Validate) *SubscriptionHandler {
	return &SubscriptionHandler{razorpayService: razorpayService, validate: validate}
}

// RegisterRoutes mounts subscription routes. The Razorpay webhook is
// signature-verified, not JWT-authenticated.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/subscriptions/order", authMw(http.HandlerFunc(h.createOrder)))
	mux.Handle("/subscriptions/verify", authMw(http.HandlerFunc(h.verifyPayment)))
	mux.Handle("/webhooks/razorpay", http.HandlerFunc(h.razorpayService.HandleWebhook))
}

// createOrder godoc
// @Summary Create a subscription order
// @Description Creates a Razorpay order for the selected plan.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body dto.SubscriptionOrderDTO true "Order request"
// @Success 201 {object} dto.SubscriptionOrderResponseDTO
// @Failure 400 {string} string "Invalid JSON payload, validation failed or unknown plan"
// @Router /subscriptions/order [post]
func (h *SubscriptionHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.SubscriptionOrderDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	orderID, amount, keyID, err := h.razorpayService.CreateOrder(r.Context(), userID, req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPlan):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			http.Error(w, "Failed to create order: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, dto.SubscriptionOrderResponseDTO{
		OrderID:     orderID,
		AmountPaise: amount,
		Currency:    "INR",
		KeyID:       keyID,
	})
}

// verifyPayment godoc
// @Summary Verify a checkout payment
// @Description Verifies the Razorpay checkout signature, activates the plan and credits its coin grant.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body dto.SubscriptionVerifyDTO true "Verification request"
// @Success 200 {string} string "ok"
// @Failure 400 {object} map[string]string "Signature mismatch"
// @Router /subscriptions/verify [post]
func (h *SubscriptionHandler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.SubscriptionVerifyDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	err := h.razorpayService.VerifyPayment(r.Context(), userID, req.Plan, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSignatureMismatch):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInvalidPlan):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			http.Error(w, "Failed to verify payment: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
