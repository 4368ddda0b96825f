package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// UserHandler handles user profile endpoints
type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, validate *validator.Validate) *UserHandler {
	return &UserHandler{userService: userService, validate: validate}
}

// RegisterRoutes mounts user routes
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/users", authMw(http.HandlerFunc(h.createUser)))
	mux.Handle("/users/me", authMw(http.HandlerFunc(h.getUser)))
	mux.Handle("/users/", authMw(http.HandlerFunc(h.handleUser)))
}

func (h *UserHandler) handleUser(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.Split(rest, "/")
	if len(parts) == 3 && parts[1] == "wallet" && parts[2] == "adjust" && r.Method == http.MethodPost {
		h.adjustWallet(w, r, parts[0])
		return
	}
	http.NotFound(w, r)
}

// createUser godoc
// @Summary Create a user profile
// @Description Creates the profile row for the authenticated user.
// @Tags users
// @Accept json
// @Produce json
// @Param user body dto.UserCreateDTO true "User creation request"
// @Success 201 {object} dto.UserResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Router /users [post]
func (h *UserHandler) createUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.UserCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	userModel := &model.User{
		UserID:   userID,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	}
	created, err := h.userService.Create(r.Context(), userModel)
	if err != nil {
		http.Error(w, "Failed to create user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(created))
}

// getUser godoc
// @Summary Get the current user
// @Description Returns the authenticated user's profile including wallet and subscription.
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserResponseDTO
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/me [get]
func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		http.Error(w, "Failed to retrieve user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// adjustWallet godoc
// @Summary Adjust a user's wallet
// @Description Applies a manual admin credit or debit with a ledger entry.
// @Tags users
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param request body dto.WalletAdjustDTO true "Adjustment request"
// @Success 200 {object} dto.WalletResponseDTO
// @Failure 402 {object} map[string]string "Insufficient funds"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{userId}/wallet/adjust [post]
func (h *UserHandler) adjustWallet(w http.ResponseWriter, r *http.Request, targetUserID string) {
	adminID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || adminID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.WalletAdjustDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	balance, err := h.userService.AdjustWallet(r.Context(), targetUserID, req.Amount, req.Direction, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, repository.ErrInsufficientFunds):
			writeError(w, http.StatusPaymentRequired, repository.ErrInsufficientFunds.Error())
		default:
			http.Error(w, "Failed to adjust wallet: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponseDTO{UserID: targetUserID, Balance: balance})
}

func newUserResponse(u *model.User) dto.UserResponseDTO {
	return dto.UserResponseDTO{
		UserID:             u.UserID,
		FullName:           u.FullName,
		Email:              u.Email,
		Phone:              u.Phone,
		Wallet:             u.Wallet,
		SubscriptionPlan:   u.SubscriptionPlan,
		SubscriptionStatus: u.SubscriptionStatus,
		SubscriptionExpiry: u.SubscriptionExpiry,
		CreatedAt:          u.CreatedAt,
	}
}
