package handler

import (
	"errors"
	"net/http"
	"strconv"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/service"
)

// WalletHandler handles coin wallet endpoints
type WalletHandler struct {
	walletService service.WalletService
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(walletService service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// RegisterRoutes mounts wallet routes
func (h *WalletHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/wallet", authMw(http.HandlerFunc(h.getBalance)))
	mux.Handle("/wallet/transactions", authMw(http.HandlerFunc(h.getTransactions)))
	mux.Handle("/wallet/reconcile", authMw(http.HandlerFunc(h.reconcile)))
}

// getBalance godoc
// @Summary Get wallet balance
// @Description Returns the authenticated user's coin balance.
// @Tags wallet
// @Produce json
// @Success 200 {object} dto.WalletResponseDTO
// @Failure 404 {object} map[string]string "User not found"
// @Router /wallet [get]
func (h *WalletHandler) getBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	balance, err := h.walletService.Balance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		http.Error(w, "Failed to retrieve balance: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponseDTO{UserID: userID, Balance: balance})
}

// getTransactions godoc
// @Summary List wallet transactions
// @Description Returns the authenticated user's ledger entries, newest first.
// @Tags wallet
// @Produce json
// @Param limit query int false "Max entries (default 50, cap 200)"
// @Success 200 {array} dto.WalletTransactionDTO
// @Router /wallet/transactions [get]
func (h *WalletHandler) getTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txns, err := h.walletService.Transactions(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "Failed to retrieve transactions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	resp := make([]dto.WalletTransactionDTO, 0, len(txns))
	for _, t := range txns {
		resp = append(resp, dto.WalletTransactionDTO{
			ID:        t.ID,
			Amount:    t.Amount,
			Direction: t.Direction,
			Reason:    t.Reason,
			Metadata:  t.Metadata,
			CreatedAt: t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// reconcile godoc
// @Summary Reconcile wallet against ledger
// @Description Compares the denormalized balance with the ledger sum.
// @Tags wallet
// @Produce json
// @Success 200 {object} dto.WalletReconcileDTO
// @Router /wallet/reconcile [get]
func (h *WalletHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	balance, ledgerSum, consistent, err := h.walletService.Reconcile(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to reconcile wallet: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletReconcileDTO{
		UserID:     userID,
		Balance:    balance,
		LedgerSum:  ledgerSum,
		Consistent: consistent,
	})
}
