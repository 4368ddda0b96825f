package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// googleTokenHeader carries the user's Google OAuth access token. The
// frontend obtains it through its own OAuth flow.
const googleTokenHeader = "X-Google-Access-Token"

// LocationHandler exposes Business Profile accounts and locations
type LocationHandler struct {
	gateway  service.BusinessProfileGateway
	cache    *service.LocationCache
	secrets  service.SecretManagerService
	validate *validator.Validate
}

// NewLocationHandler creates a new LocationHandler
func NewLocationHandler(gateway service.BusinessProfileGateway, cache *service.LocationCache, secrets service.SecretManagerService, validate *validator.Validate) *LocationHandler {
	return &LocationHandler{gateway: gateway, cache: cache, secrets: secrets, validate: validate}
}

// RegisterRoutes mounts account, location and Google connection routes
func (h *LocationHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/accounts", authMw(http.HandlerFunc(h.listAccounts)))
	mux.Handle("/accounts/", authMw(http.HandlerFunc(h.handleAccount)))
	mux.Handle("/google/connect", authMw(http.HandlerFunc(h.handleConnect)))
}

func (h *LocationHandler) handleAccount(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/accounts/")
	parts := strings.Split(rest, "/")
	if len(parts) == 2 && parts[1] == "locations" && r.Method == http.MethodGet {
		h.listLocations(w, r, parts[0])
		return
	}
	if len(parts) == 3 && parts[1] == "locations" && parts[2] == "refresh" && r.Method == http.MethodPost {
		h.refreshLocations(w, r, parts[0])
		return
	}
	http.NotFound(w, r)
}

// listAccounts godoc
// @Summary List Business Profile accounts
// @Description Lists the accounts the Google access token can manage.
// @Tags locations
// @Produce json
// @Param X-Google-Access-Token header string true "Google OAuth access token"
// @Success 200 {array} dto.AccountResponseDTO
// @Router /accounts [get]
func (h *LocationHandler) listAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	accessToken := r.Header.Get(googleTokenHeader)
	if accessToken == "" {
		http.Error(w, "Missing "+googleTokenHeader+" header", http.StatusBadRequest)
		return
	}
	accounts, err := h.gateway.Accounts(r.Context(), accessToken)
	if err != nil {
		http.Error(w, "Failed to list accounts: "+err.Error(), http.StatusBadGateway)
		return
	}
	resp := make([]dto.AccountResponseDTO, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, dto.AccountResponseDTO{AccountID: a.AccountID, Name: a.Name, Type: a.Type})
	}
	writeJSON(w, http.StatusOK, resp)
}

// listLocations godoc
// @Summary List locations for an account
// @Description Lists the account's locations with verification state. Served from a short-lived cache.
// @Tags locations
// @Produce json
// @Param accountId path string true "Account ID"
// @Param X-Google-Access-Token header string true "Google OAuth access token"
// @Success 200 {array} dto.LocationResponseDTO
// @Router /accounts/{accountId}/locations [get]
func (h *LocationHandler) listLocations(w http.ResponseWriter, r *http.Request, accountID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	accessToken := r.Header.Get(googleTokenHeader)
	if accessToken == "" {
		http.Error(w, "Missing "+googleTokenHeader+" header", http.StatusBadRequest)
		return
	}
	locations, err := h.cache.Locations(r.Context(), accountID, accessToken)
	if err != nil {
		http.Error(w, "Failed to list locations: "+err.Error(), http.StatusBadGateway)
		return
	}
	resp := make([]dto.LocationResponseDTO, 0, len(locations))
	for _, l := range locations {
		resp = append(resp, dto.LocationResponseDTO{
			LocationID: l.LocationID,
			AccountID:  l.AccountID,
			Title:      l.Title,
			Address:    l.Address,
			WebsiteURL: l.WebsiteURL,
			IsVerified: l.IsVerified,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleConnect godoc
// @Summary Connect, inspect or disconnect a Google account
// @Description Stores the user's Google OAuth refresh token in Secret Manager, reports connection status, or removes it.
// @Tags locations
// @Accept json
// @Param request body dto.GoogleConnectDTO true "Refresh token"
// @Success 204 {string} string "Token stored or removed"
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Router /google/connect [post]
func (h *LocationHandler) handleConnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodGet:
		connected := true
		if _, err := h.secrets.GetUserToken(r.Context(), userID); err != nil {
			connected = false
		}
		writeJSON(w, http.StatusOK, dto.GoogleConnectionStatusDTO{Connected: connected})
	case http.MethodPost:
		var req dto.GoogleConnectDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.secrets.StoreUserToken(r.Context(), userID, req.RefreshToken); err != nil {
			http.Error(w, "Failed to store token: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := h.secrets.DeleteUserToken(r.Context(), userID); err != nil {
			http.Error(w, "Failed to remove token: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// refreshLocations drops the cached projection so the next read refetches.
func (h *LocationHandler) refreshLocations(w http.ResponseWriter, r *http.Request, accountID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	if err := h.cache.Invalidate(r.Context(), accountID); err != nil {
		http.Error(w, "Failed to refresh locations: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
