package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// AssetHandler hands out presigned upload URLs for logos and product images
type AssetHandler struct {
	assetService service.AssetService
	validate     *validator.Validate
}

// NewAssetHandler creates a new AssetHandler
func NewAssetHandler(assetService service.AssetService, validate *validator.Validate) *AssetHandler {
	return &AssetHandler{assetService: assetService, validate: validate}
}

// RegisterRoutes mounts asset routes
func (h *AssetHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/assets/upload", authMw(http.HandlerFunc(h.initiateUpload)))
}

// initiateUpload godoc
// @Summary Initiate an asset upload
// @Description Returns a presigned PUT URL the browser uploads the image to directly.
// @Tags assets
// @Accept json
// @Produce json
// @Param request body dto.AssetUploadDTO true "Upload request"
// @Success 201 {object} dto.AssetUploadResponseDTO
// @Failure 400 {string} string "Invalid JSON payload, validation failed or unsupported file type"
// @Router /assets/upload [post]
func (h *AssetHandler) initiateUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.AssetUploadDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	objectKey, uploadURL, err := h.assetService.InitiateUpload(r.Context(), userID, req.Filename)
	if err != nil {
		http.Error(w, "Failed to initiate upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, dto.AssetUploadResponseDTO{
		ObjectKey: objectKey,
		UploadURL: uploadURL,
	})
}
