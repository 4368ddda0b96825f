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

// PostHandler handles post lifecycle endpoints
type PostHandler struct {
	postService    service.PostService
	publishService service.PublishService
	validate       *validator.Validate
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postService service.PostService, publishService service.PublishService, validate *validator.Validate) *PostHandler {
	return &PostHandler{postService: postService, publishService: publishService, validate: validate}
}

// RegisterRoutes mounts post routes
func (h *PostHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/posts", authMw(http.HandlerFunc(h.listPosts)))
	mux.Handle("/posts/", authMw(http.HandlerFunc(h.handlePost)))
}

func (h *PostHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/posts/")
	parts := strings.Split(rest, "/")

	if parts[0] == "generate" && len(parts) == 2 && r.Method == http.MethodPost {
		switch parts[1] {
		case "image":
			h.generateImage(w, r)
		case "video":
			h.generateVideo(w, r)
		default:
			http.NotFound(w, r)
		}
		return
	}

	postID := parts[0]
	if postID == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.getPost(w, r, postID)
		case http.MethodPut:
			h.editPost(w, r, postID)
		case http.MethodDelete:
			h.deletePost(w, r, postID)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) == 2 && r.Method == http.MethodPost {
		switch parts[1] {
		case "approve":
			h.approvePost(w, r, postID)
		case "reject":
			h.rejectPost(w, r, postID)
		case "schedule":
			h.schedulePost(w, r, postID)
		case "publish":
			h.publishPost(w, r, postID)
		default:
			http.NotFound(w, r)
		}
		return
	}

	http.NotFound(w, r)
}

// generateImage godoc
// @Summary Generate an image post
// @Description Runs the AI image generation flow and saves a pending post. Costs coins.
// @Tags posts
// @Accept json
// @Produce json
// @Param request body dto.ImageGenerateDTO true "Image generation request"
// @Success 201 {object} dto.PostResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 402 {object} map[string]string "Insufficient funds"
// @Failure 504 {object} map[string]string "Generation timed out"
// @Router /posts/generate/image [post]
func (h *PostHandler) generateImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.ImageGenerateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	post, err := h.postService.GenerateImage(r.Context(), userID, service.ImageGenerationRequest{
		Prompt:         req.Prompt,
		LogoBase64:     req.LogoBase64,
		SelectedAssets: req.SelectedAssets,
	})
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewPostResponseDTO(post))
}

// generateVideo godoc
// @Summary Generate a video post
// @Description Runs the AI video generation flow and saves a pending post. Costs coins.
// @Tags posts
// @Accept json
// @Produce json
// @Param request body dto.VideoGenerateDTO true "Video generation request"
// @Success 201 {object} dto.PostResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 402 {object} map[string]string "Insufficient funds"
// @Failure 504 {object} map[string]string "Generation timed out"
// @Router /posts/generate/video [post]
func (h *PostHandler) generateVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.VideoGenerateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	post, err := h.postService.GenerateVideo(r.Context(), userID, service.VideoGenerationRequest{
		ProductName:     req.ProductName,
		ProductImage:    req.ProductImage,
		UserInstruction: req.UserInstruction,
		Size:            req.Size,
		Duration:        req.Duration,
	})
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewPostResponseDTO(post))
}

func (h *PostHandler) writeGenerationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, repository.ErrInsufficientFunds.Error())
	case errors.Is(err, service.ErrGenerationTimeout):
		writeError(w, http.StatusGatewayTimeout, "generation timed out")
	case errors.Is(err, service.ErrGenerationFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		http.Error(w, "Failed to generate post: "+err.Error(), http.StatusInternalServerError)
	}
}

// listPosts godoc
// @Summary List posts
// @Description Lists the authenticated user's posts, optionally filtered by status.
// @Tags posts
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {array} dto.PostResponseDTO
// @Router /posts [get]
func (h *PostHandler) listPosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	posts, err := h.postService.List(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, "Failed to list posts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	resp := make([]dto.PostResponseDTO, 0, len(posts))
	for i := range posts {
		resp = append(resp, dto.NewPostResponseDTO(&posts[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PostHandler) getPost(w http.ResponseWriter, r *http.Request, postID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	post, err := h.postService.Get(r.Context(), postID, userID)
	if err != nil {
		h.writeLifecycleError(w, err, "Failed to retrieve post")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPostResponseDTO(post))
}

// editPost updates the caption and checkmark of an unposted post.
func (h *PostHandler) editPost(w http.ResponseWriter, r *http.Request, postID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.PostEditDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	post, err := h.postService.EditDescription(r.Context(), postID, userID, req.Description, req.Checkmark)
	if err != nil {
		h.writeLifecycleError(w, err, "Failed to update post")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPostResponseDTO(post))
}

func (h *PostHandler) deletePost(w http.ResponseWriter, r *http.Request, postID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	if err := h.postService.Delete(r.Context(), postID, userID); err != nil {
		h.writeLifecycleError(w, err, "Failed to delete post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// approvePost godoc
// @Summary Approve a post
// @Description Moves a pending post to approved. Approving twice is a no-op.
// @Tags posts
// @Produce json
// @Param postId path string true "Post ID"
// @Success 200 {object} dto.PostResponseDTO
// @Failure 404 {object} map[string]string "Post not found"
// @Failure 409 {object} map[string]string "Invalid transition"
// @Router /posts/{postId}/approve [post]
func (h *PostHandler) approvePost(w http.ResponseWriter, r *http.Request, postID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	post, err := h.postService.Approve(r.Context(), postID, userID)
	if err != nil {
		h.writeLifecycleError(w, err, "Failed to approve post")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPostResponseDTO(post))
}

func (h *PostHandler) rejectPost(w http.ResponseWriter, r *http.Request, postID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.PostRejectDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	post, err := h.postService.Reject(r.Context(), postID, userID, req.Reason)
	if err != nil {
		h.writeLifecycleError(w, err, "Failed to reject post")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPostResponseDTO(post))
}

// schedulePost godoc
// @Summary Schedule a post
// @Description Schedules an approved post for future publishing to the selected locations.
// @Tags posts
// @Accept json
// @Produce json
// @Param postId path string true "Post ID"
// @Param request body dto.PostScheduleDTO true "Schedule request"
// @Success 200 {object} dto.PostResponseDTO
// @Failure 400 {string} string "Invalid JSON payload, validation failed or date in the past"
// @Failure 404 {object} map[string]string "Post not found"
// @Failure 409 {object} map[string]string "Invalid transition"
// @Router /posts/{postId}/schedule [post]
func (h *PostHandler) schedulePost(w http.ResponseWriter, r *http.Request, postID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.PostScheduleDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	job := service.PublishJob{
		PostID:       postID,
		UserID:       userID,
		AccountID:    req.AccountID,
		LocationIDs:  req.LocationIDs,
		Checkmark:    req.Checkmark,
		AccessToken:  req.AccessToken,
		ScheduledFor: req.ScheduledDate,
	}
	post, err := h.postService.Schedule(r.Context(), postID, userID, req.ScheduledDate, job)
	if err != nil {
		h.writeLifecycleError(w, err, "Failed to schedule post")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPostResponseDTO(post))
}

// publishPost godoc
// @Summary Publish a post now
// @Description Publishes an approved or scheduled post to the selected locations in one dispatch. Coins are reserved up front and refunded if dispatch fails.
// @Tags posts
// @Accept json
// @Produce json
// @Param postId path string true "Post ID"
// @Param request body dto.PostPublishDTO true "Publish request"
// @Success 200 {object} dto.PostResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 402 {object} map[string]string "Insufficient funds"
// @Failure 404 {object} map[string]string "Post not found"
// @Failure 409 {object} map[string]string "Invalid transition"
// @Failure 502 {object} map[string]string "Dispatch failed, coins refunded"
// @Router /posts/{postId}/publish [post]
func (h *PostHandler) publishPost(w http.ResponseWriter, r *http.Request, postID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.PostPublishDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	post, err := h.publishService.Post(r.Context(), service.PublishRequest{
		PostID:      postID,
		UserID:      userID,
		AccountID:   req.AccountID,
		LocationIDs: req.LocationIDs,
		Checkmark:   req.Checkmark,
		AccessToken: req.AccessToken,
	})
	if err != nil {
		h.writePublishError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPostResponseDTO(post))
}

func (h *PostHandler) writePublishError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrPostNotFound):
		writeError(w, http.StatusNotFound, "post not found")
	case errors.Is(err, repository.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, repository.ErrInsufficientFunds.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrLocationSelectionEmpty),
		errors.Is(err, service.ErrLocationUnknown),
		errors.Is(err, service.ErrLocationNotVerified):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDispatchFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		http.Error(w, "Failed to publish post: "+err.Error(), http.StatusInternalServerError)
	}
}

func (h *PostHandler) writeLifecycleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrPostNotFound):
		writeError(w, http.StatusNotFound, "post not found")
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrPostContentLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrRejectReasonNeeded),
		errors.Is(err, model.ErrScheduleDatePast),
		errors.Is(err, service.ErrLocationSelectionEmpty):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		http.Error(w, fallback+": "+err.Error(), http.StatusInternalServerError)
	}
}
