package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/service"
)

// DLQHandler exposes dead-lettered publish jobs for inspection
type DLQHandler struct {
	dlqService service.DLQService
}

// NewDLQHandler creates a new DLQHandler
func NewDLQHandler(dlqService service.DLQService) *DLQHandler {
	return &DLQHandler{dlqService: dlqService}
}

// RegisterRoutes mounts DLQ routes
func (h *DLQHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/admin/dead-letters", authMw(http.HandlerFunc(h.listDeadLetters)))
	mux.Handle("/admin/dead-letters/", authMw(http.HandlerFunc(h.handleDeadLetter)))
}

func (h *DLQHandler) handleDeadLetter(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/dead-letters/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "Invalid dead letter ID", http.StatusBadRequest)
		return
	}
	switch parts[1] {
	case "replay":
		h.replayDeadLetter(w, r, id)
	case "discard":
		h.discardDeadLetter(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// listDeadLetters godoc
// @Summary List dead-lettered publish jobs
// @Description Returns recently dead-lettered jobs, newest first.
// @Tags admin
// @Produce json
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {array} dto.DeadLetterResponseDTO
// @Router /admin/dead-letters [get]
func (h *DLQHandler) listDeadLetters(w http.ResponseWriter, r *http.Request) {
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
	if limit <= 0 {
		limit = 50
	}
	messages, err := h.dlqService.List(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to list dead letters: "+err.Error(), http.StatusInternalServerError)
		return
	}
	resp := make([]dto.DeadLetterResponseDTO, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, dto.DeadLetterResponseDTO{
			ID:        m.ID,
			QueueName: m.QueueName,
			MessageID: m.MessageID,
			Payload:   string(m.Payload),
			Status:    m.Status,
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// replayDeadLetter godoc
// @Summary Replay a dead-lettered publish job
// @Description Re-enqueues the job onto its original queue and marks it replayed.
// @Tags admin
// @Param id path int true "Dead letter ID"
// @Success 204 {string} string "Replayed"
// @Failure 404 {object} map[string]string "Dead letter not found"
// @Failure 409 {object} map[string]string "Already replayed or discarded"
// @Router /admin/dead-letters/{id}/replay [post]
func (h *DLQHandler) replayDeadLetter(w http.ResponseWriter, r *http.Request, id int64) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	if err := h.dlqService.Replay(r.Context(), id); err != nil {
		writeDeadLetterError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// discardDeadLetter godoc
// @Summary Discard a dead-lettered publish job
// @Description Marks the job as handled without re-enqueueing it.
// @Tags admin
// @Param id path int true "Dead letter ID"
// @Success 204 {string} string "Discarded"
// @Failure 404 {object} map[string]string "Dead letter not found"
// @Failure 409 {object} map[string]string "Already replayed or discarded"
// @Router /admin/dead-letters/{id}/discard [post]
func (h *DLQHandler) discardDeadLetter(w http.ResponseWriter, r *http.Request, id int64) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	if err := h.dlqService.Discard(r.Context(), id); err != nil {
		writeDeadLetterError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeDeadLetterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrDeadLetterNotFound):
		writeError(w, http.StatusNotFound, "dead letter not found")
	case errors.Is(err, service.ErrDeadLetterClosed):
		writeError(w, http.StatusConflict, "dead letter already handled")
	default:
		http.Error(w, "Failed to update dead letter: "+err.Error(), http.StatusInternalServerError)
	}
}
