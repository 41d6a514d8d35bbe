package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/smartbite/assistant/backend/internal/analysis/intent"
	"github.com/smartbite/assistant/backend/internal/logger"
	"github.com/smartbite/assistant/backend/internal/middleware"
	chatService "github.com/smartbite/assistant/backend/internal/service/chat"
	"github.com/smartbite/assistant/backend/pkg/utils"
)

// Handler serves the widget REST surface.
type Handler struct {
	chatSvc    *chatService.Service
	classifier *intent.Classifier
	limiter    *middleware.RateLimiter
	log        *logger.Logger
}

// New builds the chat handler. A nil limiter disables submission limits.
func New(chatSvc *chatService.Service, classifier *intent.Classifier, limiter *middleware.RateLimiter, log *logger.Logger) *Handler {
	if classifier == nil {
		classifier = intent.Default()
	}
	if limiter == nil {
		limiter = middleware.NewRateLimiter(0, 1)
	}
	return &Handler{
		chatSvc:    chatSvc,
		classifier: classifier,
		limiter:    limiter,
		log:        log.With("handler", "chat"),
	}
}

// RegisterRoutes mounts the widget routes; r is expected to be the /chat
// subrouter.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/classify", h.handleClassify)

	r.Post("/sessions", h.handleOpen)
	r.Get("/sessions/{sessionID}", h.handleSnapshot)
	r.Delete("/sessions/{sessionID}", h.handleClose)
	r.Get("/sessions/{sessionID}/messages", h.handleListMessages)
	r.With(h.limiter.Middleware).Post("/sessions/{sessionID}/messages", h.handleSubmit)
	r.Put("/sessions/{sessionID}/input", h.handleSetInput)
	r.Get("/sessions/{sessionID}/ws", h.handleWebSocket)
}

type textPayload struct {
	Text string `json:"text"`
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AssistantID string `json:"assistantId"`
	}
	// An empty body opens the default assistant.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.chatSvc.Open(r.Context(), strings.TrimSpace(payload.AssistantID))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, NewSessionView(conv))
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, NewSessionView(conv))
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, NewMessageViews(conv.Messages()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload textPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := conv.Submit(payload.Text)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, MessageView{Message: msg, DisplayTime: msg.DisplayTime()})
}

func (h *Handler) handleSetInput(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload textPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv.SetInput(payload.Text)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"input": conv.Input()})
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	var payload textPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.classifier.Classify(payload.Text))
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*chatService.Conversation, bool) {
	conv, err := h.chatSvc.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return nil, false
	}
	return conv, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("chat request failed", "error", err)
	}
	utils.RespondError(w, status, message)
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, chatService.ErrAssistantNotFound):
		return http.StatusNotFound, "assistant not found"
	case errors.Is(err, chatService.ErrEmptyMessage):
		return http.StatusBadRequest, "message text is required"
	case errors.Is(err, chatService.ErrReplyPending):
		return http.StatusConflict, "assistant is still replying"
	case errors.Is(err, chatService.ErrTranscriptClosed),
		errors.Is(err, chatService.ErrSchedulerDisposed):
		return http.StatusGone, "chat session closed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
