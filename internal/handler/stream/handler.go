package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	chatHandler "github.com/smartbite/assistant/backend/internal/handler/chat"
	"github.com/smartbite/assistant/backend/internal/logger"
	chatService "github.com/smartbite/assistant/backend/internal/service/chat"
	"github.com/smartbite/assistant/backend/pkg/utils"
)

const eventBuffer = 64

// Handler pushes widget events over Server-Sent Events for clients that
// cannot hold a websocket.
type Handler struct {
	chatSvc   *chatService.Service
	keepAlive time.Duration
	log       *logger.Logger
}

// New creates a stream handler.
func New(chatSvc *chatService.Service, log *logger.Logger) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		keepAlive: 15 * time.Second,
		log:       log.With("handler", "stream"),
	}
}

// RegisterRoutes mounts the event stream under the /chat subrouter.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/events", h.handleEvents)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conv, err := h.chatSvc.Get(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events := make(chan chatService.Event, eventBuffer)
	unsubscribe := conv.Subscribe(func(ev chatService.Event) {
		select {
		case events <- ev:
		default:
			h.log.Warn("event stream lagging, event dropped", "session", sessionID, "kind", ev.Kind)
		}
	})
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if !utils.SendSSEEvent(w, flusher, "snapshot", chatHandler.NewSessionView(conv)) {
		return
	}

	h.log.Debug("event stream opened", "session", sessionID)
	defer h.log.Debug("event stream closed", "session", sessionID)

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-conv.Done():
			// drain what was emitted before teardown, closed event included
			for {
				select {
				case ev := <-events:
					utils.SendSSEEvent(w, flusher, string(ev.Kind), chatHandler.NewEventView(ev))
				default:
					return
				}
			}
		case ev := <-events:
			if !utils.SendSSEEvent(w, flusher, string(ev.Kind), chatHandler.NewEventView(ev)) {
				return
			}
			if ev.Kind == chatService.EventClosed {
				return
			}
		case <-ticker.C:
			if !utils.SendSSEComment(w, flusher, "keep-alive") {
				return
			}
		}
	}
}
