package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/smartbite/assistant/backend/internal/middleware"
	chatService "github.com/smartbite/assistant/backend/internal/service/chat"
	"github.com/smartbite/assistant/backend/internal/service/voice"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 128
)

var upgrader = websocket.Upgrader{
	// Origins are enforced by the CORS layer for REST; the widget socket
	// is embedded on the restaurant site itself.
	CheckOrigin:     func(*http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// audioPayload carries base64 encoded microphone audio.
type audioPayload struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"`
	IsFinal   bool   `json:"isFinal"`
}

// socket is one widget connection. Only the write loop touches conn for
// writing.
type socket struct {
	conn      *websocket.Conn
	conv      *chatService.Conversation
	sessionID string
	clientKey string

	out    chan outgoingMessage
	ctx    context.Context
	cancel context.CancelFunc
}

// handleWebSocket binds a socket to an open widget. Dropping the socket tears
// the widget down.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conv, err := h.chatSvc.Get(r.Context(), sessionID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "session", sessionID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s := &socket{
		conn:      conn,
		conv:      conv,
		sessionID: sessionID,
		clientKey: middleware.ClientKey(r),
		out:       make(chan outgoingMessage, sendBuffer),
		ctx:       ctx,
		cancel:    cancel,
	}
	log := h.log.With("session", sessionID)
	log.Info("widget socket connected")

	// The snapshot is always the first frame. Events raised while it is
	// being built are held until it is queued, so they may repeat messages
	// the snapshot already holds; clients dedupe by message seq.
	snapshotQueued := make(chan struct{})
	unsubscribe := conv.Subscribe(func(ev chatService.Event) {
		<-snapshotQueued
		if !s.send("event", NewEventView(ev)) {
			log.Warn("widget socket lagging, event dropped", "kind", ev.Kind)
		}
	})
	s.send("snapshot", NewSessionView(conv))
	close(snapshotQueued)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()

	h.readLoop(s)

	unsubscribe()
	if err := h.chatSvc.Close(context.Background(), sessionID); err != nil && !errors.Is(err, chatService.ErrSessionNotFound) {
		log.Warn("widget teardown failed", "error", err)
	}
	cancel()
	wg.Wait()
	log.Info("widget socket disconnected")
}

func (h *Handler) readLoop(s *socket) {
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inboundMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Debug("widget socket read failed", "session", s.sessionID, "error", err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		if msg.SessionID != "" && msg.SessionID != s.sessionID {
			s.sendError("session mismatch")
			continue
		}
		if msg.Type == "close" {
			return
		}
		h.handleMessage(s, &msg)
	}
}

func (h *Handler) handleMessage(s *socket, msg *inboundMessage) {
	switch msg.Type {
	case "submit":
		var payload textPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			s.sendError("invalid submit payload")
			return
		}
		if !h.limiter.Allow(s.clientKey) {
			s.sendError("too many requests")
			return
		}
		if _, err := s.conv.Submit(payload.Text); err != nil {
			_, message := statusFor(err)
			s.sendError(message)
		}

	case "input":
		var payload textPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			s.sendError("invalid input payload")
			return
		}
		s.conv.SetInput(payload.Text)

	case "voice_start":
		if err := s.conv.Voice().StartListening(); err != nil {
			s.sendError(err.Error())
		}

	case "voice_stop":
		s.conv.Voice().StopListening()

	case "audio":
		var payload audioPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			s.sendError("invalid audio payload")
			return
		}
		chunk := voice.Chunk{Data: payload.AudioData, Format: payload.Format, Final: payload.IsFinal}
		if err := s.conv.FeedAudio(chunk); err != nil {
			s.sendError(err.Error())
		}

	default:
		s.sendError("unsupported message type: " + msg.Type)
	}
}

// send queues a frame for the write loop without blocking the caller.
func (s *socket) send(typ string, data interface{}) bool {
	msg := outgoingMessage{
		Type:      typ,
		SessionID: s.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	select {
	case <-s.ctx.Done():
		return true
	case s.out <- msg:
		return true
	default:
		return false
	}
}

func (s *socket) sendError(message string) {
	s.send("error", map[string]string{"message": message})
}

func (s *socket) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "widget closed"))
			return

		case msg := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.conn.Close()
				return
			}
			if view, ok := msg.Data.(EventView); ok && view.Kind == chatService.EventClosed {
				// Closed elsewhere (REST or shutdown): end the socket too.
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "widget closed"))
				s.conn.Close()
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.conn.Close()
				return
			}
		}
	}
}
