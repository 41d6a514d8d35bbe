package speech

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/smartbite/assistant/backend/internal/logger"
	"github.com/smartbite/assistant/backend/internal/model/speech"
	speechsvc "github.com/smartbite/assistant/backend/internal/service/speech"
	"github.com/smartbite/assistant/backend/pkg/utils"
)

const maxUploadBytes = 32 << 20

// SpeechService is the ASR backend the handler needs.
type SpeechService interface {
	Enabled() bool
	Language() string
	TranscribeAudio(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error)
}

// Handler serves one-shot transcription for clients that record a whole
// utterance before sending it.
type Handler struct {
	speechSvc SpeechService
	log       *logger.Logger
}

// New creates the speech handler.
func New(speechSvc SpeechService, log *logger.Logger) *Handler {
	return &Handler{
		speechSvc: speechSvc,
		log:       log.With("handler", "speech"),
	}
}

// RegisterRoutes mounts /speech routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(sr chi.Router) {
		sr.Post("/transcribe", h.handleTranscribe)
		sr.Get("/health", h.handleHealth)
	})
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if !h.speechSvc.Enabled() {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech recognition is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	sessionID := strings.TrimSpace(r.FormValue("sessionId"))
	if sessionID == "" {
		sessionID = "anonymous"
	}
	language := strings.TrimSpace(r.FormValue("language"))
	if language == "" {
		language = h.speechSvc.Language()
	}

	resp, err := h.speechSvc.TranscribeAudio(r.Context(), &speech.ASRRequest{
		SessionID: sessionID,
		AudioData: file,
		Format:    inferAudioFormat(header.Filename),
		Language:  language,
	})
	if err != nil {
		switch {
		case errors.Is(err, speechsvc.ErrNoAudio):
			utils.RespondError(w, http.StatusBadRequest, "audio file is empty")
		case errors.Is(err, speechsvc.ErrNotConfigured):
			utils.RespondError(w, http.StatusServiceUnavailable, "speech recognition is not configured")
		default:
			h.log.Warn("transcription failed", "session", sessionID, "error", err)
			utils.RespondError(w, http.StatusBadGateway, "speech recognition failed")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "speech",
		"enabled": h.speechSvc.Enabled(),
	})
}

func inferAudioFormat(filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".mp3", ".wav", ".webm", ".ogg", ".m4a", ".aac", ".pcm":
		return strings.TrimPrefix(ext, ".")
	default:
		return "wav"
	}
}
