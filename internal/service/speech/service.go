package speech

import (
	"bytes"
	"context"

	"github.com/smartbite/assistant/backend/internal/logger"
	"github.com/smartbite/assistant/backend/internal/model/speech"
)

// Service is the speech-to-text backend behind voice input.
type Service struct {
	config *speech.SpeechConfig
	asr    *ASRClient
}

// NewService builds the service. It works without credentials, but every
// transcription then fails with ErrNotConfigured.
func NewService(config *speech.SpeechConfig, log *logger.Logger) *Service {
	return &Service{
		config: config,
		asr:    NewASRClient(config, log),
	}
}

// Enabled reports whether credentials are present.
func (s *Service) Enabled() bool {
	_, _, err := credentials(s.config)
	return err == nil
}

// Language is the default recognition language.
func (s *Service) Language() string {
	if s.config == nil || s.config.ASRLanguage == "" {
		return "en-US"
	}
	return s.config.ASRLanguage
}

// TranscribeAudio transcribes one utterance.
func (s *Service) TranscribeAudio(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	return s.asr.Transcribe(ctx, req)
}

// TranscribeBuffer is TranscribeAudio for in-memory audio.
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audioData []byte, format, language string) (*speech.ASRResponse, error) {
	if language == "" {
		language = s.Language()
	}
	return s.TranscribeAudio(ctx, &speech.ASRRequest{
		SessionID: sessionID,
		AudioData: bytes.NewReader(audioData),
		Format:    format,
		Language:  language,
	})
}
