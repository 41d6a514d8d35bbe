package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/smartbite/assistant/backend/internal/model/speech"
)

var (
	ErrNoSpeech      = errors.New("no audio captured")
	ErrListenTimeout = errors.New("utterance did not finish in time")
	ErrEngineBusy    = errors.New("a recognition session is already running")
	ErrNotListening  = errors.New("not listening")
	ErrAudioBacklog  = errors.New("audio buffer full")
)

// finalChunkWait bounds how long the closing chunk of an utterance may wait
// for room in a full buffer.
const finalChunkWait = time.Second

// Transcriber is the ASR backend the audio engine delegates to.
type Transcriber interface {
	TranscribeBuffer(ctx context.Context, sessionID string, audioData []byte, format, language string) (*speech.ASRResponse, error)
}

// Chunk is one piece of audio pushed by the client while listening.
type Chunk struct {
	Data   []byte
	Format string
	Final  bool
}

// AudioEngine is an Engine for clients that stream microphone audio to the
// server. Chunks fed outside a Recognize call are dropped.
type AudioEngine struct {
	transcriber Transcriber
	sessionID   string
	language    string
	timeout     time.Duration
	finalWait   time.Duration

	mu   sync.Mutex
	sink chan Chunk
	done chan struct{}
}

// NewAudioEngine binds an engine to one widget session. timeout bounds a
// single utterance; zero disables the bound.
func NewAudioEngine(transcriber Transcriber, sessionID, language string, timeout time.Duration) *AudioEngine {
	return &AudioEngine{
		transcriber: transcriber,
		sessionID:   sessionID,
		language:    language,
		timeout:     timeout,
		finalWait:   finalChunkWait,
	}
}

// Feed delivers a chunk to the running session. Intermediate chunks are
// dropped with ErrAudioBacklog when the buffer is full; the final chunk waits
// briefly for room since losing it would stall the utterance.
func (e *AudioEngine) Feed(chunk Chunk) error {
	e.mu.Lock()
	sink, done := e.sink, e.done
	e.mu.Unlock()
	if sink == nil {
		return ErrNotListening
	}

	select {
	case sink <- chunk:
		return nil
	default:
	}
	if !chunk.Final {
		return ErrAudioBacklog
	}

	timer := time.NewTimer(e.finalWait)
	defer timer.Stop()
	select {
	case sink <- chunk:
		return nil
	case <-done:
		return ErrNotListening
	case <-timer.C:
		return ErrAudioBacklog
	}
}

// Recognize implements Engine: buffer chunks until the final one, then
// transcribe the utterance.
func (e *AudioEngine) Recognize(ctx context.Context) (string, error) {
	sink := make(chan Chunk, 64)
	done := make(chan struct{})

	e.mu.Lock()
	if e.sink != nil {
		e.mu.Unlock()
		return "", ErrEngineBusy
	}
	e.sink, e.done = sink, done
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.sink, e.done = nil, nil
		e.mu.Unlock()
		close(done)
	}()

	var timeout <-chan time.Time
	if e.timeout > 0 {
		timer := time.NewTimer(e.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var (
		buf    bytes.Buffer
		format string
	)
collect:
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timeout:
			return "", ErrListenTimeout
		case chunk := <-sink:
			buf.Write(chunk.Data)
			if chunk.Format != "" {
				format = chunk.Format
			}
			if chunk.Final {
				break collect
			}
		}
	}

	if buf.Len() == 0 {
		return "", ErrNoSpeech
	}
	if format == "" {
		format = "wav"
	}

	resp, err := e.transcriber.TranscribeBuffer(ctx, e.sessionID, buf.Bytes(), format, e.language)
	if err != nil {
		return "", fmt.Errorf("transcribe utterance: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return strings.TrimSpace(resp.Text), nil
}
