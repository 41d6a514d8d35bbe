package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartbite/assistant/backend/internal/model/speech"
)

type fakeTranscriber struct {
	mu     sync.Mutex
	audio  []byte
	format string
	lang   string
	text   string
	err    error
}

func (f *fakeTranscriber) TranscribeBuffer(_ context.Context, sessionID string, audio []byte, format, language string) (*speech.ASRResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append([]byte(nil), audio...)
	f.format = format
	f.lang = language
	if f.err != nil {
		return nil, f.err
	}
	return &speech.ASRResponse{SessionID: sessionID, Text: f.text}, nil
}

// feedWhenReady retries until Recognize has opened its sink.
func feedWhenReady(t *testing.T, e *AudioEngine, chunk Chunk) {
	t.Helper()
	require.Eventually(t, func() bool { return e.Feed(chunk) == nil }, time.Second, time.Millisecond)
}

func TestAudioEngineTranscribesUtterance(t *testing.T) {
	tr := &fakeTranscriber{text: " vegan options? "}
	e := NewAudioEngine(tr, "s-1", "en-US", time.Second)

	assert.ErrorIs(t, e.Feed(Chunk{Data: []byte("x")}), ErrNotListening, "no session yet")

	done := make(chan struct{})
	var (
		text string
		err  error
	)
	go func() {
		defer close(done)
		text, err = e.Recognize(context.Background())
	}()

	feedWhenReady(t, e, Chunk{Data: []byte("ab"), Format: "pcm"})
	require.NoError(t, e.Feed(Chunk{Data: []byte("cd"), Final: true}))
	<-done

	require.NoError(t, err)
	assert.Equal(t, "vegan options?", text)
	assert.Equal(t, []byte("abcd"), tr.audio)
	assert.Equal(t, "pcm", tr.format)
	assert.Equal(t, "en-US", tr.lang)
	assert.ErrorIs(t, e.Feed(Chunk{Data: []byte("x")}), ErrNotListening)
}

func TestAudioEngineNoSpeech(t *testing.T) {
	e := NewAudioEngine(&fakeTranscriber{}, "s-1", "en-US", time.Second)

	errCh := make(chan error, 1)
	go func() {
		_, err := e.Recognize(context.Background())
		errCh <- err
	}()
	feedWhenReady(t, e, Chunk{Final: true})
	assert.ErrorIs(t, <-errCh, ErrNoSpeech)
}

func TestAudioEngineTimeout(t *testing.T) {
	e := NewAudioEngine(&fakeTranscriber{}, "s-1", "en-US", 20*time.Millisecond)
	_, err := e.Recognize(context.Background())
	assert.ErrorIs(t, err, ErrListenTimeout)
}

func TestAudioEngineCancel(t *testing.T) {
	e := NewAudioEngine(&fakeTranscriber{}, "s-1", "en-US", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Recognize(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAudioEngineWrapsTranscriberError(t *testing.T) {
	boom := errors.New("asr down")
	e := NewAudioEngine(&fakeTranscriber{err: boom}, "s-1", "en-US", time.Second)

	errCh := make(chan error, 1)
	go func() {
		_, err := e.Recognize(context.Background())
		errCh <- err
	}()
	feedWhenReady(t, e, Chunk{Data: []byte("ab"), Final: true})
	assert.ErrorIs(t, <-errCh, boom)
}

func TestAudioEngineBusy(t *testing.T) {
	e := NewAudioEngine(&fakeTranscriber{}, "s-1", "en-US", 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _, _ = e.Recognize(ctx) }()
	require.Eventually(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.sink != nil
	}, time.Second, time.Millisecond)

	_, err := e.Recognize(context.Background())
	assert.ErrorIs(t, err, ErrEngineBusy)
}

// stalledSession opens a session whose buffer nobody drains.
func stalledSession(e *AudioEngine) (done chan struct{}) {
	done = make(chan struct{})
	e.mu.Lock()
	e.sink, e.done = make(chan Chunk), done
	e.mu.Unlock()
	return done
}

func TestAudioEngineFullBufferDropsIntermediateChunk(t *testing.T) {
	e := NewAudioEngine(&fakeTranscriber{}, "s-1", "en-US", 0)
	stalledSession(e)

	assert.ErrorIs(t, e.Feed(Chunk{Data: []byte("ab")}), ErrAudioBacklog)
}

func TestAudioEngineFinalChunkWaitsForRoom(t *testing.T) {
	e := NewAudioEngine(&fakeTranscriber{}, "s-1", "en-US", 0)
	e.finalWait = time.Second
	stalledSession(e)

	e.mu.Lock()
	sink := e.sink
	e.mu.Unlock()

	got := make(chan Chunk, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		got <- <-sink
	}()

	require.NoError(t, e.Feed(Chunk{Data: []byte("cd"), Final: true}))
	assert.True(t, (<-got).Final)
}

func TestAudioEngineFinalChunkGivesUp(t *testing.T) {
	e := NewAudioEngine(&fakeTranscriber{}, "s-1", "en-US", 0)
	e.finalWait = 20 * time.Millisecond
	stalledSession(e)

	assert.ErrorIs(t, e.Feed(Chunk{Final: true}), ErrAudioBacklog)
}

func TestAudioEngineFinalChunkAfterSessionEnds(t *testing.T) {
	e := NewAudioEngine(&fakeTranscriber{}, "s-1", "en-US", 0)
	e.finalWait = time.Second
	done := stalledSession(e)
	close(done)

	assert.ErrorIs(t, e.Feed(Chunk{Final: true}), ErrNotListening)
}
