package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFunc func(ctx context.Context) (string, error)

func (f engineFunc) Recognize(ctx context.Context) (string, error) { return f(ctx) }

type recorder struct {
	mu      sync.Mutex
	results []string
	states  []bool
}

func (r *recorder) onResult(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, text)
}

func (r *recorder) onState(listening bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, listening)
}

func (r *recorder) snapshot() ([]string, []bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.results...), append([]bool(nil), r.states...)
}

func TestCaptureUnavailableWithoutEngine(t *testing.T) {
	c := NewCapture(nil, nil)
	assert.False(t, c.IsAvailable())
	assert.ErrorIs(t, c.StartListening(), ErrVoiceUnavailable)
	assert.False(t, c.Listening())
	c.StopListening()
	c.Close()
}

func TestCaptureDeliversTrimmedResult(t *testing.T) {
	results := make(chan string, 1)
	engine := engineFunc(func(ctx context.Context) (string, error) {
		select {
		case text := <-results:
			return text, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	rec := &recorder{}
	c := NewCapture(engine, rec.onResult, WithStateHook(rec.onState))
	defer c.Close()

	require.NoError(t, c.StartListening())
	require.NoError(t, c.StartListening(), "second start is a no-op")
	assert.True(t, c.Listening())

	results <- "  table for two  "

	require.Eventually(t, func() bool {
		got, _ := rec.snapshot()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	got, states := rec.snapshot()
	assert.Equal(t, []string{"table for two"}, got)
	assert.Equal(t, []bool{true, false}, states)
	assert.False(t, c.Listening())
}

func TestCaptureStopDropsLateResult(t *testing.T) {
	release := make(chan struct{})
	engine := engineFunc(func(ctx context.Context) (string, error) {
		<-release
		return "too late", nil
	})
	rec := &recorder{}
	c := NewCapture(engine, rec.onResult, WithStateHook(rec.onState))

	require.NoError(t, c.StartListening())
	c.StopListening()
	assert.False(t, c.Listening())

	close(release)
	c.Close()

	got, states := rec.snapshot()
	assert.Empty(t, got)
	assert.Equal(t, []bool{true, false}, states)
}

func TestCaptureErrorEndsSessionSilently(t *testing.T) {
	engine := engineFunc(func(context.Context) (string, error) {
		return "", errors.New("no-speech")
	})
	rec := &recorder{}
	c := NewCapture(engine, rec.onResult, WithStateHook(rec.onState))
	defer c.Close()

	require.NoError(t, c.StartListening())
	require.Eventually(t, func() bool { return !c.Listening() }, time.Second, 5*time.Millisecond)

	got, _ := rec.snapshot()
	assert.Empty(t, got)
}

func TestCaptureIgnoresEmptyTranscript(t *testing.T) {
	engine := engineFunc(func(context.Context) (string, error) { return "   ", nil })
	rec := &recorder{}
	c := NewCapture(engine, rec.onResult)
	defer c.Close()

	require.NoError(t, c.StartListening())
	require.Eventually(t, func() bool { return !c.Listening() }, time.Second, 5*time.Millisecond)

	got, _ := rec.snapshot()
	assert.Empty(t, got)
}

func TestCaptureClosedRejectsStart(t *testing.T) {
	engine := engineFunc(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	c := NewCapture(engine, nil)
	require.NoError(t, c.StartListening())

	c.Close()
	assert.False(t, c.Listening())
	assert.ErrorIs(t, c.StartListening(), ErrVoiceUnavailable)
}
