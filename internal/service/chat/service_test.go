package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartbite/assistant/backend/internal/analysis/intent"
	"github.com/smartbite/assistant/backend/internal/model/assistant"
	"github.com/smartbite/assistant/backend/internal/model/chat"
	"github.com/smartbite/assistant/backend/internal/model/speech"
	"github.com/smartbite/assistant/backend/internal/service/voice"
)

func newTestService(t *testing.T, clock *fakeClock) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), assistant.NewMemoryStore(assistant.Seed()), Options{
		AfterFunc: clock.AfterFunc,
	})
	require.NoError(t, err)
	t.Cleanup(svc.CloseAll)
	return svc
}

func TestServiceOpenUsesDefaultAssistant(t *testing.T) {
	svc := newTestService(t, &fakeClock{})

	conv, err := svc.Open(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, assistant.DefaultID, conv.Session().AssistantID)

	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, assistant.Seed()[0].Greeting, msgs[0].Text)
	assert.Equal(t, 1, svc.Count())
}

func TestServiceOpenUnknownAssistant(t *testing.T) {
	svc := newTestService(t, &fakeClock{})

	_, err := svc.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrAssistantNotFound)
	assert.Zero(t, svc.Count())
}

func TestServiceGetAndClose(t *testing.T) {
	clock := &fakeClock{}
	svc := newTestService(t, clock)
	ctx := context.Background()

	conv, err := svc.Open(ctx, assistant.DefaultID)
	require.NoError(t, err)

	got, err := svc.Get(ctx, conv.Session().ID)
	require.NoError(t, err)
	assert.Same(t, conv, got)

	_, err = conv.Submit("Do you deliver?")
	require.NoError(t, err)

	require.NoError(t, svc.Close(ctx, conv.Session().ID))
	clock.fireAll()
	assert.Len(t, conv.Messages(), 2)

	_, err = svc.Get(ctx, conv.Session().ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Close(ctx, conv.Session().ID), ErrSessionNotFound)
}

func TestServiceWidgetsAreIndependent(t *testing.T) {
	clock := &fakeClock{}
	svc := newTestService(t, clock)
	ctx := context.Background()

	a, err := svc.Open(ctx, "")
	require.NoError(t, err)
	b, err := svc.Open(ctx, "")
	require.NoError(t, err)
	require.NotEqual(t, a.Session().ID, b.Session().ID)

	_, err = a.Submit("menu")
	require.NoError(t, err)
	assert.True(t, a.Pending())
	assert.False(t, b.Pending())

	_, err = b.Submit("hours")
	require.NoError(t, err)

	clock.fireArmed()
	assert.Len(t, a.Messages(), 3)
	assert.Len(t, b.Messages(), 3)
}

func TestServiceCloseAll(t *testing.T) {
	svc := newTestService(t, &fakeClock{})
	ctx := context.Background()

	a, err := svc.Open(ctx, "")
	require.NoError(t, err)
	_, err = svc.Open(ctx, "")
	require.NoError(t, err)

	svc.CloseAll()
	assert.Zero(t, svc.Count())

	_, err = a.Submit("hi")
	assert.ErrorIs(t, err, ErrTranscriptClosed)
}

func TestServiceDefaultsDelayWhenUnset(t *testing.T) {
	clock := &fakeClock{}
	svc := newTestService(t, clock)

	conv, err := svc.Open(context.Background(), "")
	require.NoError(t, err)
	_, err = conv.Submit("menu")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, clock.lastDelay(), time.Second)
	assert.Less(t, clock.lastDelay(), 2*time.Second)
}

func TestServiceHonoursZeroDelay(t *testing.T) {
	clock := &fakeClock{}
	svc, err := NewService(context.Background(), assistant.NewMemoryStore(assistant.Seed()), Options{
		Delay:     &Delay{},
		AfterFunc: clock.AfterFunc,
	})
	require.NoError(t, err)
	t.Cleanup(svc.CloseAll)

	conv, err := svc.Open(context.Background(), "")
	require.NoError(t, err)
	_, err = conv.Submit("menu")
	require.NoError(t, err)

	assert.Equal(t, 1, clock.armed())
	assert.Zero(t, clock.lastDelay())
}

func TestServiceRepliesFromConfiguredClassifier(t *testing.T) {
	classifier := intent.NewClassifier([]intent.Rule{
		{Intent: intent.Menu, Keywords: []string{"special"}, Response: "Today's special is paella."},
	}, "Ask me about the specials.")

	clock := &fakeClock{}
	svc, err := NewService(context.Background(), assistant.NewMemoryStore(assistant.Seed()), Options{
		AfterFunc:  clock.AfterFunc,
		Classifier: classifier,
	})
	require.NoError(t, err)
	t.Cleanup(svc.CloseAll)
	assert.Same(t, classifier, svc.Classifier())

	conv, err := svc.Open(context.Background(), "")
	require.NoError(t, err)
	_, err = conv.Submit("What's the special?")
	require.NoError(t, err)
	clock.fireArmed()

	msgs := conv.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Today's special is paella.", msgs[2].Text)
}

type recordingTranscriber struct {
	mu       sync.Mutex
	language string
}

func (r *recordingTranscriber) TranscribeBuffer(_ context.Context, sessionID string, _ []byte, _, language string) (*speech.ASRResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.language = language
	return &speech.ASRResponse{SessionID: sessionID, Text: "hola"}, nil
}

func (r *recordingTranscriber) lastLanguage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.language
}

func TestServiceVoiceEngineUsesProfileLanguage(t *testing.T) {
	store := assistant.NewMemoryStore([]assistant.Profile{
		{ID: "cocina", Name: "Cocina", Greeting: "¡Hola!", Language: "es-ES"},
	})
	tr := &recordingTranscriber{}

	svc, err := NewService(context.Background(), store, Options{
		AfterFunc: (&fakeClock{}).AfterFunc,
		VoiceEngine: func(session chat.Session, profile assistant.Profile) voice.Engine {
			return voice.NewAudioEngine(tr, session.ID, profile.Language, time.Second)
		},
	})
	require.NoError(t, err)
	t.Cleanup(svc.CloseAll)

	conv, err := svc.Open(context.Background(), "cocina")
	require.NoError(t, err)
	require.True(t, conv.Voice().IsAvailable())
	require.NoError(t, conv.Voice().StartListening())

	require.Eventually(t, func() bool {
		return conv.FeedAudio(voice.Chunk{Data: []byte{1, 2}, Format: "pcm", Final: true}) == nil
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool { return conv.Input() == "hola" }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "es-ES", tr.lastLanguage())
}
