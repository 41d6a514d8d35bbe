package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartbite/assistant/backend/internal/analysis/intent"
	"github.com/smartbite/assistant/backend/internal/model/assistant"
	chatService "github.com/smartbite/assistant/backend/internal/service/chat"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	chatSvc, err := chatService.NewService(context.Background(), assistant.NewMemoryStore(assistant.Seed()), chatService.Options{})
	require.NoError(t, err)
	t.Cleanup(chatSvc.CloseAll)
	return NewRouter(Dependencies{Chat: chatSvc})
}

func TestRouterServesHealthAndAssistants(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/health", "/api/assistants", "/api/assistants/rules"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestRouterSpeechUnavailable(t *testing.T) {
	r := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/speech/transcribe", nil))
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestRouterCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat/sessions", nil)
	req.Header.Set("Origin", "https://smartbite.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterPreviewMatchesLiveClassifier(t *testing.T) {
	classifier := intent.NewClassifier([]intent.Rule{
		{Intent: intent.Menu, Keywords: []string{"special"}, Response: "Today's special is paella."},
	}, "Ask me about the specials.")
	chatSvc, err := chatService.NewService(context.Background(), assistant.NewMemoryStore(assistant.Seed()), chatService.Options{
		Classifier: classifier,
	})
	require.NoError(t, err)
	t.Cleanup(chatSvc.CloseAll)
	r := NewRouter(Dependencies{Chat: chatSvc})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat/classify", strings.NewReader(`{"text":"any specials?"}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	var decision intent.Decision
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decision))
	assert.Equal(t, "Today's special is paella.", decision.Response)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/assistants/rules", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var rules []intent.Rule
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rules))
	require.Len(t, rules, 2)
	assert.Equal(t, []string{"special"}, rules[0].Keywords)
}
