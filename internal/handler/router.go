package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/smartbite/assistant/backend/internal/handler/assistant"
	"github.com/smartbite/assistant/backend/internal/handler/chat"
	"github.com/smartbite/assistant/backend/internal/handler/speech"
	"github.com/smartbite/assistant/backend/internal/handler/stream"
	"github.com/smartbite/assistant/backend/internal/logger"
	middlewarePkg "github.com/smartbite/assistant/backend/internal/middleware"
	chatService "github.com/smartbite/assistant/backend/internal/service/chat"
	"github.com/smartbite/assistant/backend/pkg/utils"
)

// Dependencies bundles what the router wires into handlers.
type Dependencies struct {
	Chat           *chatService.Service
	Speech         speech.SpeechService
	Limiter        *middlewarePkg.RateLimiter
	AllowedOrigins []string
	Logger         *logger.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(deps.Logger, 500*time.Millisecond))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	// Previews and rule listings read the same table live replies use.
	classifier := deps.Chat.Classifier()
	assistantHandler := assistant.New(deps.Chat.Assistants(), classifier)
	chatHandler := chat.New(deps.Chat, classifier, deps.Limiter, deps.Logger)
	streamHandler := stream.New(deps.Chat, deps.Logger)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":  "ok",
				"widgets": deps.Chat.Count(),
			})
		})

		assistantHandler.RegisterRoutes(api)

		api.Route("/chat", func(cr chi.Router) {
			chatHandler.RegisterRoutes(cr)
			streamHandler.RegisterRoutes(cr)
		})

		if deps.Speech != nil {
			speech.New(deps.Speech, deps.Logger).RegisterRoutes(api)
		} else {
			api.Post("/speech/transcribe", func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusNotImplemented, "speech recognition not available")
			})
		}
	})

	return r
}
