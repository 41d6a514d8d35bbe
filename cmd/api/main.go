package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/smartbite/assistant/backend/internal/analysis/intent"
	"github.com/smartbite/assistant/backend/internal/config"
	"github.com/smartbite/assistant/backend/internal/handler"
	"github.com/smartbite/assistant/backend/internal/logger"
	"github.com/smartbite/assistant/backend/internal/middleware"
	"github.com/smartbite/assistant/backend/internal/model/assistant"
	chatModel "github.com/smartbite/assistant/backend/internal/model/chat"
	"github.com/smartbite/assistant/backend/internal/service/chat"
	"github.com/smartbite/assistant/backend/internal/service/speech"
	"github.com/smartbite/assistant/backend/internal/service/voice"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if envErr != nil {
		log.Debug("no .env file, using process environment only", "error", envErr)
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	speechService := speech.NewService(cfg.Speech.Model(), log)

	opts := chat.Options{
		Delay: &chat.Delay{
			Min:    cfg.Chat.ReplyDelayMin,
			Jitter: cfg.Chat.ReplyDelayJitter,
		},
		Classifier: intent.Default(),
		Logger:     log,
	}
	if cfg.Speech.Enabled {
		fallbackLanguage := speechService.Language()
		opts.VoiceEngine = func(session chatModel.Session, profile assistant.Profile) voice.Engine {
			language := profile.Language
			if language == "" {
				language = fallbackLanguage
			}
			return voice.NewAudioEngine(speechService, session.ID, language, cfg.Chat.ListenTimeout)
		}
		log.Info("voice input enabled", "defaultLanguage", fallbackLanguage)
	} else {
		log.Info("speech credentials not configured, voice input disabled")
	}

	chatService, err := chat.NewService(ctx, assistant.NewMemoryStore(assistant.Seed()), opts)
	if err != nil {
		return fmt.Errorf("init chat service: %w", err)
	}
	defer chatService.CloseAll()

	router := handler.NewRouter(handler.Dependencies{
		Chat:           chatService,
		Speech:         speechService,
		Limiter:        middleware.NewRateLimiter(cfg.Chat.RateLimitRPS, cfg.Chat.RateLimitBurst),
		AllowedOrigins: cfg.Chat.AllowedOrigins,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("SmartBite assistant listening", "addr", cfg.Server.Addr)
	return runServer(ctx, srv, chatService, log)
}

func runServer(ctx context.Context, srv *http.Server, chatService *chat.Service, log *logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down", "openWidgets", chatService.Count())
		// Hijacked sockets are not tracked by Shutdown; closing the widgets
		// ends them and cancels pending replies.
		chatService.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
