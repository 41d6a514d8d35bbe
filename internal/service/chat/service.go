package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartbite/assistant/backend/internal/analysis/intent"
	"github.com/smartbite/assistant/backend/internal/logger"
	"github.com/smartbite/assistant/backend/internal/model/assistant"
	"github.com/smartbite/assistant/backend/internal/model/chat"
	"github.com/smartbite/assistant/backend/internal/service/voice"
)

var (
	ErrAssistantNotFound = errors.New("assistant not found")
	ErrSessionNotFound   = errors.New("session not found")
)

// Options configures the chat service.
type Options struct {
	// Delay defaults to DefaultDelay when nil. A zero Delay replies at once.
	Delay *Delay
	// AfterFunc overrides the reply timer, mainly for tests.
	AfterFunc AfterFunc
	// Classifier backs the default reply pipeline and the fallback text.
	Classifier *intent.Classifier
	// Replier defaults to the rule pipeline over Classifier.
	Replier Replier
	// Fallback is appended when the replier fails.
	Fallback string
	// VoiceEngine builds a speech engine per widget from the profile it was
	// opened with; nil means no voice input.
	VoiceEngine func(session chat.Session, profile assistant.Profile) voice.Engine
	Logger      *logger.Logger
}

// Service keeps every open chat widget in memory. Nothing outlives Close.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*Conversation

	assistants assistant.Store
	classifier *intent.Classifier
	delay      Delay
	opts       Options
	log        *logger.Logger
}

// NewService wires the widget registry.
func NewService(ctx context.Context, assistants assistant.Store, opts Options) (*Service, error) {
	delay := DefaultDelay
	if opts.Delay != nil {
		delay = *opts.Delay
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = intent.Default()
	}
	if opts.Replier == nil {
		pipeline, err := NewRulePipeline(ctx, classifier)
		if err != nil {
			return nil, err
		}
		opts.Replier = pipeline
	}
	if opts.Fallback == "" {
		opts.Fallback = classifier.Classify("").Response
	}

	return &Service{
		sessions:   make(map[string]*Conversation),
		assistants: assistants,
		classifier: classifier,
		delay:      delay,
		opts:       opts,
		log:        opts.Logger.With("service", "ChatService"),
	}, nil
}

// Open creates a fresh transcript for a newly opened widget.
func (s *Service) Open(_ context.Context, assistantID string) (*Conversation, error) {
	if assistantID == "" {
		assistantID = assistant.DefaultID
	}
	profile, ok := s.assistants.FindByID(assistantID)
	if !ok {
		return nil, ErrAssistantNotFound
	}

	session := chat.Session{
		ID:          uuid.NewString(),
		AssistantID: profile.ID,
		CreatedAt:   time.Now().UTC(),
	}

	var engine voice.Engine
	if s.opts.VoiceEngine != nil {
		engine = s.opts.VoiceEngine(session, profile)
	}

	conv := newConversation(session, conversationDeps{
		greeting:  profile.Greeting,
		delay:     s.delay,
		afterFunc: s.opts.AfterFunc,
		replier:   s.opts.Replier,
		fallback:  s.opts.Fallback,
		engine:    engine,
		log:       s.log,
	})

	s.mu.Lock()
	s.sessions[session.ID] = conv
	s.mu.Unlock()

	s.log.Info("widget opened", "session", session.ID, "assistant", profile.ID, "voice", conv.Voice().IsAvailable())
	return conv, nil
}

// Get looks up an open widget.
func (s *Service) Get(_ context.Context, sessionID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return conv, nil
}

// Close tears a widget down and forgets it.
func (s *Service) Close(_ context.Context, sessionID string) error {
	s.mu.Lock()
	conv, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	conv.Close()
	s.log.Info("widget closed", "session", sessionID, "messages", len(conv.Messages()))
	return nil
}

// CloseAll tears down every widget, used on shutdown.
func (s *Service) CloseAll() {
	s.mu.Lock()
	open := s.sessions
	s.sessions = make(map[string]*Conversation)
	s.mu.Unlock()

	for _, conv := range open {
		conv.Close()
	}
	if len(open) > 0 {
		s.log.Info("closed open widgets", "count", len(open))
	}
}

// Count is the number of open widgets.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Classifier is the rule table live replies are drawn from.
func (s *Service) Classifier() *intent.Classifier {
	return s.classifier
}

// Assistants exposes the profile store backing Open.
func (s *Service) Assistants() assistant.Store {
	return s.assistants
}
