package assistant

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartbite/assistant/backend/internal/analysis/intent"
	"github.com/smartbite/assistant/backend/internal/model/assistant"
	"github.com/smartbite/assistant/backend/pkg/utils"
)

// Handler exposes the assistant profiles and the reply rules behind them.
type Handler struct {
	assistants assistant.Store
	classifier *intent.Classifier
}

// New creates the assistant handler.
func New(assistants assistant.Store, classifier *intent.Classifier) *Handler {
	if classifier == nil {
		classifier = intent.Default()
	}
	return &Handler{assistants: assistants, classifier: classifier}
}

// RegisterRoutes mounts /assistants routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/assistants", h.handleList)
	r.Get("/assistants/rules", h.handleRules)
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.assistants.List())
}

// handleRules lists the rule table in evaluation order, fallback last.
func (h *Handler) handleRules(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.classifier.Rules())
}
