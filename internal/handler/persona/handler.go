package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chat-relay/backend/internal/model/persona"
	"github.com/zhouzirui/chat-relay/backend/pkg/utils"
)

// Handler exposes the persona the relay answers as.
type Handler struct {
	active persona.Persona
}

// New creates a persona handler for the active persona.
func New(active persona.Persona) *Handler {
	return &Handler{active: active}
}

// RegisterRoutes mounts the persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/persona", h.handleActivePersona)
}

// handleActivePersona returns the persona without its system prompt.
func (h *Handler) handleActivePersona(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.active)
}
