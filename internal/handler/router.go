package handler

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/chat-relay/backend/internal/handler/persona"
	"github.com/zhouzirui/chat-relay/backend/internal/handler/socket"
	middlewarePkg "github.com/zhouzirui/chat-relay/backend/internal/middleware"
	personaModel "github.com/zhouzirui/chat-relay/backend/internal/model/persona"
	chatService "github.com/zhouzirui/chat-relay/backend/internal/service/chat"
	"github.com/zhouzirui/chat-relay/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. static may be nil.
func NewRouter(sockets *socket.Handler, chatSvc *chatService.Service, active personaModel.Persona, static fs.FS) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sockets.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		persona.New(active).RegisterRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.Len(),
		})
	})

	if static != nil {
		r.Handle("/*", http.FileServer(http.FS(static)))
	} else {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			utils.RespondError(w, http.StatusNotFound, "not found")
		})
	}

	return r
}
