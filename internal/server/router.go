package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sauti-labs/lugha/internal/api"
	"github.com/sauti-labs/lugha/internal/api/handlers"
	"github.com/sauti-labs/lugha/internal/api/middleware"
)

type RouterConfig struct {
	ChatHandler       *handlers.ChatHandler
	EscalationHandler *handlers.EscalationHandler
	KnowledgeHandler  *handlers.KnowledgeHandler
	RunHandler        *handlers.RunHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))
	r.Use(middleware.Identity)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/chat", cfg.ChatHandler.Send)

	r.Route("/escalations", func(r chi.Router) {
		r.Get("/", cfg.EscalationHandler.List)
		r.Post("/{id}/claim", cfg.EscalationHandler.Claim)
		r.Post("/{id}/gold-set", cfg.EscalationHandler.FlagGoldSet)
		r.Post("/{id}/resolve", cfg.EscalationHandler.Resolve)
		r.Post("/{id}/votes", cfg.EscalationHandler.CastVote)
	})

	r.Route("/knowledge", func(r chi.Router) {
		r.Post("/", cfg.KnowledgeHandler.Create)
		r.Get("/", cfg.KnowledgeHandler.List)
		r.Get("/{id}", cfg.KnowledgeHandler.Get)
		r.Put("/{id}", cfg.KnowledgeHandler.Update)
		r.Post("/{id}/confirm", cfg.KnowledgeHandler.Confirm)
		r.Get("/{id}/history", cfg.KnowledgeHandler.History)
	})

	r.Get("/runs/{id}", cfg.RunHandler.Get)
	r.Get("/conversations/{id}/messages", cfg.RunHandler.ListMessages)

	return r
}
