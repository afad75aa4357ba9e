package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(mux *chi.Mux, h *Handlers) {
	mux.Get("/healthz", h.Health)
	mux.Get("/version", h.Version)

	mux.Post("/api/chat", h.Chat)
	mux.Get("/api/models", h.ListModels)
	mux.Get("/api/history/{sessionID}", h.GetHistory)
}

func pathSessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}
