package handlers

import (
	"github.com/go-chi/chi"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		r.Route("/games", func(r chi.Router) {
			r.Get("/", h.ListGames)
			r.Post("/", h.AddGame)
			r.Get("/category/{category}", h.GamesByCategory)
			r.Get("/players/{count}", h.GamesForPlayers)
			r.Get("/{name}", h.GetGame)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.RecentSessions)
			r.Post("/", h.RecordSession)
			r.Get("/history", h.History)
			r.Post("/sweep", h.Sweep)
		})

		r.Get("/stats/{game}", h.WinStatistics)
	})
}
