package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(deviceMiddleware)

		r.Get("/sets", s.handleListSets)
		r.Post("/sets", s.handleCreateSet)
		r.Post("/sets/import", s.handleImportNewSet)

		r.Route("/sets/{setID}", func(r chi.Router) {
			r.Get("/", s.handleGetSet)
			r.Patch("/", s.handleRenameSet)
			r.Delete("/", s.handleDeleteSet)
			r.Post("/reset", s.handleResetSet)
			r.Post("/import", s.handleImportIntoSet)

			r.Get("/cards", s.handleListCards)
			r.Post("/cards", s.handleAddCard)
			r.Delete("/cards/{cardID}", s.handleDeleteCard)

			r.Post("/rate", s.handleRate)
			r.Post("/practice", s.handleMarkPractice)
			r.Post("/restore", s.handleRestore)
			r.Post("/order", s.handlePersistOrder)

			r.Route("/session", func(r chi.Router) {
				r.Get("/", s.handleOpenSession)
				r.Delete("/", s.handleDestroySession)
				r.Post("/flip", s.handleFlip)
				r.Post("/answer", s.handleAnswer)
				r.Post("/undo", s.handleUndo)
				r.Post("/shuffle", s.handleShuffle)
				r.Post("/restart", s.handleRestart)
				r.Post("/mode", s.handleSetMode)
			})
		})
	})
	return r
}
