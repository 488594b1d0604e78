package analyst

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers analyst session routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/{id}", h.GetSession)
		r.Delete("/{id}", h.DeleteSession)
		r.Post("/{id}/files", h.UploadFile)
		r.Post("/{id}/questions", h.AskQuestion)
		r.Get("/{id}/context", h.GetContext)
		r.Get("/{id}/history", h.GetHistory)
		r.Delete("/{id}/history", h.ClearHistory)
		r.Get("/{id}/history/summary", h.GetHistorySummary)
		r.Get("/{id}/backend", h.GetBackend)
		r.Put("/{id}/backend", h.UpdateBackend)
		r.Get("/{id}/export", h.ExportTranscript)
	})
}
