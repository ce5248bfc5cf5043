package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(
		RequestIDMiddleware,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	r.Get("/health", h.Health)

	r.Route("/projects", func(r chi.Router) {
		r.Post("/", h.CreateProject)
		r.Get("/", h.ListProjects)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetProject)
			r.Delete("/", h.DeleteProject)
			r.Put("/name", h.RenameProject)
			r.Put("/settings", h.UpdateSettings)
			r.Put("/overlay-image", h.SetOverlayImage)
			r.Post("/frames", h.AddFrames)
			r.Post("/video", h.ImportVideo)
			r.Put("/frames/order", h.ReorderFrames)
			r.Delete("/frames/{frameID}", h.RemoveFrame)
			r.Post("/frames/{frameID}/move", h.MoveFrame)
			r.Put("/frames/{frameID}/delay", h.SetFrameDelay)
			r.Get("/frames/{frameID}/preview", h.GetPreview)
			r.Get("/history", h.GetHistory)
			r.Delete("/history", h.ClearHistory)
			r.Post("/undo", h.Undo)
			r.Post("/redo", h.Redo)
			r.Post("/renders", h.StartRender)
			r.Get("/renders", h.ListRenders)
		})
	})

	r.Route("/renders/{id}", func(r chi.Router) {
		r.Get("/", h.GetRender)
		r.Get("/output", h.GetRenderOutput)
		r.Delete("/output", h.DeleteRenderOutput)
		r.Post("/cancel", h.CancelRender)
	})

	return r
}
