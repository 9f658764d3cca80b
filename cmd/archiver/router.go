package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/archiver/internal/api"
	apiMiddleware "github.com/phrazzld/archiver/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	queueHandler := api.NewQueueHandler(app.repo, app.logger)
	relayHandler := api.NewRelayHandler(app.relay, app.logger)

	// Mutating routes are protected only when an operator secret is configured.
	protect := func(r chi.Router) chi.Router { return r }
	if app.jwtService != nil {
		authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
		protect = func(r chi.Router) chi.Router { return r.With(authMiddleware.Authenticate) }
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/queue", queueHandler.ListQueue)
		r.Get("/failed", queueHandler.ListFailed)
		r.Get("/status", queueHandler.Status)
		r.Get("/relay", relayHandler.Status)

		protect(r).Post("/download", queueHandler.Enqueue)
		protect(r).Delete("/queue/{id}", queueHandler.DeleteQueueItem)
		protect(r).Post("/failed/{id}/retry", queueHandler.RetryFailed)
		protect(r).Delete("/failed/{id}", queueHandler.DeleteFailed)
		protect(r).Post("/relay/drain", relayHandler.Drain)
	})

	// The observer registers absolute /api/console paths.
	app.observer.Routes(r)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
