package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"genworker/internal/http/handlers"
)

func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)

	// Health
	r.Get("/", app.Root)
	r.Get("/v1/healthz", app.Health)

	// Job intake (pull and push modes) and status polling
	r.Post("/process", app.Process)
	r.Get("/v1/jobs/{id}", app.JobStatus)

	return r
}
