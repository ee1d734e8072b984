package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	appmw "server/internal/middleware"
)

// NewRouter wires the public API surface. Generation routes sit behind the
// per-client rate limit; health does not.
func NewRouter(app *handlers.App, ratePerMin int) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		if ratePerMin > 0 {
			r.Use(appmw.RateLimit(ratePerMin, time.Minute))
		}
		r.Post("/detect-emotion", app.DetectEmotion)
		r.Post("/edit-image", app.EditImage)
		r.Post("/generate-image", app.GenerateImage)
		r.Get("/generations", app.Generations)
	})

	return r
}
