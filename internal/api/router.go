package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/thinkinginmath/scimigo-co/internal/api/handlers"
	"github.com/thinkinginmath/scimigo-co/internal/api/middleware"
)

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux      *http.ServeMux
	app      *App
	sessions *handlers.SessionHandler
	recs     *handlers.RecommendationHandler
	reviews  *handlers.ReviewHandler
	mastery  *handlers.MasteryHandler
	tracks   *handlers.TrackHandler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(app *App) http.Handler {
	r := &Router{
		mux: http.NewServeMux(),
		app: app,
	}

	r.sessions = handlers.NewSessionHandler(app.Sessions, app.Producer)
	r.recs = handlers.NewRecommendationHandler(app.Personalization)
	r.reviews = handlers.NewReviewHandler(app.Personalization)
	r.mastery = handlers.NewMasteryHandler(app.Mastery)
	r.tracks = handlers.NewTrackHandler(app.Store, app.Catalog)

	r.registerRoutes()

	return r.buildMiddlewareChain(r.mux, app)
}

func (r *Router) registerRoutes() {
	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /ready", r.handleReady)

	// Sessions
	r.mux.HandleFunc("POST /v1/sessions", r.sessions.Start)
	r.mux.HandleFunc("GET /v1/sessions/{id}", r.sessions.Get)
	r.mux.HandleFunc("POST /v1/sessions/{id}/submissions", r.sessions.Submit)
	r.mux.HandleFunc("POST /v1/sessions/{id}/eval", r.sessions.Eval)
	r.mux.HandleFunc("POST /v1/sessions/{id}/complete", r.sessions.Complete)
	r.mux.HandleFunc("POST /v1/sessions/{id}/abandon", r.sessions.Abandon)

	// Personalization
	r.mux.HandleFunc("GET /v1/users/{user_id}/recommendations/next", r.recs.Next)
	r.mux.HandleFunc("POST /v1/users/{user_id}/outcomes", r.recs.RecordOutcome)
	r.mux.HandleFunc("GET /v1/users/{user_id}/reviews/due", r.reviews.Due)
	r.mux.HandleFunc("GET /v1/users/{user_id}/mastery", r.mastery.List)

	// Tracks
	r.mux.HandleFunc("GET /v1/tracks/{slug}", r.tracks.Get)
}

func (r *Router) buildMiddlewareChain(handler http.Handler, app *App) http.Handler {
	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(handler)

	// Apply rate limiting (skip in debug mode for easier development)
	if !app.Config.Debug {
		handler = middleware.RateLimitMiddleware(middleware.RateLimitConfig{
			Requests: app.Config.RateLimitRequests,
			Window:   time.Duration(app.Config.RateLimitWindow) * time.Second,
		})(handler)
	}

	handler = middleware.RequestID(handler)

	return handler
}

// Health check handlers
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	if r.app.Ping != nil {
		if err := r.app.Ping(req.Context()); err != nil {
			slog.Error("storage health check failed",
				"error", err,
				"request_id", middleware.GetRequestID(req.Context()),
			)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not ready",
				"checks": map[string]string{
					"storage": "unhealthy",
				},
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{
			"storage": "healthy",
		},
	})
}
