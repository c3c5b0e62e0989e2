package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"bookcraft-backend/internal/handlers"
	"bookcraft-backend/internal/metrics"
	"bookcraft-backend/internal/middleware"
	"bookcraft-backend/internal/websocket"
)

// New builds the studio API.
func New(
	jwtAuth *middleware.JWTAuth,
	apiLimiter *middleware.RateLimiter,
	chatHandler *handlers.ChatHandler,
	documentHandler *handlers.DocumentHandler,
	wsHub *websocket.Hub,
	frontendURL string,
	requestTimeout time.Duration,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))
	r.Use(middleware.Metrics)

	mountOps(r)

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Chat Routes ────
		r.Route("/chat", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(apiLimiter.Middleware)
			r.Use(chimiddleware.Timeout(requestTimeout))
			r.Post("/messages", chatHandler.SendMessage)
			r.Get("/history", chatHandler.GetHistory)
			r.Delete("/history", chatHandler.ClearHistory)
			r.Post("/save", chatHandler.SaveHistory)
			r.Post("/load", chatHandler.LoadHistory)
		})

		// ──── Document Routes ────
		r.Route("/document", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(apiLimiter.Middleware)
			r.Use(chimiddleware.Timeout(requestTimeout))
			r.Get("/", documentHandler.Get)
			r.Put("/", documentHandler.Update)
			r.Patch("/settings", documentHandler.PatchSettings)
			r.Post("/settings/reset", documentHandler.ResetSettings)
			r.Post("/format", documentHandler.Format)
			r.Post("/suggest-style", documentHandler.SuggestStyle)
			r.Post("/cover-descriptions", documentHandler.CoverDescriptions)
			r.Post("/generate", documentHandler.Generate)
			r.Post("/import", documentHandler.Import)
			r.Get("/import/formats", documentHandler.ImportFormats)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}

// NewAIBackend builds the reference AI backend.
func NewAIBackend(h *handlers.AIBackendHandler, frontendURL string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))
	r.Use(middleware.Metrics)

	mountOps(r)

	r.Group(func(r chi.Router) {
		// Model calls can run for minutes
		r.Use(chimiddleware.Timeout(5 * time.Minute))
		r.Post("/chat", h.Chat)
		r.Post("/format-script-with-ai", h.FormatScript)
		r.Post("/suggest-style", h.SuggestStyle)
		r.Post("/generate-cover-descriptions", h.CoverDescriptions)
		r.Post("/generate-book", h.GenerateBook)
	})
	r.Get("/download-pdf/{file}", h.Download)

	return r
}

func mountOps(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
}
