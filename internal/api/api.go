package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"finguard/pkg/finguard"
)

// NewRouter builds the HTTP API router.
func NewRouter(core *finguard.Core) http.Handler {
	logger := slog.Default()
	if core != nil {
		logger = core.Logger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, logger: logger}

	r.Get("/api/health", h.health)

	// Dashboard
	r.Get("/api/analysis/{symbol}", h.getAnalysis)
	r.Get("/api/risk/{symbol}", h.getRisk)
	r.Get("/api/sentiment/{symbol}", h.getSentiment)
	r.Get("/api/history", h.getHistory)

	// Chat
	r.Route("/api/chat/{sessionID}", func(r chi.Router) {
		r.Get("/", h.getChat)
		r.Post("/", h.postChat)
		r.Delete("/", h.clearChat)
	})

	return r
}

type handler struct {
	core   *finguard.Core
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
