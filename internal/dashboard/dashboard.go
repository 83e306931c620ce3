// Package dashboard serves the local web view of the podcast site:
// episode browsing, the file gallery, and a websocket chat backed by the
// session store and the assistant.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/podline/podline/internal/api"
	"github.com/podline/podline/internal/assistant"
	"github.com/podline/podline/internal/chat"
)

// Config holds dashboard server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Dashboard is the local web server. The assistant may be nil when the
// backend has no chat support; chat requests then return errors while
// the rest of the dashboard keeps working.
type Dashboard struct {
	cfg        Config
	api        *api.Client
	store      *chat.Store
	assistant  assistant.Completer
	router     chi.Router
	httpServer *http.Server
}

// New creates a Dashboard over the gateway client and session store.
func New(cfg Config, client *api.Client, store *chat.Store, completer assistant.Completer) *Dashboard {
	d := &Dashboard{
		cfg:       cfg,
		api:       client,
		store:     store,
		assistant: completer,
	}
	d.router = d.buildRouter()
	return d
}

func (d *Dashboard) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if d.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	d.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/episodes", d.handleEpisodes)
	r.Get("/api/episodes/{id}", d.handleEpisode)
	r.Get("/api/files", d.handleFiles)
	r.Get("/api/sessions", d.handleSessions)
	r.Get("/api/sessions/{id}", d.handleSession)
	r.Delete("/api/sessions/{id}", d.handleDeleteSession)
	r.Get("/api/stats", d.handleStats)
	r.Get("/ws/chat", d.handleWebSocket)
}

// Router returns the chi router for tests and embedding.
func (d *Dashboard) Router() chi.Router { return d.router }

// Start begins listening on the configured port.
func (d *Dashboard) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", d.cfg.Port)
	d.httpServer = &http.Server{
		Addr:              addr,
		Handler:           d.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("dashboard listening on http://%s", addr)
	return d.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (d *Dashboard) Shutdown(ctx context.Context) error {
	if d.httpServer != nil {
		return d.httpServer.Shutdown(ctx)
	}
	return nil
}
