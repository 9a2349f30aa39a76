package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"

	"github.com/em32/mlcatalog/control/handlers"
)

// ServerConfig holds configuration for the control server.
type ServerConfig struct {
	Port       int
	ConfigPath string
	Version    string
}

// Server is the control HTTP server: the JSON API plus static serving of
// the rendered site.
type Server struct {
	config     *ServerConfig
	httpServer *http.Server
	router     *mux.Router
	handlers   *handlers.Handlers
	startTime  time.Time
}

// NewServer creates a control server.
func NewServer(config *ServerConfig) (*Server, error) {
	router := mux.NewRouter()

	startTime := time.Now()
	version := config.Version
	if version == "" {
		version = "dev"
	}
	h, err := handlers.NewHandlers(config.ConfigPath, startTime, version)
	if err != nil {
		return nil, fmt.Errorf("failed to create handlers: %w", err)
	}

	server := &Server{
		config:    config,
		router:    router,
		handlers:  h,
		startTime: startTime,
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      recoveryMiddleware(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handlers.Health).Methods("GET")
	api.HandleFunc("/status", s.handlers.Status).Methods("GET")
	api.HandleFunc("/catalog", s.handlers.Catalog).Methods("GET")
	api.HandleFunc("/validate", s.handlers.Validate).Methods("POST")
	api.HandleFunc("/events", s.handlers.EventsSocket).Methods("GET")

	// The rendered site is served directly, so the control server doubles
	// as a local preview of what gets published.
	outputDir := s.handlers.Config().Catalog.OutputDir
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(outputDir)))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Control server listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.handlers.Close(); err != nil {
		log.Printf("Error closing handlers: %v", err)
	}
	return s.httpServer.Shutdown(ctx)
}

// recoveryMiddleware recovers from handler panics and returns a JSON error.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC: %v\n%s", err, debug.Stack())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)

				response := map[string]interface{}{
					"error":   "Internal server error",
					"message": "A panic occurred while processing the request",
				}
				if encErr := json.NewEncoder(w).Encode(response); encErr != nil {
					w.Write([]byte(`{"error":"Internal server error"}`))
				}
			}
		}()
		next.ServeHTTP(w, r)
	})
}
