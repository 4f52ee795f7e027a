package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/velotracker/apiserver/config"
	"github.com/velotracker/apiserver/internal/db"
	"github.com/velotracker/apiserver/internal/handlers"
	"github.com/velotracker/apiserver/internal/logger"
	"github.com/velotracker/apiserver/internal/mail"
	"github.com/velotracker/apiserver/internal/oauth"
	"github.com/velotracker/apiserver/internal/services"
	"github.com/velotracker/apiserver/internal/store"
	"github.com/velotracker/apiserver/internal/token"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
}

// New constructs a Server with all collaborators built from config.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logger.New(0)

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := token.New(cfg.JWTSecret)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	verifier, err := oauth.NewGoogleVerifier(cfg.GoogleClientID)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	mailer, err := mail.NewSMTPMailer(cfg.SMTP)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	rideRepo := store.NewRideRepository(dbConn)

	userService := services.NewUserService(userRepo)
	rideService := services.NewRideService(rideRepo)

	userHandler := handlers.NewUserHandler(userService, tokens, verifier, mailer, log)
	authMiddleware := handlers.RequireAuth(tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/users", func(r chi.Router) {
		handlers.UserRouter(r, userHandler, authMiddleware)
	})
	router.Route("/api/rides", func(r chi.Router) {
		handlers.RideRouter(r, rideService, log, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
