package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tandem-backend/internal/config"
	"tandem-backend/internal/geocode"
	"tandem-backend/internal/handlers"
	"tandem-backend/internal/identity"
	"tandem-backend/internal/middleware"
	"tandem-backend/internal/push"
	"tandem-backend/internal/repository"
	"tandem-backend/internal/scheduler"
	"tandem-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Document store schema
	docs := repository.NewDocumentStore(db)
	if err := docs.EnsureSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure document schema")
	}

	// Connect to reference store
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping redis")
	}
	defer rdb.Close()
	refs := repository.NewReferenceStore(rdb)

	// External collaborators
	provider := identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.APIKey)
	geocoder, err := geocode.NewMapsGeocoder(cfg.Maps.APIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create geocoder")
	}
	transport, err := push.NewAPNSTransport(push.APNSConfig{
		KeyPath:    cfg.APNS.KeyPath,
		KeyID:      cfg.APNS.KeyID,
		TeamID:     cfg.APNS.TeamID,
		Topic:      cfg.APNS.Topic,
		Production: cfg.APNS.Production,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create push transport")
	}

	// Initialize services
	sessionHub := services.NewSessionHub()
	notificationService := services.NewNotificationService(docs, transport)
	geodataService := services.NewGeodataService(docs, geocoder, time.Duration(cfg.Geodata.CacheTTL))
	matchService := services.NewMatchService(docs, notificationService, time.Duration(cfg.Match.Expiry))
	claimsService := services.NewClaimsService(provider, refs, docs, sessionHub)
	userService := services.NewUserService(docs, refs, provider, claimsService, geodataService, matchService)
	eventService := services.NewEventService(docs, geodataService, notificationService)

	// Initialize handlers
	verifier := middleware.NewVerifier(cfg.JWT.Secret)
	userHandler := handlers.NewUserHandler(userService)
	matchHandler := handlers.NewMatchHandler(matchService)
	tokenHandler := handlers.NewTokenHandler(notificationService)
	geodataHandler := handlers.NewGeodataHandler(geodataService)
	claimsHandler := handlers.NewClaimsHandler(claimsService)
	eventHandler := handlers.NewEventHandler(eventService)
	wsHandler := handlers.NewWebSocketHandler(sessionHub, verifier)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(verifier))
			r.Patch("/users/{user_id}", userHandler.UpdateUser)
			r.Delete("/users/{user_id}", userHandler.DeleteUser)
			r.Post("/matches", matchHandler.CreateMatch)
			r.Patch("/matches/{match_id}", matchHandler.UpdateMatch)
			r.Post("/events", eventHandler.CreateEvent)
			r.Patch("/events/{event_id}", eventHandler.UpdateEvent)
			r.Post("/events/{event_id}/participants", eventHandler.AddParticipant)
			r.Post("/push-tokens", tokenHandler.RegisterToken)
			r.Delete("/push-tokens", tokenHandler.RemoveToken)
			r.Post("/geodata", geodataHandler.PullGeodata)

			// Admin routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/debug-claims/{user_id}", claimsHandler.CreateDebugClaims)
				r.Patch("/debug-claims/{user_id}", claimsHandler.UpdateDebugClaims)
			})
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Background match expiry sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	scheduler.New("match-expiry", time.Duration(cfg.Match.SweepInterval), matchService.ExpireStale).Start(sweepCtx)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	stopSweep()

	// Shutdown HTTP server
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
