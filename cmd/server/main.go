package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/efreeman/warfront/api/internal/auth"
	"github.com/efreeman/warfront/api/internal/config"
	"github.com/efreeman/warfront/api/internal/handler"
	"github.com/efreeman/warfront/api/internal/logger"
	"github.com/efreeman/warfront/api/internal/middleware"
	"github.com/efreeman/warfront/api/internal/repository/postgres"
	redisrepo "github.com/efreeman/warfront/api/internal/repository/redis"
	"github.com/efreeman/warfront/api/internal/service"
	"github.com/efreeman/warfront/api/pkg/conquest"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().Str("databaseURL", cfg.DatabaseURL).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Enable Redis keyspace notifications for phase timer expiry events.
	if err := redisClient.Underlying().ConfigSet(context.Background(), "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (phase announcements fall back to polling)")
	}

	// Repos
	userRepo := postgres.NewUserRepo(db)
	playerRepo := postgres.NewPlayerRepo(db)
	snapshotRepo := postgres.NewSnapshotRepo(db)
	battleRepo := postgres.NewBattleRepo(db)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	googleOAuth := auth.NewGoogleOAuth(
		os.Getenv("GOOGLE_CLIENT_ID"),
		os.Getenv("GOOGLE_CLIENT_SECRET"),
		os.Getenv("GOOGLE_REDIRECT_URL"),
	)

	// Policy clocks anchored in Redis so phases survive restarts.
	clocks := service.NewPolicyClocks(
		loadAnchor(redisClient, "weather"),
		loadAnchor(redisClient, "warpeace"),
	)

	// World state: restore from the latest snapshot or generate a fresh map.
	world, err := service.LoadWorld(context.Background(), snapshotRepo, cfg.MapSeed, cfg.MapRegions)
	if err != nil {
		log.Fatal().Err(err).Msg("World load failed")
	}

	// WebSocket hub
	wsHub := handler.NewHub()

	// Scheduler and phase watcher
	scheduler := service.NewScheduler(world, clocks, wsHub, snapshotRepo, battleRepo, playerRepo, redisClient, service.SchedulerConfig{
		TickInterval:     cfg.TickInterval,
		SnapshotInterval: cfg.SnapshotInterval,
		IncomeInterval:   cfg.IncomeInterval,
		HealInterval:     cfg.HealInterval,
	})
	policyWatcher := service.NewPolicyWatcher(redisClient.Underlying(), redisClient, clocks, wsHub)

	// Handlers
	authHandler := handler.NewAuthHandler(googleOAuth, jwtMgr, userRepo)
	userHandler := handler.NewUserHandler(userRepo)
	worldHandler := handler.NewWorldHandler(scheduler, clocks, redisClient, battleRepo, playerRepo, userRepo)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr, scheduler)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth (public)
	mux.HandleFunc("GET /auth/google/login", authHandler.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)
	mux.HandleFunc("POST /auth/refresh", authHandler.RefreshToken)
	mux.HandleFunc("GET /auth/dev", authHandler.DevLogin)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /users/me", userHandler.GetMe)
	api.HandleFunc("PATCH /users/me", userHandler.UpdateMe)
	api.HandleFunc("GET /users/{id}", userHandler.GetUser)
	api.HandleFunc("GET /world", worldHandler.GetWorld)
	api.HandleFunc("GET /policy", worldHandler.GetPolicy)
	api.HandleFunc("GET /catalog", worldHandler.GetCatalog)
	api.HandleFunc("POST /join", worldHandler.Join)
	api.HandleFunc("GET /leaderboard", worldHandler.GetLeaderboard)
	api.HandleFunc("GET /battles", worldHandler.GetMyBattles)
	api.HandleFunc("GET /players", worldHandler.ListPlayers)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Run(ctx)
	go policyWatcher.Start(ctx)

	// Bot players spread across the factions.
	factions := conquest.AllFactions()
	for i := 0; i < cfg.BotPlayers; i++ {
		go service.NewBot(i, factions[i%len(factions)], scheduler).Run(ctx)
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}

// loadAnchor fetches a policy clock anchor, setting it to now on first boot.
// SetClockAnchor is a set-if-absent, so concurrent servers agree.
func loadAnchor(cache *redisrepo.Client, name string) time.Time {
	ctx := context.Background()
	if err := cache.SetClockAnchor(ctx, name, time.Now()); err != nil {
		log.Warn().Err(err).Str("clock", name).Msg("Failed to set clock anchor")
	}
	anchor, err := cache.GetClockAnchor(ctx, name)
	if err != nil || anchor.IsZero() {
		log.Warn().Err(err).Str("clock", name).Msg("Falling back to local clock anchor")
		return time.Now()
	}
	return anchor
}
