package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizonomy/internal/auth"
	"quizonomy/internal/config"
	"quizonomy/internal/quiz"
	"quizonomy/pkg/cache"
	"quizonomy/pkg/database"
	"quizonomy/pkg/websocket"

	"github.com/lmittmann/tint"
	gormlogger "gorm.io/gorm/logger"
)

type Application struct {
	cfg    config.Config
	logger *slog.Logger
	hub    *websocket.Hub
	auth   *auth.Handler
	quiz   *quiz.Handler
	authn  auth.Authenticator
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: time.DateTime,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormLevel := gormlogger.Warn
	if cfg.LogLevel <= slog.LevelDebug {
		gormLevel = gormlogger.Info
	}
	db, err := database.NewPostgresDB(&database.Config{
		DSN:          cfg.DB.DSN(),
		MaxOpenConns: 20,
		MaxIdleConns: 5,
		LogLevel:     gormLevel,
	})
	if err != nil {
		return err
	}
	if err := database.Migrate(db, logger); err != nil {
		return err
	}

	redisCache := cache.NewRedisCache(cfg.RedisAddr)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		// Every cache call degrades to the database, so keep going.
		logger.Warn("redis unavailable", "addr", cfg.RedisAddr, "error", err)
	}

	hub := websocket.NewHub(logger, nil)
	go hub.Run(ctx)

	authRepo := auth.NewRepository(db)
	quizRepo := quiz.NewRepository(db)

	authn, err := auth.NewAuthenticator(cfg.Auth, authRepo, logger)
	if err != nil {
		return err
	}
	logger.Info("authentication configured", "scheme", cfg.Auth.Scheme)

	authService := auth.NewService(authRepo, logger)
	quizService := quiz.NewService(quizRepo, redisCache, logger)
	allocator := quiz.NewDailyAllocator(quizRepo, logger)
	scoring := quiz.NewScoringEngine(quizRepo, redisCache, hub, logger)

	app := &Application{
		cfg:    cfg,
		logger: logger,
		hub:    hub,
		authn:  authn,
		auth:   auth.NewHandler(authService, authn, logger),
		quiz:   quiz.NewHandler(quizService, allocator, scoring, logger),
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      app.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server shutdown gracefully")
	return nil
}
