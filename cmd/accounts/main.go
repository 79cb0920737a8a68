package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/loomcms/accounts/internal/auth"
	"github.com/loomcms/accounts/internal/config"
	"github.com/loomcms/accounts/internal/database"
	"github.com/loomcms/accounts/internal/identity"
	"github.com/loomcms/accounts/internal/redis"
	"github.com/loomcms/accounts/internal/server"
	"github.com/loomcms/accounts/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := database.NewPostgresDB(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}

	store := identity.NewStore(zapLogger, db)
	if err := store.AutoMigrate(); err != nil {
		zapLogger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	// Login lockout degrades gracefully when redis is unavailable.
	var lockout *auth.Lockout
	redisClient, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		zapLogger.Warn("Redis unavailable, login lockout disabled", zap.Error(err))
	} else {
		lockout = auth.NewLockout(redisClient, cfg.Auth.MaxFailedAttempts, cfg.Auth.LockoutDuration)
	}

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authSvc := auth.NewService(zapLogger, store, issuer, lockout)

	srv := server.NewServer(zapLogger, store, authSvc, issuer, cfg.Auth.ResetTokenTTL)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go database.ReportPoolStatsEvery(ctx, db, 30*time.Second)

	go func() {
		zapLogger.Info("accounts service listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	if redisClient != nil {
		redisClient.Close()
	}
	zapLogger.Info("accounts service stopped")
}
