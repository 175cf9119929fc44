// @title                       PlaceQuest API
// @version                     1.0
// @description                 Authentication and session service for the PlaceQuest discovery app.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @securityDefinitions.apikey  RegistrationSecret
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/placequest/placequest-api/internal/api"
	mongostore "github.com/placequest/placequest-api/internal/infrastructure/db/mongo"
	redisstore "github.com/placequest/placequest-api/internal/infrastructure/db/redis"
	"github.com/placequest/placequest-api/internal/infrastructure/queue"
	"github.com/placequest/placequest-api/internal/pkg/config"
	"github.com/placequest/placequest-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "placequest-api",
		Env:     cfg.Env,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect to mongodb")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("ensure mongodb indexes")
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect to redis")
	}
	defer rdb.Close()

	if cfg.Auth.RegistrationSecret == "" {
		log.Warn().Msg("REGISTRATION_SECRET is not set; registration requests will be refused")
	}

	toucher := queue.NewTouchDispatcher(cfg.Auth.TouchWorkers, mongostore.NewTokenRepository(db), logger.Component("touch-dispatcher"))
	toucher.Start(ctx)

	e := api.NewRouter(api.Dependencies{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Toucher: toucher,
		Log:     log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
