package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/viewtube/account-system/docs"
	"github.com/viewtube/account-system/internal/api"
	"github.com/viewtube/account-system/internal/infrastructure/config"
	mongodb "github.com/viewtube/account-system/internal/infrastructure/db/mongo"
	redisdb "github.com/viewtube/account-system/internal/infrastructure/db/redis"
	"github.com/viewtube/account-system/internal/infrastructure/storage"
	"github.com/viewtube/account-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title        ViewTube Account System API
// @version      1.0
// @description  Registration, session and channel-profile API for the video platform.
// @BasePath     /api/v1
func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("index bootstrap failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		_ = rdb.Close()
	}()

	media, err := storage.Connect(ctx, storage.Config{
		Endpoint:      cfg.Minio.Endpoint,
		AccessKey:     cfg.Minio.AccessKey,
		SecretKey:     cfg.Minio.SecretKey,
		Bucket:        cfg.Minio.Bucket,
		Region:        cfg.Minio.Region,
		UseSSL:        cfg.Minio.UseSSL,
		PublicBaseURL: cfg.Minio.PublicBaseURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("media store connection failed")
	}

	e := api.NewRouter(db, rdb, media, cfg, log)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
