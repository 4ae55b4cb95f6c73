package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lgulliver/lodestone-backend/cmd/backend/routes"
	"github.com/lgulliver/lodestone-backend/internal/backend"
	"github.com/lgulliver/lodestone-backend/internal/common"
	"github.com/lgulliver/lodestone-backend/internal/metrics"
	"github.com/lgulliver/lodestone-backend/internal/middleware"
	"github.com/lgulliver/lodestone-backend/internal/session"
	"github.com/lgulliver/lodestone-backend/internal/storage"
	"github.com/lgulliver/lodestone-backend/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.LoadFromEnv()
	cfg.Logging.SetupLogging()

	log.Info().Msg("Starting registry backend")

	blobStorage, err := storage.NewStorageFactory(&cfg.Storage).CreateStorage()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	store, closeStore, err := newSessionStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Sessions.Backend).Msg("Failed to initialize session store")
	}
	defer closeStore()

	registry := session.NewRegistry(store, blobStorage)
	svc := backend.NewService(registry, blobStorage)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      setupRouter(svc),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	} else {
		log.Info().Msg("Server shutdown complete")
	}
}

// newSessionStore builds the configured session backend and a func releasing its connections
func newSessionStore(cfg *config.Config) (session.Store, func(), error) {
	switch cfg.Sessions.Backend {
	case "memory", "":
		return session.NewMemoryStore(), func() {}, nil
	case "redis":
		cache, err := common.NewCache(&cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(cache.Client(), cfg.Sessions.KeyPrefix), func() { cache.Close() }, nil
	case "database":
		db, err := common.NewDatabase(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store, err := session.NewDatabaseStore(db.DB)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session backend: %s", cfg.Sessions.Backend)
	}
}

func setupRouter(svc *backend.Service) *gin.Engine {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger("backend"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "lodestone-backend",
			"time":    time.Now().UTC(),
		})
	})

	router.GET("/metrics", metrics.Handler())

	routes.BackendRoutes(router, svc)
	routes.AdminRoutes(router, svc)

	return router
}
