package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yoockh/doclingate/config"
	"github.com/yoockh/doclingate/internal/api/handlers"
	"github.com/yoockh/doclingate/internal/api/middleware"
	"github.com/yoockh/doclingate/internal/api/routes"
	"github.com/yoockh/doclingate/internal/cache"
	"github.com/yoockh/doclingate/internal/logger"
	"github.com/yoockh/doclingate/internal/providers/docling"
	mongorepo "github.com/yoockh/doclingate/internal/repositories/mongo"
	pgrepo "github.com/yoockh/doclingate/internal/repositories/postgres"
	"github.com/yoockh/doclingate/internal/services"
	"github.com/yoockh/doclingate/internal/storage"
	"github.com/yoockh/doclingate/internal/workers"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	dcfg, err := config.LoadDoclingConfig()
	if err != nil {
		log.WithError(err).Fatal("docling config")
	}
	scfg, err := config.LoadStorageConfig()
	if err != nil {
		log.WithError(err).Fatal("storage config")
	}
	srvCfg, err := config.LoadServerConfig()
	if err != nil {
		log.WithError(err).Fatal("server config")
	}
	presets, err := config.LoadPresets(dcfg.PresetFile)
	if err != nil {
		log.WithError(err).Fatal("presets")
	}

	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	log.Info("PostgreSQL connected")

	var tasks mongorepo.TaskRepository
	switch err := config.InitMongo(); {
	case err == nil:
		if err := config.EnsureMongoIndexes(); err != nil {
			log.WithError(err).Warn("mongo indexes")
		}
		tasks = mongorepo.NewTaskRepo(config.MongoDatabase())
		log.Info("MongoDB connected")
	case errors.Is(err, config.ErrNotConfigured):
		log.Info("MONGO_URI not set; task tracking disabled")
	default:
		log.WithError(err).Fatal("MongoDB init error")
	}

	redisOn := false
	switch err := config.InitRedis(); {
	case err == nil:
		redisOn = true
		log.Info("Redis connected")
	case errors.Is(err, config.ErrNotConfigured):
		log.Info("REDIS_ADDR not set; status cache and task watcher disabled")
	default:
		log.WithError(err).Fatal("Redis init error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, scfg)
	if err != nil {
		log.WithError(err).Fatal("object storage init error")
	}
	defer closeStore()

	client := docling.NewClient(dcfg.BaseURL, dcfg.APIKey, dcfg.Timeout)
	conversions := services.NewConversionService(client, store, pgrepo.NewConversionRepo(config.PostgresDB), presets[config.DefaultPreset])

	deps := services.TaskDeps{
		Docling:     client,
		Conversions: conversions,
		Tasks:       tasks,
		StatusTTL:   dcfg.StatusCacheTTL,
		Logger:      log,
	}
	if redisOn {
		deps.Cache = cache.NewRedisCache(config.RedisClient, "docling:")
		deps.Queue = workers.RedisTaskQueue{Redis: config.RedisClient}

		pool := &workers.TaskWatcherPool{
			Redis: config.RedisClient,
			Watcher: &workers.TaskWatcher{
				Docling:  client,
				Tasks:    tasks,
				Events:   workers.RedisEvents{Redis: config.RedisClient},
				Interval: srvCfg.WatchInterval,
				MaxWait:  srvCfg.WatchMax,
				Logger:   log,
			},
			NumWorkers: srvCfg.WatchWorkers,
			Logger:     log,
		}
		if err := pool.Start(ctx); err != nil {
			log.WithError(err).Fatal("task watcher")
		}
	}
	taskSvc := services.NewTaskService(deps)

	presetNames := make([]string, 0, len(presets))
	for name := range presets {
		presetNames = append(presetNames, name)
	}
	slices.Sort(presetNames)

	if strings.EqualFold(os.Getenv("GIN_MODE"), gin.ReleaseMode) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Convert: handlers.NewConvertHandler(conversions, taskSvc, srvCfg.MaxUploadBytes),
		History: handlers.NewHistoryHandler(services.NewHistoryService(pgrepo.NewConversionRepo(config.PostgresDB))),
		WS:      handlers.NewWSHandler(taskSvc, config.RedisClient),
		System:  handlers.NewSystemHandler(handlers.Features{
			StorageDriver: scfg.Driver,
			TaskTracking:  tasks != nil,
			StatusCache:   redisOn,
			TaskWatcher:   redisOn,
			Presets:       presetNames,
		}),
	})

	server := &http.Server{
		Addr:              ":" + srvCfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", srvCfg.Port).Info("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	if config.RedisClient != nil {
		_ = config.RedisClient.Close()
	}
	if config.MongoClient != nil {
		_ = config.MongoClient.Disconnect(shutdownCtx)
	}
	log.Info("server exited")
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, func(), error) {
	switch cfg.Driver {
	case config.StorageS3:
		s, err := storage.NewS3Store(storage.S3Config{
			Endpoint:      cfg.Endpoint,
			Region:        cfg.Region,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			Bucket:        cfg.Bucket,
			UseSSL:        cfg.UseSSL,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		return s, func() {}, err
	default:
		s, err := storage.NewGCSStore(ctx, cfg.Bucket, cfg.CredentialsFile, cfg.PublicBaseURL)
		if err != nil {
			return nil, func() {}, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}
