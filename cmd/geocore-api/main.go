package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/common/database"
	"github.com/kmallmaperez/geocore/common/logger"
	"github.com/kmallmaperez/geocore/common/mqtt"
	redisutil "github.com/kmallmaperez/geocore/common/redis"
	"github.com/kmallmaperez/geocore/internal/config"
	"github.com/kmallmaperez/geocore/internal/events"
	httpapi "github.com/kmallmaperez/geocore/internal/http"
	"github.com/kmallmaperez/geocore/internal/repository"
	"github.com/kmallmaperez/geocore/internal/service"
	"github.com/kmallmaperez/geocore/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres, or in-memory repositories when the DB is disabled or down.
	var (
		db        *sql.DB
		records   repository.RecordsRepository
		users     repository.UsersRepository
		overrides repository.StatusOverridesRepository
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for geocore-api")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory", zap.Error(err))
		}
	}
	if db != nil {
		if cfg.AutoMigrate {
			if err := repository.ApplySchema(ctx, db); err != nil {
				log.Fatal("apply schema", zap.Error(err))
			}
		}
		records = repository.NewPostgresRecordsRepository(db)
		users = repository.NewPostgresUsersRepository(db)
		overrides = repository.NewPostgresStatusOverridesRepository(db)
	} else {
		records = repository.NewMemoryRecordsRepository()
		users = repository.NewMemoryUsersRepository()
		overrides = repository.NewMemoryStatusOverridesRepository()
	}

	// Redis backs the summary cache and the cross-process record lock.
	var (
		redisClient *redis.Client
		kv          store.KV     = store.NewMemoryKV()
		locker      store.Locker = store.NewMemoryLocker()
	)
	if cfg.RedisEnabled {
		if c, err := redisutil.Connect(ctx, &cfg.Redis); err == nil {
			redisClient = c
			kv = store.NewRedisKV(c)
			locker = store.NewRedisLocker(c, "geocore:lock:", 2*cfg.Records.LockTimeout)
			log.Info("Redis enabled for geocore-api", zap.String("addr", cfg.Redis.Addr))
		} else {
			log.Warn("Redis enabled but ping failed, using in-process cache and locks", zap.Error(err))
		}
	}

	var (
		publisher  events.Publisher = events.NopPublisher{}
		mqttClient *mqtt.Client
	)
	switch cfg.Events.Sink {
	case "redis":
		if redisClient == nil {
			log.Warn("events sink redis requires Redis, events disabled")
			break
		}
		publisher = events.NewStreamPublisher(redisClient, cfg.Events.Stream, cfg.Events.StreamMaxLen)
	case "mqtt":
		c, err := mqtt.NewClient(&cfg.Events.MQTT)
		if err != nil {
			log.Warn("MQTT connection failed, events disabled", zap.Error(err))
			break
		}
		mqttClient = c
		publisher = events.NewMQTTPublisher(c, cfg.Events.TopicPrefix)
	case "", "none":
	default:
		log.Warn("unknown events sink, events disabled", zap.String("sink", cfg.Events.Sink))
	}
	publisher = events.NewLoggingPublisher(publisher, log)

	summarySvc := service.NewSummaryService(records, overrides, kv, log, service.SummaryServiceOptions{
		CacheTTL:             cfg.Summary.CacheTTL,
		IdealMetresPerRigDay: cfg.Summary.IdealMetresPerRigDay,
	})
	recordSvc := service.NewRecordService(records, locker, publisher, summarySvc, log, service.RecordServiceOptions{
		EditWindowDays: cfg.Records.UserEditWindowDays,
		LockTimeout:    cfg.Records.LockTimeout,
	})
	authSvc := service.NewAuthService(users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)
	userSvc := service.NewUserService(users, log)
	exportSvc := service.NewExportService(records, summarySvc, log)
	notifier := service.NewWebhookNotifier(cfg.Report.WebhookURL, cfg.Report.Timeout, log)

	if cfg.Auth.SeedAdmin {
		created, err := userSvc.EnsureAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		if err != nil {
			log.Fatal("seed admin", zap.Error(err))
		}
		if created {
			log.Info("seeded admin account", zap.String("email", cfg.Auth.AdminEmail))
		}
	}

	authn := httpapi.NewAuthenticator(authSvc, log)
	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(authSvc, log), authn)
	router.RegisterUserRoutes(httpapi.NewUsersHandler(userSvc, log), authn)
	router.RegisterTableRoutes(httpapi.NewTablesHandler(recordSvc, summarySvc, notifier, log), authn)
	router.RegisterTransferRoutes(httpapi.NewTransferHandler(recordSvc, exportSvc, log), authn)

	srv := service.NewServer(cfg.HTTP.Addr, router, cfg.HTTP.ReadTimeout, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("http server stopped", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	_ = database.Close(db)
}
