package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/todo/api/handler"
	"github.com/fastygo/todo/internal/config"
	"github.com/fastygo/todo/internal/infrastructure/buffer"
	"github.com/fastygo/todo/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/todo/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/todo/internal/infrastructure/redis"
	"github.com/fastygo/todo/internal/middleware"
	"github.com/fastygo/todo/internal/router"
	"github.com/fastygo/todo/internal/services"
	"github.com/fastygo/todo/internal/services/lifecycle"
	"github.com/fastygo/todo/pkg/httpcontext"
	"github.com/fastygo/todo/pkg/logger"
	"github.com/fastygo/todo/pkg/mailer"
	"github.com/fastygo/todo/pkg/token"
	"github.com/fastygo/todo/repository"
	"github.com/fastygo/todo/repository/boltdb"
	"github.com/fastygo/todo/repository/postgres"
	redisRepo "github.com/fastygo/todo/repository/redis"
	"github.com/fastygo/todo/usecase"
	authUC "github.com/fastygo/todo/usecase/auth"
	profileUC "github.com/fastygo/todo/usecase/profile"
	taskUC "github.com/fastygo/todo/usecase/task"
)

type stores struct {
	users repository.UserRepository
	tasks repository.TaskRepository
	probe monitor.Probe
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, stop := manager.SignalContext(context.Background())
	defer stop()

	primary := openStores(appCtx, cfg, manager, zapLogger)

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.RegisterCloser("redis", redisClient.Close)

	outbox, err := buffer.Open(cfg.Buffer.Path, "activity_outbox")
	if err != nil {
		zapLogger.Fatal("failed to open activity outbox", zap.Error(err))
	}
	manager.RegisterCloser("outbox", outbox.Close)

	mon := monitor.New(cfg.Monitor.Interval, zapLogger, outbox.Size,
		primary.probe,
		monitor.Probe{Name: "redis", Timeout: 2 * time.Second, Ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}},
	)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.JWT.RefreshTTL)
	resetRepo := redisRepo.NewResetTokenRepository(redisClient)
	statsCache := redisRepo.NewStatisticsCache(redisClient)
	activityRepo := redisRepo.NewActivityRepository(redisClient, cfg.Activity.StreamMaxLen)

	relay := services.NewActivityRelay(
		outbox,
		mon.Component("redis"),
		activityRepo,
		zapLogger,
		services.RelayConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  cfg.Buffer.BatchSize,
			MaxRetries: cfg.Buffer.MaxRetry,
			MaxAge:     time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
		},
	)
	relay.Start()
	manager.Register("activity_relay", func(ctx context.Context) error {
		relay.Stop(ctx)
		return nil
	})
	activityBridge := services.NewActivityBridge(relay)

	tokens := token.NewManager(token.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.AccessTTL,
	})

	taskOpts := []taskUC.Option{taskUC.WithLoadTimeout(cfg.Context.RequestTimeout)}
	if cfg.Stats.CacheEnabled {
		taskOpts = append(taskOpts, taskUC.WithStatisticsCache(statsCache, cfg.Stats.CacheTTL))
	}
	taskUseCase := taskUC.New(primary.tasks, activityBridge, zapLogger, taskOpts...)
	authUseCase := authUC.New(
		primary.users,
		sessionRepo,
		resetRepo,
		tokens,
		mailer.NewLogMailer(cfg.Mail.From, zapLogger),
		authUC.Config{
			BcryptCost: cfg.Auth.BcryptCost,
			RefreshTTL: cfg.JWT.RefreshTTL,
			ResetTTL:   cfg.Auth.ResetTTL,
			ResetURL:   cfg.Auth.ResetURL,
		},
		zapLogger,
	)
	profileUseCase := profileUC.New(primary.users, zapLogger)

	dispatcher := usecase.NewDispatcher()
	taskUseCase.RegisterBatchCommands(dispatcher)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:     apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Profile:  apiHandler.NewProfileHandler(profileUseCase, authUseCase, ctxAdapter, zapLogger),
		Task:     apiHandler.NewTaskHandler(taskUseCase, dispatcher, ctxAdapter, zapLogger),
		Activity: apiHandler.NewActivityHandler(activityRepo, cfg.Activity.FeedLimit, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	r := router.New(handlers, middleware.JWTAuth(tokens, zapLogger))

	server := &fasthttp.Server{
		Handler:            middleware.AccessLog(zapLogger)(r.Handler),
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		Concurrency:        cfg.HTTP.MaxConn,
		MaxRequestBodySize: cfg.HTTP.MaxBodySize,
		Name:               cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("storage", cfg.Storage.Driver))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Error("server stopped unexpectedly", zap.Error(err))
			stop()
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

// openStores connects the task and user storage selected by STORAGE_DRIVER.
func openStores(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, zapLogger *zap.Logger) stores {
	switch cfg.Storage.Driver {
	case config.StorageDriverBolt:
		store, err := boltdb.Open(cfg.Storage.BoltPath)
		if err != nil {
			zapLogger.Fatal("failed to open bolt store", zap.Error(err))
		}
		manager.RegisterCloser("bolt", store.Close)
		zapLogger.Info("using embedded bolt storage", zap.String("path", cfg.Storage.BoltPath))
		return stores{
			users: boltdb.NewUserRepository(store),
			tasks: boltdb.NewTaskRepository(store),
			probe: monitor.Probe{Name: "bolt", Ping: func(context.Context) error { return store.Ping() }},
		}
	default:
		if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
			zapLogger.Fatal("migrations failed", zap.Error(err))
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		manager.Register("postgres", func(context.Context) error {
			pool.Close()
			return nil
		})
		return stores{
			users: postgres.NewUserRepository(pool),
			tasks: postgres.NewTaskRepository(pool),
			probe: monitor.Probe{Name: "postgresql", Ping: pool.Ping},
		}
	}
}
