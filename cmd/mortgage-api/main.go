// cmd/mortgage-api/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"mortgage-funnel/internal/admin"
	"mortgage-funnel/internal/application"
	awsclients "mortgage-funnel/internal/common/aws"
	"mortgage-funnel/internal/common/camunda"
	"mortgage-funnel/internal/common/config"
	"mortgage-funnel/internal/common/database"
	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/common/observability"
	"mortgage-funnel/internal/common/zoho"
	"mortgage-funnel/internal/landing"
	"mortgage-funnel/internal/notify"
	"mortgage-funnel/internal/ratelimit"
	"mortgage-funnel/internal/search"
	"mortgage-funnel/internal/server"
	"mortgage-funnel/internal/system"

	nl "mortgage-funnel/internal/workers/lead/notify-lead"
	slc "mortgage-funnel/internal/workers/lead/sync-lead-crm"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting mortgage API...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.AutoMigrate {
		version, err := database.Migrate(cfg.Database.Postgres.GetURL())
		if err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
		zapLog.Info("Migrations applied", zap.Uint("version", version))
	}

	checks := []system.Check{{Name: "postgres", Pinger: pg}}

	// --- Rate limit counter ---
	var counter ratelimit.Counter = ratelimit.NewMemoryCounter()
	if cfg.Landing.RateLimitBackend == "redis" {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, rate limiting per process", zap.Error(err))
		} else {
			defer rdb.Close()
			counter = ratelimit.NewRedisCounter(rdb.GetClient())
			checks = append(checks, system.Check{Name: "redis", Pinger: rdb})
			zapLog.Info("Redis connected successfully")
		}
	}

	repo := application.NewRepository(pg.DB, log)

	// --- Elasticsearch ---
	var (
		searcher admin.Searcher
		opts     []landing.Option
	)
	if cfg.Database.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch client failed", zap.Error(err))
		}
		index := search.NewIndex(es.Client, cfg.Database.Elasticsearch.Index, log)
		if err := index.EnsureIndex(ctx); err != nil {
			zapLog.Warn("search index unavailable, admin search uses SQL", zap.Error(err))
		}
		searcher = index
		opts = append(opts, landing.WithIndexer(index))
		checks = append(checks, system.Check{Name: "elasticsearch", Pinger: es})
	}

	// --- Notifications ---
	var ses awsclients.SESService
	var sns awsclients.SNSService
	if cfg.Integrations.AWS.SES.Enabled || cfg.Integrations.AWS.SNS.Enabled {
		clients, err := awsclients.NewClients(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Warn("AWS clients unavailable, notifications disabled", zap.Error(err))
		} else {
			if cfg.Integrations.AWS.SES.Enabled {
				ses = clients.SES
			}
			if cfg.Integrations.AWS.SNS.Enabled {
				sns = clients.SNS
			}
		}
	}

	crm := zoho.NewCRMClient(
		cfg.Integrations.Zoho.APIKey,
		cfg.Integrations.Zoho.AuthToken,
		cfg.Integrations.Zoho.BaseURL,
	)
	notifier := notify.NewNotifier(notify.ConfigFrom(cfg.Landing), ses, sns, crm, repo, log)
	inline := notify.NewInlineDispatcher(notifier, log)

	// --- Workflow engine ---
	var workers []worker.JobWorker
	if cfg.Camunda.Enabled {
		zeebe, err := camunda.NewClient(cfg.Camunda)
		if err != nil {
			zapLog.Warn("zeebe unavailable, notifying inline", zap.Error(err))
			opts = append(opts, landing.WithDispatcher(inline))
		} else {
			defer zeebe.Close()
			if n, err := zeebe.DeployDir(ctx, cfg.Camunda.BPMNDir); err != nil {
				zapLog.Warn("process deployment incomplete", zap.Int("deployed", n), zap.Error(err))
			} else {
				zapLog.Info("Process models deployed", zap.Int("count", n))
			}
			opts = append(opts, landing.WithDispatcher(
				notify.NewProcessDispatcher(zeebe, cfg.Camunda.ProcessID, inline, log),
			))
			checks = append(checks, system.Check{Name: "zeebe", Pinger: zeebe})
			workers = startWorkers(cfg, zeebe, repo, notifier, obs, log)
			zapLog.Info("Zeebe client connected successfully", zap.Int("workers", len(workers)))
		}
	} else {
		opts = append(opts, landing.WithDispatcher(inline))
	}

	// --- HTTP ---
	opts = append(opts, landing.WithObserver(obs))
	limiter := ratelimit.New(counter, cfg.Landing.MaxSubmissionsPerIP, log)
	landingHandler := landing.NewHandler(landing.NewService(repo, limiter, log, opts...), log)

	auth, err := admin.NewAuthenticator(cfg.Admin, log)
	if err != nil {
		zapLog.Fatal("admin authenticator failed", zap.Error(err))
	}
	adminHandler := admin.NewHandler(repo, auth, searcher, log)
	systemHandler := system.NewHandler(cfg.App, cfg.Server, checks, log)

	srv := server.New(cfg.Server, systemHandler, log,
		server.Mount{Pattern: "/api/landing", Routes: landingHandler.Routes},
		server.Mount{Pattern: "/api/mortgage-admin", Routes: adminHandler.Routes},
		server.Mount{Pattern: "/api/system", Routes: systemHandler.Routes},
	)

	if err := srv.Run(ctx); err != nil {
		zapLog.Error("HTTP server stopped with error", zap.Error(err))
	}

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	zapLog.Info("Mortgage API stopped gracefully")
}

func startWorkers(cfg *config.Config, zeebe *camunda.Client, repo *application.Repository, notifier *notify.Notifier, obs *observability.Observability, log logger.Logger) []worker.JobWorker {
	var started []worker.JobWorker

	notifyHandler, err := nl.NewHandler(nl.LoadConfig(cfg), repo, notifier, log)
	if err != nil {
		log.Error("failed to create notify-lead handler", map[string]interface{}{"error": err.Error()})
	} else if jw := camunda.StartWorker(zeebe.GetClient(), nl.TaskType, config.GetWorkerConfig(cfg, nl.TaskType), notifyHandler.Handle, obs, log); jw != nil {
		started = append(started, jw)
	}

	syncHandler, err := slc.NewHandler(slc.LoadConfig(cfg), repo, notifier, log)
	if err != nil {
		log.Error("failed to create sync-lead-crm handler", map[string]interface{}{"error": err.Error()})
	} else if jw := camunda.StartWorker(zeebe.GetClient(), slc.TaskType, config.GetWorkerConfig(cfg, slc.TaskType), syncHandler.Handle, obs, log); jw != nil {
		started = append(started, jw)
	}

	return started
}
