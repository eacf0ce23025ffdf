// Package server wires the plantcare backend: Postgres storage, the result
// cache, the Plant.id client, the domain services and the HTTP API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/plantcare/internal/cache"
	"github.com/dmitrijs2005/plantcare/internal/logging"
	"github.com/dmitrijs2005/plantcare/internal/server/config"
	"github.com/dmitrijs2005/plantcare/internal/server/httpapi"
	"github.com/dmitrijs2005/plantcare/internal/server/plantid"
	"github.com/dmitrijs2005/plantcare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/plantcare/internal/server/services"
	"github.com/dmitrijs2005/plantcare/internal/timex"
)

// visitorIdle is how long a rate limiter bucket survives without requests.
const visitorIdle = 10 * time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	cache   *cache.ResultCache
	limiter *httpapi.RateLimiter
	http    *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)
	clock := timex.RealClock{}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := &App{config: c, logger: logger, db: db}

	var primary cache.Store
	if c.RedisURL != "" {
		client, err := cache.DialRedis(ctx, c.RedisURL)
		if err != nil {
			// The in-memory store serves until the process restarts.
			logger.Warn(ctx, "redis unavailable, caching in memory", "error", err)
		} else {
			app.redis = client
			primary = cache.NewRedisStore(client, cache.WithPrefix("plantcare:"))
		}
	}
	app.cache = cache.New(primary, clock, logger, cache.NewMetrics(reg))

	provider := plantid.New(c.PlantIDBaseURL, c.PlantIDAPIKey, logger)

	svc := httpapi.Services{
		Guides:      services.NewGuideService(db, repos, app.cache, clock, c.GuideCacheTTL, logger),
		Collections: services.NewCollectionService(db, repos, clock, logger),
		Identify:    services.NewIdentifyService(provider, app.cache, c.IdentifyCacheTTL, logger),
		Images:      services.NewImageService(c, clock),
	}

	app.limiter = httpapi.NewRateLimiter(c.RateLimitPerMinute, c.RateLimitBurst, clock)
	app.http = httpapi.New(httpapi.Options{
		Addr:            c.HTTPAddr,
		JWTSecret:       []byte(c.SecretKey),
		ShutdownTimeout: c.ShutdownTimeout,
		Gatherer:        reg,
		Metrics:         httpapi.NewMetrics(reg),
		Limiter:         app.limiter,
	}, svc, logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// startScheduler runs the periodic housekeeping: expired cache entries and
// idle rate limiter buckets.
func (app *App) startScheduler(ctx context.Context) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(app.config.CacheCleanupInterval),
		gocron.NewTask(func() {
			n := app.cache.CleanupExpired(ctx)
			app.logger.Debug(ctx, "cache cleanup", "removed", n)
		}),
		gocron.WithName("cache-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule cache cleanup: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(visitorIdle),
		gocron.NewTask(func() {
			n := app.limiter.Sweep(visitorIdle)
			app.logger.Debug(ctx, "rate limiter sweep", "removed", n)
		}),
		gocron.WithName("limiter-sweep"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule limiter sweep: %w", err)
	}

	s.Start()
	return s, nil
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
}

// Run blocks until a termination signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	scheduler, err := app.startScheduler(ctx)
	if err != nil {
		app.close(ctx)
		return err
	}

	var (
		wg     sync.WaitGroup
		runErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server", "error", err)
			runErr = err
			cancelFunc()
		}
	}()
	wg.Wait()

	if err := scheduler.Shutdown(); err != nil {
		app.logger.Warn(ctx, "stop scheduler", "error", err)
	}
	app.close(context.WithoutCancel(ctx))
	app.logger.Info(context.WithoutCancel(ctx), "app stopped")
	return runErr
}
