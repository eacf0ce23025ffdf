package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/cache"
	"github.com/dmitrijs2005/plantcare/internal/client/client"
	"github.com/dmitrijs2005/plantcare/internal/client/config"
	"github.com/dmitrijs2005/plantcare/internal/client/connectivity"
	"github.com/dmitrijs2005/plantcare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/plantcare/internal/client/services"
	"github.com/dmitrijs2005/plantcare/internal/filex"
	"github.com/dmitrijs2005/plantcare/internal/logging"
	"github.com/dmitrijs2005/plantcare/internal/timex"
)

// TokenKey is the metadata key of a token saved with "auth token".
const TokenKey = "auth.token"

// Monitor is the connectivity surface the commands use.
type Monitor interface {
	Mode() connectivity.Mode
	Check(ctx context.Context) connectivity.Mode
	Run(ctx context.Context, interval time.Duration)
	OnReconnect(fn func(context.Context))
}

// CacheMaintainer is the part of the result cache exposed to "cache".
type CacheMaintainer interface {
	CleanupExpired(ctx context.Context) int
	Invalidate(ctx context.Context, pattern string) int
}

type App struct {
	cfg *config.Config
	log logging.Logger
	out io.Writer
	in  *bufio.Reader
	// output is the --output mode: auto, text or json.
	output string

	meta        metadata.Repository
	cache       CacheMaintainer
	monitor     Monitor
	guides      services.GuideService
	identify    services.IdentifyService
	collections services.CollectionService
	sync        services.SyncService

	closers []func() error
}

// NewApp opens the local store and wires the services. The caller must
// Close the app.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	dsn, err := databasePath(cfg)
	if err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	a := &App{cfg: cfg, log: logger, out: os.Stdout, in: bufio.NewReader(os.Stdin)}
	a.closers = append(a.closers, db.Close)

	repos := client.NewRepositories(db)
	a.meta = repos.Metadata

	token := cfg.Token
	if token == "" {
		saved, err := repos.Metadata.Get(ctx, TokenKey)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		token = string(saved)
	}
	remote := client.NewHTTPClient(cfg.ServerURL, token)

	var primary cache.Store = repos.Cache
	if cfg.RedisURL != "" {
		rdb, err := cache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn(ctx, "redis unavailable, using local cache", "error", err)
		} else {
			a.closers = append(a.closers, rdb.Close)
			primary = cache.NewRedisStore(rdb, cache.WithPrefix("plantcare:client:"))
		}
	}
	clock := timex.RealClock{}
	rc := cache.New(primary, clock, logger, nil)
	a.cache = rc

	monitor := connectivity.NewMonitor(remote, logger)
	a.monitor = monitor

	orch := services.NewOrchestrator(rc, monitor, logger)
	a.guides = services.NewGuideService(remote, orch)
	a.identify = services.NewIdentifyService(remote, orch)
	a.collections = services.NewCollectionService(remote, repos.Collections, monitor, clock, logger)
	a.sync = services.NewSyncService(remote, repos.Collections, repos.Metadata, logger)

	return a, nil
}

func databasePath(cfg *config.Config) (string, error) {
	if cfg.DatabasePath != "" {
		return cfg.DatabasePath, nil
	}
	dir, err := filex.DataDir("plantcare")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "plantcare.db"), nil
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// ensureMode probes the server once if its state is still unknown.
func (a *App) ensureMode(ctx context.Context) connectivity.Mode {
	if m := a.monitor.Mode(); m != connectivity.ModeUnknown {
		return m
	}
	return a.monitor.Check(ctx)
}

func (a *App) jsonOutput() bool {
	return useJSON(a.output, a.out)
}

func (a *App) getStatus() string {
	return string(a.monitor.Mode())
}
