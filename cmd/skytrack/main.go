package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/sky/skytrack/internal/api"
	"github.com/sky/skytrack/internal/auth"
	"github.com/sky/skytrack/internal/catalog"
	"github.com/sky/skytrack/internal/engine"
	"github.com/sky/skytrack/internal/health"
	"github.com/sky/skytrack/internal/metrics"
	"github.com/sky/skytrack/internal/snapshot"
	"github.com/sky/skytrack/internal/stream"
	"github.com/sky/skytrack/internal/tle"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	addr := os.Getenv("SKYTRACK_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	elementsCfg := loadElementsConfig(logger)
	elements := tle.NewStore()
	diskCache := tle.NewCache(elementsCfg.CacheDir, elementsCfg.MaxCacheFiles)
	fetcher := tle.NewFetcher(elementsCfg.SourceURL)
	catalogs := catalog.NewStore()
	checker := &health.Checker{}

	engCfg, trailCapacity := loadEngineConfig(logger)
	trails := snapshot.NewBuffer(trailCapacity, logger)
	hub := stream.NewHub()

	eng := engine.New(catalogs, engCfg, logger, func(s *engine.Snapshot) {
		trails.Put(s)
		hub.Publish(s)
		checker.SetReady()
	})

	app := &application{
		logger:      logger,
		elements:    elements,
		diskCache:   diskCache,
		fetcher:     fetcher,
		catalogs:    catalogs,
		elementsCfg: elementsCfg,
	}

	// Attempt to load cached element data on startup so the service can
	// serve positions before the first fetch completes.
	if data, ts, err := diskCache.LoadLatest(); err != nil {
		logger.Info("no element cache found, starting empty", "error", err)
	} else if err := app.installDataset("cache", data, ts); err != nil {
		logger.Warn("failed to load cached element data", "error", err)
	}

	streamCfg := loadStreamConfig(logger)
	sse := stream.NewHandler(hub, trails, elements, streamCfg, logger)
	handlers := api.NewHandlers(catalogs, eng, trails, elements, logger)
	srv := api.NewServer(addr, handlers, sse, checker, logger, authCfg)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go eng.Run(ctx)

	if elementsCfg.EnableFetch {
		go app.refreshLoop(ctx)
	} else {
		logger.Info("element fetching disabled")
	}

	// Background goroutine to update the dataset age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := elements.AgeSeconds(); age >= 0 {
					metrics.SetElementsAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server",
			"addr", addr,
			"auth_enabled", authCfg.Enabled,
			"fetch_enabled", elementsCfg.EnableFetch,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// application groups the element refresh path: fetch, parse, rebuild
// catalog, publish.
type application struct {
	logger      *slog.Logger
	elements    *tle.Store
	diskCache   *tle.Cache
	fetcher     *tle.Fetcher
	catalogs    *catalog.Store
	elementsCfg elementsConfig
}

// installDataset parses raw element data, publishes the dataset, and
// swaps in a freshly built catalog.
func (a *application) installDataset(source string, data []byte, fetchedAt time.Time) error {
	entries, err := tle.Parse(bytes.NewReader(data), a.logger)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New("no element sets in data")
	}

	minEpoch, maxEpoch := entries[0].Epoch, entries[0].Epoch
	for _, e := range entries[1:] {
		if e.Epoch.Before(minEpoch) {
			minEpoch = e.Epoch
		}
		if e.Epoch.After(maxEpoch) {
			maxEpoch = e.Epoch
		}
	}

	a.elements.Set(&tle.Dataset{
		Source:     source,
		FetchedAt:  fetchedAt,
		EpochRange: tle.EpochRange{Min: minEpoch, Max: maxEpoch},
		Satellites: entries,
	})

	cat := catalog.Build(entries, time.Now(), a.elementsCfg.MaxElementAge, a.logger)
	gen := a.catalogs.Set(cat)

	metrics.SetCatalogCounts(cat.Stats.Usable, cat.Stats.RejectedStale,
		cat.Stats.RejectedInvalid, cat.Stats.RejectedModelErr)
	metrics.SetElementsAge(time.Since(fetchedAt).Seconds())

	a.logger.Info("dataset installed",
		"source", source,
		"satellites", len(entries),
		"usable", cat.Stats.Usable,
		"generation", gen,
	)
	return nil
}

// refreshLoop fetches fresh elements periodically. The first fetch runs
// immediately if the current dataset is missing or older than the
// refresh interval.
func (a *application) refreshLoop(ctx context.Context) {
	if ds := a.elements.Get(); ds == nil || time.Since(ds.FetchedAt) > a.elementsCfg.RefreshInterval {
		a.refresh(ctx)
	}

	ticker := time.NewTicker(a.elementsCfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.refresh(ctx)
		}
	}
}

// refresh performs one fetch-parse-install cycle. A failed refresh
// leaves the previous dataset and catalog in place.
func (a *application) refresh(ctx context.Context) {
	a.elements.Lock()
	defer a.elements.Unlock()

	start := time.Now()
	data, err := a.fetcher.Fetch(ctx)
	if err != nil {
		a.logger.Warn("element fetch failed", "source", a.fetcher.SourceURL(), "error", err)
		return
	}

	fetchedAt := time.Now()
	if err := a.diskCache.Write(data, fetchedAt); err != nil {
		a.logger.Warn("failed to write element cache", "error", err)
	}

	if err := a.installDataset("celestrak", data, fetchedAt); err != nil {
		a.logger.Warn("fetched element data unusable", "error", err)
		return
	}

	a.logger.Info("element refresh complete",
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func logLevel() slog.Level {
	switch os.Getenv("SKYTRACK_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("SKYTRACK_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("SKYTRACK_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("SKYTRACK_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("SKYTRACK_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

// elementsConfig controls element sourcing and catalog freshness.
type elementsConfig struct {
	SourceURL       string
	CacheDir        string
	MaxCacheFiles   int
	EnableFetch     bool
	RefreshInterval time.Duration
	MaxElementAge   time.Duration
}

func loadElementsConfig(logger *slog.Logger) elementsConfig {
	cfg := elementsConfig{
		CacheDir:        "/tmp/skytrack/tle",
		MaxCacheFiles:   5,
		EnableFetch:     true,
		RefreshInterval: 6 * time.Hour,
		MaxElementAge:   catalog.DefaultMaxElementAge,
	}

	if v := os.Getenv("SKYTRACK_TLE_SOURCE_URL"); v != "" {
		cfg.SourceURL = v
	}
	if v := os.Getenv("SKYTRACK_TLE_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}

	if v := os.Getenv("SKYTRACK_ENABLE_TLE_FETCH"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SKYTRACK_ENABLE_TLE_FETCH value, defaulting to true", "value", v)
		} else {
			cfg.EnableFetch = enabled
		}
	}

	if v := os.Getenv("SKYTRACK_TLE_REFRESH_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYTRACK_TLE_REFRESH_HOURS value, using default", "value", v, "default", 6)
		} else {
			cfg.RefreshInterval = time.Duration(n) * time.Hour
		}
	}

	if v := os.Getenv("SKYTRACK_MAX_ELEMENT_AGE_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYTRACK_MAX_ELEMENT_AGE_DAYS value, using default", "value", v, "default", 60)
		} else {
			cfg.MaxElementAge = time.Duration(n) * 24 * time.Hour
		}
	}

	logger.Info("elements config",
		"source_url", cfg.SourceURL,
		"cache_dir", cfg.CacheDir,
		"refresh_interval_hours", cfg.RefreshInterval.Hours(),
		"max_element_age_days", cfg.MaxElementAge.Hours()/24,
	)

	return cfg
}

func loadEngineConfig(logger *slog.Logger) (engine.Config, int) {
	cfg := engine.Config{
		TickInterval: time.Second,
		Workers:      runtime.NumCPU(),
	}
	trailCapacity := snapshot.DefaultCapacity

	if v := os.Getenv("SKYTRACK_TICK_INTERVAL_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYTRACK_TICK_INTERVAL_MS value, using default", "value", v, "default", 1000)
		} else {
			cfg.TickInterval = time.Duration(n) * time.Millisecond
		}
	}

	if v := os.Getenv("SKYTRACK_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYTRACK_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	if v := os.Getenv("SKYTRACK_TRAIL_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYTRACK_TRAIL_CAPACITY value, using default", "value", v, "default", trailCapacity)
		} else {
			trailCapacity = n
		}
	}

	logger.Info("engine config",
		"tick_interval_ms", cfg.TickInterval.Milliseconds(),
		"workers", cfg.Workers,
		"trail_capacity", trailCapacity,
	)

	return cfg, trailCapacity
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("SKYTRACK_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYTRACK_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("SKYTRACK_STREAM_KEEPALIVE_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYTRACK_STREAM_KEEPALIVE_SECONDS value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("SKYTRACK_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SKYTRACK_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}
