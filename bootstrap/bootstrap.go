// Package bootstrap wires the application together.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/apphost/adapters/assets"
	"github.com/artpar/apphost/adapters/clock"
	"github.com/artpar/apphost/adapters/engine"
	"github.com/artpar/apphost/adapters/hasher"
	apihttp "github.com/artpar/apphost/adapters/http"
	"github.com/artpar/apphost/adapters/http/admin"
	"github.com/artpar/apphost/adapters/idgen"
	"github.com/artpar/apphost/adapters/memory"
	"github.com/artpar/apphost/adapters/metrics"
	"github.com/artpar/apphost/adapters/mimetype"
	"github.com/artpar/apphost/adapters/sqlite"
	"github.com/artpar/apphost/adapters/tracing"
	"github.com/artpar/apphost/app"
	"github.com/artpar/apphost/config"
	"github.com/artpar/apphost/core/capability"
	"github.com/artpar/apphost/core/events"
	"github.com/artpar/apphost/core/registry"
	"github.com/artpar/apphost/core/runtime"
	"github.com/artpar/apphost/ports"
)

// ServiceName identifies the process in traces and logs.
const ServiceName = "apphost"

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB // nil with the memory driver
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	Registry   *registry.Registry
	Dispatcher *runtime.Dispatcher
	Events     *events.Bus
	Grants     *app.GrantService
	Audit      *app.AuditRecorder
	Engine     *engine.Transitions

	holder          *config.Holder
	shutdownTracing func(context.Context) error
}

// Options provides optional configuration for application initialization.
type Options struct {
	// ConfigPath is the YAML file to load. When it does not exist the
	// configuration is read from APPHOST_* environment variables.
	ConfigPath string

	// Version is reported by /version and on spans.
	Version string

	// LogOutput defaults to stdout.
	LogOutput io.Writer
}

// New creates and initializes the application.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, holder, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := setupLogger(cfg.Logging, out)
	if holder != nil {
		holder.SetLogger(logger)
	}

	logger.Info().Str("version", opts.Version).Msg("initializing apphost")

	a := &App{
		Logger: logger,
		Config: cfg,
		holder: holder,
	}

	if err := a.init(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, opts Options) error {
	cfg := a.Config

	stores, err := a.initStores(ctx)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	a.shutdownTracing, err = tracing.Setup(ctx, tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
		ServiceName:    ServiceName,
		ServiceVersion: opts.Version,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	if cfg.Tracing.Enabled {
		a.Logger.Info().Str("endpoint", cfg.Tracing.Endpoint).Msg("tracing enabled")
	}

	a.Events = events.NewBus(a.Logger)

	a.Audit = app.NewAuditRecorder(stores.invocations)
	a.Audit.Subscribe(a.Events)

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
		a.Metrics.Subscribe(a.Events)
		a.Logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	resolver, err := assets.New(cfg.Assets.BaseURL)
	if err != nil {
		return fmt.Errorf("init assets: %w", err)
	}

	a.Engine = engine.NewTransitions(stores.transitions, idgen.UUID{}, clock.Real{}, a.Logger)

	a.Registry = registry.New()
	if err := registerModules(a.Registry, moduleDeps{
		Engine: a.Engine,
		Assets: resolver,
		Mimes:  mimetype.New(),
	}); err != nil {
		return fmt.Errorf("register modules: %w", err)
	}
	a.Registry.Freeze()

	a.Dispatcher = runtime.New(a.Registry,
		capability.NewResolver(stores.grants, idgen.UUID{}.Func(), clock.Real{}.Now),
		runtime.Config{
			ConcealUnauthorized: cfg.Policy.ConcealUnauthorized,
			Events:              a.Events,
			Logger:              a.Logger,
			NewID:               idgen.UUID{}.Func(),
		})

	a.Grants = app.NewGrantService(stores.grants, a.Logger)
	if err := a.Grants.Seed(ctx, appGrants(cfg.Apps), cfg.Policy.PruneApps); err != nil {
		return fmt.Errorf("seed grants: %w", err)
	}

	if a.holder != nil {
		a.holder.OnChange(a.applyConfig)
		if a.Metrics != nil {
			a.holder.OnReload(func(err error) { a.Metrics.RecordReload(err, time.Now()) })
		}
	}

	a.initHTTPServer(opts.Version)
	return nil
}

type stores struct {
	grants      ports.GrantStore
	transitions ports.TransitionStore
	invocations ports.InvocationLog
}

func (a *App) initStores(ctx context.Context) (stores, error) {
	dbCfg := a.Config.Database

	if dbCfg.Driver == "memory" {
		a.Logger.Warn().Msg("using in-memory stores, grants and transitions are lost on exit")
		return stores{
			grants:      memory.NewGrantStore(),
			transitions: memory.NewTransitionStore(),
			invocations: memory.NewInvocationLog(0),
		}, nil
	}

	db, err := sqlite.Open(ctx, dbCfg.DSN)
	if err != nil {
		return stores{}, err
	}
	a.DB = db

	applied, err := db.Migrate(ctx)
	if err != nil {
		return stores{}, fmt.Errorf("migrate: %w", err)
	}

	a.Logger.Info().Str("dsn", dbCfg.DSN).Strs("migrations", applied).Msg("database initialized")
	return stores{
		grants:      sqlite.NewGrantStore(db),
		transitions: sqlite.NewTransitionStore(db),
		invocations: sqlite.NewInvocationLog(db),
	}, nil
}

func (a *App) initHTTPServer(version string) {
	cfg := a.Config

	checks := map[string]apihttp.HealthChecker{}
	if a.DB != nil {
		checks["database"] = a.DB
	}

	routerCfg := apihttp.RouterConfig{
		Version:        version,
		MetricsPath:    cfg.Metrics.Path,
		RequestTimeout: cfg.Server.WriteTimeout,
	}
	if a.Metrics != nil {
		routerCfg.MetricsHandler = a.Metrics.Handler()
	}
	if cfg.Admin.Enabled {
		routerCfg.AdminHandler = admin.NewHandler(admin.Deps{
			Dispatcher: a.Dispatcher,
			Grants:     a.Grants,
			Audit:      a.Audit,
			Engine:     a.Engine,
			Hasher:     hasher.NewBcrypt(0),
			TokenHash:  cfg.Admin.TokenHash,
			Logger:     a.Logger,
		}).Router()
		a.Logger.Info().Msg("admin api enabled at /admin")
	}

	router := apihttp.NewRouter(apihttp.NewHealthHandler(checks), a.Logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// applyConfig applies the reloadable part of a new configuration.
func (a *App) applyConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	a.Dispatcher.SetConcealUnauthorized(cfg.Policy.ConcealUnauthorized)

	if err := a.Grants.Seed(context.Background(), appGrants(cfg.Apps), cfg.Policy.PruneApps); err != nil {
		a.Logger.Error().Err(err).Msg("failed to apply reloaded grants")
	}
}

// Reload re-reads the configuration file. Without a file it is a no-op.
func (a *App) Reload() error {
	if a.holder == nil {
		return nil
	}
	return a.holder.Reload()
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	if a.holder != nil {
		if err := a.holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
		a.holder.WatchSignals()
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
			errs = append(errs, err)
		}
	}

	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("tracing shutdown error")
			errs = append(errs, err)
		}
	}

	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	a.Logger.Info().Msg("shutdown complete")
	return errors.Join(errs...)
}

// Close releases the config watchers and the database without touching the
// HTTP server. CLI commands that never serve call it directly.
func (a *App) Close() error {
	if a.holder != nil {
		a.holder.Stop()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
			return err
		}
		a.DB = nil
	}
	return nil
}

func loadConfig(path string) (*config.Config, *config.Holder, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			holder, err := config.NewHolder(path, zerolog.Nop())
			if err != nil {
				return nil, nil, err
			}
			return holder.Get(), holder, nil
		}
	}

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, nil, nil
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

func appGrants(apps []config.AppConfig) []app.AppGrant {
	out := make([]app.AppGrant, len(apps))
	for i, a := range apps {
		out[i] = app.AppGrant{ID: a.ID, Permissions: a.Permissions}
	}
	return out
}
