package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"emsys/internal/domain/approval"
	"emsys/internal/domain/notifications"
	"emsys/internal/domain/schedule"
	"emsys/internal/domain/sso"
	"emsys/internal/domain/users"
	"emsys/internal/platform/chat"
	"emsys/internal/platform/clock"
	"emsys/internal/platform/config"
	"emsys/internal/platform/db"
	"emsys/internal/platform/jobs"
	"emsys/internal/platform/metrics"
	"emsys/internal/transport/http/api"
	adminhandler "emsys/internal/transport/http/handlers/admin"
	leavehandler "emsys/internal/transport/http/handlers/leave"
	scheduleshandler "emsys/internal/transport/http/handlers/schedules"
	ssohandler "emsys/internal/transport/http/handlers/sso"
	"emsys/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector

	ping    func(context.Context) error
	closers []func()
	stop    context.CancelFunc
}

// stores is the storage backend selected by STORAGE_DRIVER.
type stores struct {
	approval approval.StoreAPI
	schedule schedule.StoreAPI
	users    users.StoreAPI
	guard    sso.ReplayGuard
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lockTime, _ := cfg.LockTimeOfDay()
	loc, _ := cfg.Location()
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = randomSecret()
		slog.Warn("JWT_SECRET not set, sessions will not survive a restart")
	}
	if cfg.SSOSecret == "" {
		slog.Warn("SSO_SECRET not set, login links will not survive a restart")
	}

	app := &App{Config: cfg, Metrics: metrics.New()}
	st, err := app.openStorage(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	if cfg.ReplayBackend == config.ReplayBackendMemory {
		st.guard = sso.NewMemoryGuard()
	}

	clk := clock.System{}
	jobCtx, stop := context.WithCancel(context.Background())
	app.stop = stop
	app.Jobs = jobs.New(128, app.Metrics)
	app.Jobs.Start(jobCtx)
	app.Jobs.Every(jobCtx, jobs.JobReplayPurge, cfg.ReplayPurgeInterval, sso.PurgeTask(st.guard, clk))

	issuer, err := sso.NewIssuer(cfg.SSOSecret, cfg.SSOTokenTTL, clk, st.guard)
	if err != nil {
		app.Close()
		return nil, err
	}
	approvals := approval.NewService(st.approval, clk, clock.Window(cfg.ApprovalValidity), cfg.ApprovalGraceOverwrite)
	schedules := schedule.NewService(st.schedule, schedule.Policy{
		Clock:      clk,
		LeadDays:   cfg.ScheduleLockLeadDays,
		LockTime:   lockTime,
		WeeksAhead: cfg.ScheduleWeeksAhead,
		Location:   loc,
	})
	usersSvc := users.NewService(st.users, clk)
	notify := notifications.New(chat.New(cfg), app.Jobs, cfg.PublicBaseURL, cfg.ApprovalValidity, loc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(app.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Token-Status"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, cfg.SessionCookieName))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := app.ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, app.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.TokenRouteRateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))

		ssohandler.NewHandler(issuer, usersSvc, app.Metrics, ssohandler.Session{
			Secret:     cfg.JWTSecret,
			TTL:        cfg.SessionTTL,
			CookieName: cfg.SessionCookieName,
			Secure:     cfg.CookieSecure || cfg.IsProduction(),
		}, cfg.PublicBaseURL, cfg.ChatOutgoingToken).RegisterRoutes(r)

		leavehandler.NewHandler(approvals, schedules, notify, loc).RegisterRoutes(r)
		scheduleshandler.NewHandler(schedules).RegisterRoutes(r)
		adminhandler.NewHandler(st.guard, app.Jobs, clk).RegisterRoutes(r)
	})

	router.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})

	app.Router = router
	return app, nil
}

func (a *App) openStorage(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverSQLite:
		// Open first so the data directory exists before migrate touches the file.
		handle, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return stores{}, fmt.Errorf("sqlite open failed: %w", err)
		}
		a.closers = append(a.closers, func() { _ = handle.Close() })
		a.ping = handle.PingContext
		if cfg.RunMigrations {
			if err := db.Migrate(cfg.StorageDriver, cfg.SQLitePath); err != nil {
				return stores{}, fmt.Errorf("migrations failed: %w", err)
			}
		}
		return stores{
			approval: approval.NewSQLiteStore(handle),
			schedule: schedule.NewSQLiteStore(handle),
			users:    users.NewSQLiteStore(handle),
			guard:    sso.NewSQLiteGuard(handle),
		}, nil
	default:
		if cfg.RunMigrations {
			if err := db.Migrate(cfg.StorageDriver, cfg.DatabaseURL); err != nil {
				return stores{}, fmt.Errorf("migrations failed: %w", err)
			}
		}
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return stores{}, fmt.Errorf("db connect failed: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.ping = pool.Ping
		return stores{
			approval: approval.NewStore(pool),
			schedule: schedule.NewStore(pool),
			users:    users.NewStore(pool),
			guard:    sso.NewPostgresGuard(pool),
		}, nil
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", a.Config.Addr, "storage", a.Config.StorageDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *App) Close() {
	if a.stop != nil {
		a.stop()
	}
	if a.Jobs != nil {
		a.Jobs.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("random secret: %v", err))
	}
	return hex.EncodeToString(buf)
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))
	_, err := os.Stat(path)
	if err == nil {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if os.IsNotExist(err) {
		index := filepath.Join(h.staticPath, h.indexPath)
		if _, err := os.Stat(index); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, index)
		return
	}

	http.NotFound(w, r)
}
