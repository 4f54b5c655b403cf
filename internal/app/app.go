package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"example.com/bc-solo/internal/auth"
	"example.com/bc-solo/internal/config"
	"example.com/bc-solo/internal/game"
	"example.com/bc-solo/internal/httpapi"
	"example.com/bc-solo/internal/metrics"
	"example.com/bc-solo/internal/migrate"
	"example.com/bc-solo/internal/session"
	"example.com/bc-solo/internal/store"
)

const purgeInterval = 10 * time.Minute

type App struct {
	cfg config.Config
	log *slog.Logger

	db  *pgxpool.Pool
	rdb *redis.Client

	sessions *session.Service
	pgStore  *store.SessionStore

	srv *http.Server
}

type Options struct {
	Static http.Handler // optional; if nil, no frontend is served
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts Options) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{cfg: cfg, log: log}

	persist, err := a.openBackend(ctx)
	if err != nil {
		return nil, err
	}

	// --- Game ---
	src := game.DefaultSource()
	if cfg.Game.Seed != 0 {
		log.Warn("deterministic secrets enabled", "seed", cfg.Game.Seed)
		src = game.NewSeededSource(cfg.Game.Seed)
	}
	engine := game.NewEngine(src)

	a.sessions = session.NewService(engine, persist, log)
	authSvc := auth.NewService([]byte(cfg.Auth.Secret))

	sessionH := &httpapi.SessionHandler{
		Sessions: a.sessions,
		Auth:     authSvc,
		TokenTTL: cfg.Auth.TokenTTL,
		Log:      log,
	}
	wsSrv := session.NewServer(a.sessions, authSvc, log)

	a.srv = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newRouter(log, sessionH, wsSrv, opts.Static),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	return a, nil
}

func newRouter(log *slog.Logger, api *httpapi.SessionHandler, ws *session.Server, static http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpapi.RequestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	api.Routes(r)
	ws.RegisterRoutes(r)

	if static != nil {
		r.Handle("/*", static)
	}
	return r
}

// openBackend connects the configured session backend and fails fast
// when it is unreachable.
func (a *App) openBackend(ctx context.Context) (session.Persistence, error) {
	cfg := a.cfg
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Session.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping (%s db=%d): %w", cfg.Redis.Addr, cfg.Redis.DB, err)
		}
		a.rdb = rdb
		a.log.Info("session backend: redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return session.NewRedisStore(rdb, cfg.Session.TTL), nil

	case config.BackendPostgres:
		if cfg.Postgres.RunMigrations {
			if err := migrate.Up(cfg.Postgres.URL, cfg.Postgres.MigrationsDir, a.log); err != nil {
				return nil, err
			}
		}
		dbpool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("pgxpool: %w", err)
		}
		if err := dbpool.Ping(pingCtx); err != nil {
			dbpool.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		a.db = dbpool
		a.pgStore = store.NewSessionStore(dbpool, cfg.Session.TTL)
		a.log.Info("session backend: postgres")
		return a.pgStore, nil

	default:
		a.log.Info("session backend: memory")
		return session.NewInMemoryStore(cfg.Session.TTL), nil
	}
}

// Handler exposes the router, mostly for tests.
func (a *App) Handler() http.Handler { return a.srv.Handler }

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)

	g.Go(func() error {
		err := a.srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		_ = a.srv.Shutdown(shutdownCtx)
		return nil
	})

	g.Go(func() error {
		return a.sessions.RunSweeper(gctx, a.cfg.Session.SweepInt, a.cfg.Session.MaxIdle)
	})

	if a.pgStore != nil {
		g.Go(func() error { return a.purgeLoop(gctx) })
	}

	err := g.Wait()
	_ = a.Close(context.Background())
	return err
}

// purgeLoop removes expired rows; Redis and the in-memory store expire keys themselves.
func (a *App) purgeLoop(ctx context.Context) error {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := a.pgStore.PurgeExpired(ctx)
			if err != nil {
				a.log.Error("purge expired sessions", "err", err)
				continue
			}
			if n > 0 {
				a.log.Info("purged expired sessions", "count", n)
			}
		}
	}
}

func (a *App) Close(ctx context.Context) error {
	// best-effort
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	return nil
}
