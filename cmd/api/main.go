package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/akbidlab/internal/auth"
	"github.com/geocoder89/akbidlab/internal/config"
	"github.com/geocoder89/akbidlab/internal/db"
	"github.com/geocoder89/akbidlab/internal/domain/user"
	httpx "github.com/geocoder89/akbidlab/internal/http"
	"github.com/geocoder89/akbidlab/internal/http/handlers"
	"github.com/geocoder89/akbidlab/internal/http/middlewares"
	"github.com/geocoder89/akbidlab/internal/identity"
	"github.com/geocoder89/akbidlab/internal/navigation"
	"github.com/geocoder89/akbidlab/internal/observability"
	"github.com/geocoder89/akbidlab/internal/redisclient"
	"github.com/geocoder89/akbidlab/internal/repo/memory"
	"github.com/geocoder89/akbidlab/internal/repo/postgres"
	"github.com/geocoder89/akbidlab/internal/session"
	"github.com/geocoder89/akbidlab/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
)

type usersBackend interface {
	identity.UserRepository
	handlers.UserLister
}

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	ready := map[string]handlers.Pinger{}
	accounts := identity.TestAccounts()

	// data backend
	var (
		users   usersBackend
		catalog handlers.CatalogReader
	)
	switch cfg.DataBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		ready["postgres"] = pool.Ping

		users = postgres.NewUsersRepo(pool, prom)
		catalog = postgres.NewCatalogRepo(pool, prom)
	default:
		users = memory.NewUsersRepo()
		dosen, _ := identity.FindTestAccount(accounts, user.RoleDosen)
		catalog = memory.NewCatalogRepo(db.DevCatalog(dosen.ID))
	}

	if cfg.DevMode {
		seedCtx, cancel := config.WithTimeout(10 * time.Second)
		err := db.EnsureTestAccounts(seedCtx, users, accounts, log)
		cancel()
		if err != nil {
			log.Error("seeding test accounts failed", "err", err)
			os.Exit(1)
		}
	}

	// session backend
	var (
		store    session.Store
		memStore *session.MemoryStore
	)
	switch cfg.SessionBackend {
	case config.BackendRedis:
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		ready["redis"] = rdb.Ping
		store = session.NewRedisStore(rdb.Sessions(), cfg.SessionTTL)
	default:
		memStore = session.NewMemoryStore(cfg.SessionTTL)
		store = memStore
	}

	tokens := identity.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	idSvc := identity.NewService(users, tokens, log)

	controllers := auth.NewRegistry(store, idSvc, auth.Options{
		RoleSwitching: cfg.RoleSwitchingEnabled(),
		TestAccounts:  accounts,
		Logger:        log,
		Recorder:      prom,
	}, cfg.ControllerTTL)

	hub := ws.NewHub(prom, log)
	go hub.Run(ctx)

	go sweep(ctx, cfg.SweepInterval, log, func() {
		if memStore != nil {
			memStore.Sweep()
		}
		controllers.Sweep()
		prom.SetControllers(controllers.Len())
	})

	var testAccounts []identity.TestAccount
	if cfg.DevMode {
		testAccounts = accounts
	}

	health := handlers.NewHealthHandler(ready)

	router := httpx.NewRouter(httpx.Deps{
		Log:         log,
		Env:         cfg.Env,
		ServiceName: cfg.ServiceName,
		Controllers: controllers,
		SignUp:      idSvc,
		Catalog:     catalog,
		Users:       users,
		Menus:       navigation.Default(),
		Hub:         hub,
		Metrics:     prom,
		Health:      health,
		Dev: handlers.DevOptions{
			DevMode:       cfg.DevMode,
			RoleSwitching: cfg.RoleSwitchingEnabled(),
			TestAccounts:  testAccounts,
		},
		Cookie:       middlewares.CookieOptions{Secure: cfg.CookieSecure},
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Tracing:      cfg.OTLPEndpoint != "",
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env,
			"data_backend", cfg.DataBackend, "session_backend", cfg.SessionBackend)
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")
	health.Drain()

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		// closes websocket clients
		stopApp()

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")
	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func sweep(ctx context.Context, every time.Duration, log *slog.Logger, fn func()) {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
			log.Debug("sweep completed")
		}
	}
}
