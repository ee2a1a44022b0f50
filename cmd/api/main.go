package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/octrolabs/userhub/internal/auth"
	"github.com/octrolabs/userhub/internal/config"
	"github.com/octrolabs/userhub/internal/db"
	httpx "github.com/octrolabs/userhub/internal/http"
	"github.com/octrolabs/userhub/internal/http/handlers"
	"github.com/octrolabs/userhub/internal/identity"
	"github.com/octrolabs/userhub/internal/oauth"
	"github.com/octrolabs/userhub/internal/observability"
	"github.com/octrolabs/userhub/internal/repo/postgres"
	"github.com/octrolabs/userhub/internal/session"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// Tracing
	shutdownTracer, err := observability.InitTracer(context.Background(), "userhub", cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracer init failed, continuing without tracing", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	// Postgres
	pool, err := db.NewPool(context.Background(), cfg.DBURL)
	if err != nil {
		log.Error("failed to connect to postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	migrateCtx, cancelMigrate := config.WithTimeout(30 * time.Second)
	err = db.EnsureSchema(migrateCtx, pool)
	cancelMigrate()

	if err != nil {
		log.Error("failed to ensure schema", "err", err)
		os.Exit(1)
	}

	// Redis-backed sessions
	sessionStore := session.NewRedisStore(session.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer sessionStore.Close()

	// Repositories and pipeline
	usersRepo := postgres.NewUsersRepo(pool, prom)
	groupsRepo := postgres.NewGroupsRepo(pool, prom)
	processesRepo := postgres.NewProcessesRepo(pool, prom)

	resolver := identity.NewResolver(usersRepo)
	sessions := session.NewCodec(sessionStore, usersRepo, cfg.SessionSecret, cfg.SessionTTL, prom)
	states := auth.NewStateManager(cfg.SessionSecret, 10*time.Minute)
	provider := oauth.NewProvider(oauth.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		CallbackURL:  cfg.GoogleCallbackURL,
	})

	pingDB := func() error {
		ctx, cancel := config.WithTimeout(1 * time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}
	pingRedis := func() error {
		ctx, cancel := config.WithTimeout(1 * time.Second)
		defer cancel()
		return sessionStore.Ping(ctx)
	}

	router := httpx.NewRouter(log, cfg, httpx.Deps{
		Auth:      handlers.NewAuthHandler(provider, states, resolver, sessions, cfg),
		Users:     handlers.NewUsersHandler(usersRepo, usersRepo),
		Groups:    handlers.NewGroupsHandler(groupsRepo),
		Processes: handlers.NewProcessesHandler(processesRepo),
		Sessions:  sessions,
		Prom:      prom,
		Metrics:   gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		Pings:     []func() error{pingDB, pingRedis},
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

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
