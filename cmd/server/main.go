// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atrium/internal/authz"
	"atrium/internal/identity/service"
	identitystore "atrium/internal/identity/store"
	"atrium/internal/identity/token"
	"atrium/internal/platform/config"
	"atrium/internal/platform/database"
	"atrium/internal/platform/health"
	"atrium/internal/platform/logger"
	"atrium/internal/platform/metrics"
	platformredis "atrium/internal/platform/redis"
	"atrium/internal/seeder"
	"atrium/internal/tenant/cache"
	"atrium/internal/tenant/datactx"
	"atrium/internal/tenant/directory"
	"atrium/internal/tenant/resolver"
	httptransport "atrium/internal/transport/http"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.New(false).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.DevMode)

	log.Info("initializing atrium",
		"addr", cfg.Addr,
		"dev_mode", cfg.DevMode,
	)

	issuer, err := token.New(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
	if err != nil {
		log.Error("token issuer init failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	// Master database. Without a URL the process runs on seeded in-memory
	// stores, which is only acceptable in dev mode.
	pool, err := database.New(database.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		log.Error("master database init failed", "error", err)
		os.Exit(1)
	}
	if pool == nil && !cfg.DevMode {
		log.Error("DATABASE_URL is required outside dev mode")
		os.Exit(1)
	}

	var users identitystore.UserStore
	var dir directory.Directory
	var admin directory.Admin
	if pool != nil {
		users = identitystore.NewPostgres(pool.DB())
		pgDir := directory.NewPostgres(pool.DB())
		dir, admin = pgDir, pgDir
		defer pool.Close()
	} else {
		memUsers := identitystore.NewInMemory()
		memDir := directory.NewInMemory()
		if err := seeder.New(memUsers, memDir, log).Seed(context.Background()); err != nil {
			log.Error("seeding failed", "error", err)
			os.Exit(1)
		}
		users, dir, admin = memUsers, memDir, memDir
	}

	// Tenant descriptor cache: local always, Redis layered on when configured.
	local := cache.NewMemory(cfg.CacheAbsoluteTTL, cfg.CacheSlidingTTL)
	var tenantCache cache.TenantCache = local

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		distributed := cache.NewDistributed(local, redisClient.Client, cfg.CacheAbsoluteTTL, log)
		go distributed.Listen(rootCtx)
		go recordRedisStats(rootCtx, redisClient)
		tenantCache = distributed
	}

	res := resolver.New(dir, tenantCache,
		resolver.WithLookupTimeout(cfg.LookupTimeout),
		resolver.WithMetrics(m),
		resolver.WithLogger(log),
	)

	factory := datactx.New(
		datactx.WithConnectTimeout(cfg.ConnectTimeout),
		datactx.WithRetries(cfg.ConnectRetries),
		datactx.WithBackoff(cfg.BackoffBase, cfg.BackoffCap),
		datactx.WithMetrics(m),
		datactx.WithLogger(log),
	)
	defer factory.Close()

	env := "production"
	if cfg.DevMode {
		env = "dev"
	}
	healthHandler := health.New(env)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
	}

	authSvc := service.New(users, issuer,
		service.WithMetrics(m),
		service.WithLogger(log),
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:     log,
		Metrics:    m,
		Validator:  issuer,
		Resolver:   res,
		Authorizer: authz.New(authz.WithMetrics(m), authz.WithLogger(log)),
		Auth:       httptransport.NewAuthHandler(authSvc),
		Tenant:     httptransport.NewTenantHandler(dir, admin, res, factory),
		Health:     healthHandler,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func recordRedisStats(ctx context.Context, client *platformredis.Client) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			client.RecordPoolStats()
		}
	}
}
