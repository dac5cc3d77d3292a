// Package main API Server 入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookstore-api/internal/apiserver/auth"
	"bookstore-api/internal/apiserver/httputil"
	"bookstore-api/internal/apiserver/server"
	"bookstore-api/internal/config"
	"bookstore-api/internal/shared/cache"
	redisstore "bookstore-api/internal/shared/cache/redis"
	objstore "bookstore-api/internal/shared/minio"
	"bookstore-api/internal/shared/storage"
	"bookstore-api/internal/shared/storage/memstore"
	"bookstore-api/internal/shared/storage/mongostore"
	"bookstore-api/pkg/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configDir := flag.String("config", "", "配置文件目录（包含 {env}.yaml）")
	flag.Parse()
	if *configDir != "" {
		config.SetConfigDir(*configDir)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Component: "api-server",
	})
	logger.Info("Starting API Server", "env", cfg.Env, "config", cfg.String())
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; token issuance and verification will fail")
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Redis 仅用于限流，未启用时不限流
	var limiter cache.RateLimiter = cache.NewNoOpLimiter()
	if cfg.RedisURL != "" {
		rs, err := redisstore.NewStoreFromURL(cfg.RedisURL, cfg.RedisPassword, logger.Component("redis"))
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rs.Close()
		limiter = rs
	}

	proxies, err := httputil.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	opts := server.Options{
		Auth: auth.Config{
			JWTSecret:   cfg.Auth.JWTSecret,
			SessionTTL:  cfg.Auth.SessionTTL,
			ResetTTL:    cfg.Auth.ResetTTL,
			TokenHeader: cfg.Auth.TokenHeader,
			BcryptCost:  cfg.Auth.BcryptCost,
		},
		BaseURL:        cfg.Server.BaseURL,
		BooksPerPage:   cfg.Pagination.BooksPerPage,
		AuthorsPerPage: cfg.Pagination.AuthorsPerPage,
		Limiter:        limiter,
		LoginRule:      cache.Rule{Limit: cfg.RateLimit.Login.Limit, Window: cfg.RateLimit.Login.Window},
		ForgotRule:     cache.Rule{Limit: cfg.RateLimit.Forgot.Limit, Window: cfg.RateLimit.Forgot.Window},
		TrustedProxies: proxies,
		Registry:       newRegistry(),
		Logger:         logger,
	}

	// MinIO 未配置时上传接口返回 503
	if cfg.MinIO.Endpoint != "" {
		oc, err := objstore.NewClient(cfg.MinIO, logger)
		if err != nil {
			return fmt.Errorf("create minio client: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = oc.EnsureBucket(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure minio bucket: %w", err)
		}
		logger.Info("MinIO bucket ready", "bucket", oc.Bucket())
		opts.Uploader = oc
	}

	h := server.NewHandler(store, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = h.AuthService().EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	cancel()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     newServerErrorLog(logger),
	}

	// 优雅关闭
	errCh := make(chan error, 1)
	go func() {
		logger.Info("API Server listening", "addr", srv.Addr, "base_url", cfg.Server.BaseURL)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		logger.Info("Shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// openStore 按配置选择存储驱动
func openStore(cfg *config.Config, logger *logging.Logger) (storage.PersistentStore, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		return memstore.NewStore(), nil
	default:
		store, err := mongostore.NewStore(cfg.DatabaseURL, cfg.DatabaseName, logger.Component("mongostore"))
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		logger.Info("Connected to MongoDB", "database", cfg.DatabaseName)
		return store, nil
	}
}

// newRegistry 进程级指标 + Go 运行时指标
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
