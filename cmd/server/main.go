// Package main initializes and starts the authentication server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, rate limiting, and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/gophlogin/internal/config"
	"github.com/atinyakov/gophlogin/internal/db"
	"github.com/atinyakov/gophlogin/internal/logger"
	"github.com/atinyakov/gophlogin/internal/metrics"
	"github.com/atinyakov/gophlogin/internal/rate"
	"github.com/atinyakov/gophlogin/internal/repository"
	"github.com/atinyakov/gophlogin/internal/server/handler/http"
	"github.com/atinyakov/gophlogin/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	rdb "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

// newLimiter picks Redis when configured, process memory otherwise.
// A nil limiter disables login rate limiting.
func newLimiter(ctx context.Context, options *config.Options, log *zap.Logger) (rate.Limiter, func(), error) {
	if options.LoginRateLimit <= 0 {
		return nil, func() {}, nil
	}
	window := time.Duration(options.LoginRateWindow)
	if options.RedisAddr == "" {
		log.Info("login rate limit in memory", zap.Int("max", options.LoginRateLimit), zap.Duration("window", window))
		return rate.NewMemoryLimiter(options.LoginRateLimit, window), func() {}, nil
	}

	client := rdb.NewClient(&rdb.Options{Addr: options.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info("login rate limit in redis", zap.String("addr", options.RedisAddr), zap.Int("max", options.LoginRateLimit))
	return rate.NewRedisLimiter(client, "gophlogin:rl:", options.LoginRateLimit, window), func() { _ = client.Close() }, nil
}

func run(ctx context.Context, options *config.Options, zapLogger *zap.Logger) error {
	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("cannot init database: %w", err)
	}
	defer postgresDB.Close()

	// Purge old sessions; their tokens stop authenticating.
	db.StartSessionCleaner(ctx, postgresDB,
		time.Hour,
		time.Duration(options.SessionRetention),
		zapLogger,
	)

	limiter, closeLimiter, err := newLimiter(ctx, options, zapLogger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// Initialize repositories, services and handlers.
	userRepo := repository.NewPostgresAuthRepository(postgresDB)
	sessionRepo := repository.NewPostgresSessionRepository(postgresDB)
	tokens := service.NewTokenIssuer([]byte(options.JWTSecret), time.Duration(options.TokenTTL))
	authService := service.NewAuthService(userRepo, sessionRepo, tokens, service.WithLogger(zapLogger))
	authHandler := &http.AuthHandler{AuthService: authService, Metrics: m, Log: zapLogger}

	router := http.NewRouter(authHandler, authService, limiter, m, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	useTLS := options.TLSCert != "" && options.TLSKey != ""
	if useTLS {
		cert, err := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
		if err != nil {
			return fmt.Errorf("failed to load server TLS cert/key: %w", err)
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("starting server", zap.String("addr", options.Port), zap.Bool("tls", useTLS))
		var err error
		if useTLS {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	// Parse command-line, .env, file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	log.Env = options.LogEnv
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, log.Log); err != nil {
		log.Log.Error("server stopped", zap.Error(err))
		_ = log.Log.Sync()
		stop()
		os.Exit(1)
	}
}
