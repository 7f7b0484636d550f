package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/safe-shortener/internal/adapter/auth"
	"github.com/vadimbarashkov/safe-shortener/internal/adapter/classifier"
	"github.com/vadimbarashkov/safe-shortener/internal/adapter/ratelimit"
	"github.com/vadimbarashkov/safe-shortener/internal/config"
	"github.com/vadimbarashkov/safe-shortener/internal/usecase"
	"github.com/vadimbarashkov/safe-shortener/migrations"
	"github.com/vadimbarashkov/safe-shortener/pkg/postgres"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/safe-shortener/internal/adapter/delivery/http"
	repo "github.com/vadimbarashkov/safe-shortener/internal/adapter/repository/postgres"
	pkgredis "github.com/vadimbarashkov/safe-shortener/pkg/redis"
)

const rateLimitPrefix = "ratelimit:shorten"

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := NewLogger(cfg)

	db, err := postgres.New(
		ctx,
		cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		postgres.WithConnectRetry(cfg.Postgres.ConnectAttempts, cfg.Postgres.ConnectBackoff),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(migrations.FS, cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	if err := BootstrapAdmin(ctx, cfg, logger, db); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = pkgredis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
		}
		defer rdb.Close()
	} else {
		logger.Warn("redis is not configured, shorten rate limiting is disabled")
	}

	handler, err := NewHandler(cfg, logger, db, rdb)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        handler,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("env", cfg.Env),
		)

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

// NewLogger builds the request logger: JSON at info level in prod, concise text
// with debug output everywhere else.
func NewLogger(cfg *config.Config) *httplog.Logger {
	opts := httplog.Options{
		LogLevel: slog.LevelDebug,
		Concise:  true,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	}

	if cfg.Env == config.EnvProd {
		opts.JSON = true
		opts.Concise = false
		opts.LogLevel = slog.LevelInfo
	}

	return httplog.NewLogger("safe-shortener", opts)
}

// BootstrapAdmin ensures the configured administrator exists. It does nothing
// when no bootstrap admin is configured.
func BootstrapAdmin(ctx context.Context, cfg *config.Config, logger *httplog.Logger, db *sqlx.DB) error {
	const op = "app.BootstrapAdmin"

	admin := cfg.Auth.BootstrapAdmin
	if !admin.Enabled() {
		return nil
	}

	users := usecase.NewUserUseCase(repo.NewUserRepository(db), logger.Logger,
		usecase.WithHashCost(cfg.Auth.BcryptCost),
	)

	if _, err := users.EnsureAdmin(ctx, admin.Name, admin.Email, admin.Password); err != nil {
		return fmt.Errorf("%s: failed to ensure bootstrap admin: %w", op, err)
	}

	return nil
}

// NewHandler wires repositories, adapters and use cases into the HTTP router.
// A nil rdb disables shorten rate limiting.
func NewHandler(cfg *config.Config, logger *httplog.Logger, db *sqlx.DB, rdb *redis.Client) (http.Handler, error) {
	const op = "app.NewHandler"

	urlRepo := repo.NewURLRepository(db)
	userRepo := repo.NewUserRepository(db)

	safety := classifier.New(
		cfg.Classifier.APIKey,
		classifier.WithEndpoint(cfg.Classifier.Endpoint),
		classifier.WithModel(cfg.Classifier.Model),
		classifier.WithTimeout(cfg.Classifier.Timeout),
	)
	if cfg.Classifier.APIKey == "" {
		logger.Warn("classifier api key is not configured, urls will not be checked")
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create token manager: %w", op, err)
	}

	svc := delivery.Services{
		URL: usecase.NewURLUseCase(urlRepo, safety, logger.Logger,
			usecase.WithShortCodeLength(cfg.ShortCodeLength),
			usecase.WithMaxRetries(cfg.MaxShortenRetries),
			usecase.WithRejectThreshold(cfg.Classifier.RejectThreshold),
			usecase.WithBaseURL(cfg.BaseURL),
		),
		User: usecase.NewUserUseCase(userRepo, logger.Logger,
			usecase.WithHashCost(cfg.Auth.BcryptCost),
		),
		Seeder: usecase.NewSeedUseCase(cfg.Env == config.EnvDev, userRepo, urlRepo, logger.Logger,
			usecase.WithSeedHashCost(cfg.Auth.BcryptCost),
		),
		Tokens: tokens,
	}

	if rdb != nil {
		svc.Limiter = ratelimit.NewLimiter(rdb, rateLimitPrefix, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	return delivery.NewRouter(logger, svc), nil
}
