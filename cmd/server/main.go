package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/router"
	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/utils"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("config", slog.Any("err", err))
		os.Exit(1)
	}
	log := config.NewLogger(cfg.Env, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := database.Open(ctx, cfg.MySQL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		pub := service.NewQueuePublisher(cfg.RabbitMQ.URL, log)
		defer pub.Close()
		events = pub
	} else {
		log.Warn("RABBITMQ_URL not set, events are not published")
	}

	tokenStore := repository.NewTokenRepo(rdb, cfg.Redis.RetryBudget)
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     []byte(cfg.JWT.Secret),
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	}, tokenStore, log)

	userRepo := repository.NewUserRepo(db)
	users := service.NewUserService(userRepo, utils.BcryptHasher{Cost: cfg.BcryptCost}, events, log)
	auth, err := service.NewAuthService(users, repository.NewHistoryRepo(db), tokens, log)
	if err != nil {
		return err
	}
	roles := service.NewRoleService(repository.NewRoleRepo(db), userRepo, log)

	var providers []service.OAuthProvider
	if cfg.Yandex.Enabled() {
		providers = append(providers, service.NewYandexProvider(cfg.Yandex.ClientID, cfg.Yandex.ClientSecret, cfg.Yandex.RedirectURL))
	}
	oauth := service.NewOAuthService(repository.NewOAuthRepo(db), tokenStore, cfg.Yandex.CodeTTL, auth, log, providers...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("ip", v.RemoteIP),
				slog.String("request_id", v.RequestID))
			return nil
		},
	}))

	authH := handler.NewAuthHandler(auth, log)
	router.RegisterRoutes(e, handler.Ready{DB: db, RDB: rdb})
	router.RegisterAuth(e, authH, handler.NewAccountHandler(auth, users, log), tokens,
		middleware.NewTokenBucket(cfg.RateLimit, rdb, log))
	router.RegisterAdmin(e, authH, handler.NewRoleHandler(roles, log), handler.NewUsersHandler(users, log), tokens)
	router.RegisterOAuth(e, handler.NewOAuthHandler(oauth, cfg.Env == config.EnvProd, log))

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
