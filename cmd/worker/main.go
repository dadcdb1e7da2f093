// Command worker creates and deletes accounts on request of other
// services, consuming the auth.user.* queues.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
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
	if cfg.RabbitMQ.URL == "" {
		log.Error("RABBITMQ_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.MySQL)
	if err != nil {
		log.Error("mysql", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	var events service.EventPublisher = service.NewQueuePublisher(cfg.RabbitMQ.URL, log)
	users := service.NewUserService(repository.NewUserRepo(db), utils.BcryptHasher{Cost: cfg.BcryptCost}, events, log)

	c := &queue.Consumer{
		URL:      cfg.RabbitMQ.URL,
		Handlers: handlers(users, log),
		Log:      log,
		Prefetch: 10,
	}
	log.Info("worker started")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", slog.Any("err", err))
		os.Exit(1)
	}
}
