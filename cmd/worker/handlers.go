package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/service"
)

// accounts is the part of UserService the worker drives.
type accounts interface {
	Create(ctx context.Context, in service.NewUser) (model.User, error)
	DeleteByEmail(ctx context.Context, email string) error
}

func handlers(users accounts, log *slog.Logger) map[string]queue.HandlerFunc {
	return map[string]queue.HandlerFunc{
		queue.UserCreate: queue.JSON(createUser(users, log)),
		queue.UserDelete: queue.JSON(deleteUser(users, log)),
	}
}

// createUser treats an already registered email as done, so redelivered
// messages are harmless.
func createUser(users accounts, log *slog.Logger) func(context.Context, queue.UserCreateMessage) error {
	return func(ctx context.Context, m queue.UserCreateMessage) error {
		u, err := users.Create(ctx, service.NewUser{
			Email:     m.Email,
			Password:  m.Password,
			FirstName: m.FirstName,
			LastName:  m.LastName,
		})
		switch {
		case err == nil:
			log.Info("user created from queue", slog.String("user_id", u.ID.String()))
			return nil
		case errors.Is(err, repository.ErrDuplicate):
			log.Info("user already exists", slog.String("email", m.Email))
			return nil
		case service.KindOf(err) == service.KindValidation:
			return fmt.Errorf("%w: %v", queue.ErrBadPayload, err)
		}
		return err
	}
}

// deleteUser treats a missing account as already deleted.
func deleteUser(users accounts, log *slog.Logger) func(context.Context, queue.UserDeleteMessage) error {
	return func(ctx context.Context, m queue.UserDeleteMessage) error {
		if m.Email == "" {
			return fmt.Errorf("%w: email is required", queue.ErrBadPayload)
		}
		err := users.DeleteByEmail(ctx, m.Email)
		if err == nil {
			return nil
		}
		switch service.KindOf(err) {
		case service.KindNotFound:
			log.Info("user already gone", slog.String("email", m.Email))
			return nil
		case service.KindValidation:
			return fmt.Errorf("%w: %v", queue.ErrBadPayload, err)
		}
		return err
	}
}
