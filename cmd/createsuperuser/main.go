// Command createsuperuser binds an account to the superuser role,
// creating the account and the role when they are missing.
//
//	createsuperuser -email root@example.com -password secret
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/utils"
)

func main() {
	email := flag.String("email", "", "account email")
	password := flag.String("password", os.Getenv("SUPERUSER_PASSWORD"), "password used when the account does not exist yet")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := config.NewLogger(cfg.Env, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.MySQL)
	if err != nil {
		log.Error("mysql", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Error("migrate", slog.Any("err", err))
		os.Exit(1)
	}

	userRepo := repository.NewUserRepo(db)
	users := service.NewUserService(userRepo, utils.BcryptHasher{Cost: cfg.BcryptCost}, nil, log)
	roles := service.NewRoleService(repository.NewRoleRepo(db), userRepo, log)

	u, err := promote(ctx, users, roles, *email, *password)
	if err != nil {
		log.Error("createsuperuser", slog.Any("err", err))
		os.Exit(1)
	}
	fmt.Printf("%s is now %s\n", u.Email, u.Role)
}

type accountCreator interface {
	Create(ctx context.Context, in service.NewUser) (model.User, error)
}

type superuserMaker interface {
	EnsureSuperuser(ctx context.Context, email string) (model.User, error)
}

// promote creates the account when needed and makes it a superuser.
func promote(ctx context.Context, users accountCreator, roles superuserMaker, email, password string) (model.User, error) {
	if email == "" {
		return model.User{}, errors.New("-email is required")
	}
	if password != "" {
		_, err := users.Create(ctx, service.NewUser{Email: email, Password: password})
		if err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, err
		}
	}
	return roles.EnsureSuperuser(ctx, email)
}
