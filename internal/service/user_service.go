package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
)

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	Count(ctx context.Context, email string) (int, error)
	List(ctx context.Context, email string, limit, offset int) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	SetRole(ctx context.Context, userID uuid.UUID, roleID uuid.NullUUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// NewUser is the input for creating an account.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileUpdate lists the fields to change; nil fields are left alone.
type ProfileUpdate struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
}

// MaxPageSize bounds every paginated listing.
const MaxPageSize = 100

// MaxPage keeps (page-1)*page_size within a MySQL INT offset for any
// allowed page size.
const MaxPage = math.MaxInt32 / MaxPageSize

// UserService manages accounts. It backs registration, the account
// endpoints, the admin users API and the worker.
type UserService struct {
	users  UserStore
	hasher PasswordHasher
	events EventPublisher
	log    *slog.Logger
}

func NewUserService(users UserStore, hasher PasswordHasher, events EventPublisher, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	if events == nil {
		events = NopPublisher{}
	}
	return &UserService{users: users, hasher: hasher, events: events, log: log}
}

// Create stores a new account. The email pre-check only produces a
// friendlier error early; the unique key on users.email decides.
func (s *UserService) Create(ctx context.Context, in NewUser) (model.User, error) {
	email := model.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return model.User{}, validationf("email and password are required")
	}
	switch _, err := s.users.GetByEmail(ctx, email); {
	case err == nil:
		return model.User{}, rejected(MsgEmailTaken, repository.ErrDuplicate)
	case !errors.Is(err, repository.ErrNotFound):
		return model.User{}, internal("lookup user", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, internal("hash password", err)
	}
	u := model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, rejected(MsgEmailTaken, err)
		}
		return model.User{}, internal("create user", err)
	}

	s.log.Info("user created", slog.String("user_id", u.ID.String()))
	publishEvent(ctx, s.events, s.log, queue.UserRegistered, queue.UserRegisteredEvent{
		UserID:       u.ID.String(),
		Email:        u.Email,
		RegisteredAt: timestamp(u.CreatedAt),
	})
	return u, nil
}

// Get returns the user with id.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, notFound(MsgUserNotFound, err)
		}
		return model.User{}, internal("get user", err)
	}
	return u, nil
}

func checkPage(page, pageSize int) error {
	if page < 1 {
		return validationf("page must be at least 1")
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return validationf("page_size must be between 1 and %d", MaxPageSize)
	}
	if page > math.MaxInt32/pageSize {
		return validationf("page must be at most %d", math.MaxInt32/pageSize)
	}
	return nil
}

// List pages through users, optionally filtered by exact email.
func (s *UserService) List(ctx context.Context, email string, page, pageSize int) (model.Page[model.User], error) {
	if err := checkPage(page, pageSize); err != nil {
		return model.Page[model.User]{}, err
	}
	out := model.Page[model.User]{Page: page, PageSize: pageSize, Items: []model.User{}}
	total, err := s.users.Count(ctx, email)
	if err != nil {
		return model.Page[model.User]{}, internal("count users", err)
	}
	out.Total = total
	if total == 0 {
		return out, nil
	}
	items, err := s.users.List(ctx, email, pageSize, out.Offset())
	if err != nil {
		return model.Page[model.User]{}, internal("list users", err)
	}
	if items != nil {
		out.Items = items
	}
	return out, nil
}

// Update applies upd to the user with id. A changed email must stay
// unique and is announced with an EmailUpdatedEvent.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	oldEmail := u.Email

	if upd.Email != nil {
		email := model.NormalizeEmail(*upd.Email)
		if email == "" {
			return model.User{}, validationf("email must not be empty")
		}
		u.Email = email
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			return model.User{}, validationf("password must not be empty")
		}
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return model.User{}, internal("hash password", err)
		}
		u.PasswordHash = hash
	}
	if upd.FirstName != nil {
		u.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		u.LastName = strings.TrimSpace(*upd.LastName)
	}

	if err := s.users.Update(ctx, &u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return model.User{}, rejected(MsgEmailTaken, err)
		case errors.Is(err, repository.ErrNotFound):
			return model.User{}, notFound(MsgUserNotFound, err)
		}
		return model.User{}, internal("update user", err)
	}

	if u.Email != oldEmail {
		publishEvent(ctx, s.events, s.log, queue.EmailUpdated, queue.EmailUpdatedEvent{
			UserID:    u.ID.String(),
			OldEmail:  oldEmail,
			NewEmail:  u.Email,
			UpdatedAt: timestamp(time.Now()),
		})
	}
	return u, nil
}

// Delete removes the user with id together with its history and links.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(MsgUserNotFound, err)
		}
		return internal("delete user", err)
	}
	s.log.Info("user deleted", slog.String("user_id", id.String()))
	return nil
}

// DeleteByEmail removes the user registered with email.
func (s *UserService) DeleteByEmail(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("No user found for email", err)
		}
		return internal("lookup user", err)
	}
	return s.Delete(ctx, u.ID)
}
