package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// RoleStore persists roles. Title uniqueness and system-role protection
// are enforced by the store itself.
type RoleStore interface {
	Create(ctx context.Context, r *model.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	Rename(ctx context.Context, id uuid.UUID, title string) error
	GetByID(ctx context.Context, id uuid.UUID) (model.Role, error)
	GetByTitle(ctx context.Context, title string) (model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
}

const maxRoleTitle = 100

// RoleService manages roles and the role held by each user. Callers are
// expected to have checked the superuser claim already.
type RoleService struct {
	roles RoleStore
	users UserStore
	log   *slog.Logger
}

func NewRoleService(roles RoleStore, users UserStore, log *slog.Logger) *RoleService {
	if log == nil {
		log = slog.Default()
	}
	return &RoleService{roles: roles, users: users, log: log}
}

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationf("title is required")
	}
	if utf8.RuneCountInString(title) > maxRoleTitle {
		return "", validationf("title must be at most %d characters", maxRoleTitle)
	}
	return title, nil
}

// CreateRole adds a non-system role.
func (s *RoleService) CreateRole(ctx context.Context, title string) (model.Role, error) {
	title, err := cleanTitle(title)
	if err != nil {
		return model.Role{}, err
	}
	r := model.Role{ID: uuid.New(), Title: title}
	if err := s.roles.Create(ctx, &r); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Role{}, validationf("Role with title %q already exist", title)
		}
		return model.Role{}, internal("create role", err)
	}
	s.log.Info("role created", slog.String("role_id", r.ID.String()), slog.String("title", r.Title))
	return r, nil
}

// RemoveRole deletes a role. Users holding it are left without a role.
// The system-role check happens inside the delete statement.
func (s *RoleService) RemoveRole(ctx context.Context, id uuid.UUID) error {
	if err := s.roles.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return notFound(MsgRoleNotFound, err)
		case errors.Is(err, repository.ErrSystemRole):
			return validationf(MsgSystemRole)
		}
		return internal("delete role", err)
	}
	s.log.Info("role deleted", slog.String("role_id", id.String()))
	return nil
}

// ModifyRole renames a role.
func (s *RoleService) ModifyRole(ctx context.Context, id uuid.UUID, title string) (model.Role, error) {
	title, err := cleanTitle(title)
	if err != nil {
		return model.Role{}, err
	}
	if err := s.roles.Rename(ctx, id, title); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return model.Role{}, notFound(MsgRoleNotFound, err)
		case errors.Is(err, repository.ErrDuplicate):
			return model.Role{}, validationf("Role with title %q already exist", title)
		}
		return model.Role{}, internal("rename role", err)
	}
	r, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Role{}, notFound(MsgRoleNotFound, err)
		}
		return model.Role{}, internal("get role", err)
	}
	return r, nil
}

// GetAllRoles lists every role.
func (s *RoleService) GetAllRoles(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, internal("list roles", err)
	}
	return roles, nil
}

// AssignRole gives the user the role, replacing any previous one.
func (s *RoleService) AssignRole(ctx context.Context, roleID, userID uuid.UUID) error {
	err := s.users.SetRole(ctx, userID, uuid.NullUUID{UUID: roleID, Valid: true})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrForeignKey):
			return notFound(MsgRoleNotFound, err)
		case errors.Is(err, repository.ErrNotFound):
			return notFound(MsgUserNotFound, err)
		}
		return internal("assign role", err)
	}
	s.log.Info("role assigned", slog.String("role_id", roleID.String()), slog.String("user_id", userID.String()))
	return nil
}

// RevokeRole clears the user's role.
func (s *RoleService) RevokeRole(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.SetRole(ctx, userID, uuid.NullUUID{}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(MsgUserNotFound, err)
		}
		return internal("revoke role", err)
	}
	s.log.Info("role revoked", slog.String("user_id", userID.String()))
	return nil
}

// EnsureSuperuser makes the user with email hold the superuser role,
// creating the role as a system role first when it is missing.
func (s *RoleService) EnsureSuperuser(ctx context.Context, email string) (model.User, error) {
	role, err := s.roles.GetByTitle(ctx, model.RoleSuperuser.String())
	if errors.Is(err, repository.ErrNotFound) {
		role = model.Role{ID: uuid.New(), Title: model.RoleSuperuser.String(), SystemRole: true}
		err = s.roles.Create(ctx, &role)
		if errors.Is(err, repository.ErrDuplicate) {
			role, err = s.roles.GetByTitle(ctx, model.RoleSuperuser.String())
		}
	}
	if err != nil {
		return model.User{}, internal("ensure superuser role", err)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, notFound("No user found for email", err)
		}
		return model.User{}, internal("lookup user", err)
	}
	if err := s.AssignRole(ctx, role.ID, u.ID); err != nil {
		return model.User{}, err
	}
	u.RoleID = uuid.NullUUID{UUID: role.ID, Valid: true}
	u.Role = role.Name()
	return u, nil
}
