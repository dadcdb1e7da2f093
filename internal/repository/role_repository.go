package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
)

// RoleRepo persists rows of the `roles` table. Uniqueness of titles and
// protection of system roles are left to the schema.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

const roleColumns = "id, title, system_role, created_at"

func scanRole(s rowScanner) (model.Role, error) {
	var r model.Role
	if err := s.Scan(&r.ID, &r.Title, &r.SystemRole, &r.CreatedAt); err != nil {
		return model.Role{}, translate(err)
	}
	return r, nil
}

// Create inserts a role. A taken title surfaces as ErrDuplicate.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) error {
	role.CreatedAt = time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (id, title, system_role, created_at) VALUES (?,?,?,?)",
		role.ID, role.Title, role.SystemRole, role.CreatedAt)
	return translate(err)
}

// Delete removes a role in a single statement. The trigger on `roles`
// aborts it for system roles (ErrSystemRole); users holding the role have
// their reference set to NULL by the foreign key.
func (r *RoleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}

// Rename changes a role title.
func (r *RoleRepo) Rename(ctx context.Context, id uuid.UUID, title string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE roles SET title = ? WHERE id = ?", title, id)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}

func (r *RoleRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Role, error) {
	return scanRole(r.DB.QueryRowContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE id = ? LIMIT 1", id))
}

func (r *RoleRepo) GetByTitle(ctx context.Context, title string) (model.Role, error) {
	return scanRole(r.DB.QueryRowContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE title = ? LIMIT 1", title))
}

// List returns every role ordered by title.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+roleColumns+" FROM roles ORDER BY title")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}
