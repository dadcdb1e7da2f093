package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
)

const userColumns = `u.id, u.email, u.password_hash, u.first_name, u.last_name,
	u.role_id, COALESCE(r.title, ''), u.created_at, u.updated_at`

const userFrom = ` FROM users u LEFT JOIN roles r ON r.id = u.role_id`

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u     model.User
		title string
	)
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.RoleID, &title, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, translate(err)
	}
	u.Role = model.ParseRoleName(title)
	return u, nil
}

// Create inserts a user. The caller sets ID and PasswordHash; timestamps
// are filled in here. A taken email surfaces as ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, role_id, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.RoleID, u.CreatedAt, u.UpdatedAt)
	return translate(err)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+userFrom+" WHERE u.email = ? LIMIT 1",
		model.NormalizeEmail(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+userFrom+" WHERE u.id = ? LIMIT 1", id)
	return scanUser(row)
}

func userFilter(email string) (string, []any) {
	var (
		where []string
		args  []any
	)
	if email != "" {
		where = append(where, "u.email = ?")
		args = append(args, model.NormalizeEmail(email))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// Count returns how many users List would page through.
func (r *UserRepo) Count(ctx context.Context, email string) (int, error) {
	where, args := userFilter(email)
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users u"+where, args...).Scan(&n)
	return n, err
}

// List returns users ordered by creation time, optionally filtered by
// exact email.
func (r *UserRepo) List(ctx context.Context, email string, limit, offset int) ([]model.User, error) {
	where, args := userFilter(email)
	q := "SELECT " + userColumns + userFrom + where + " ORDER BY u.created_at, u.id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update writes the mutable profile columns and bumps updated_at.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET email = ?, password_hash = ?, first_name = ?, last_name = ?, updated_at = ?
		 WHERE id = ?`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.UpdatedAt, u.ID)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}

// SetRole points the user at roleID, or clears the reference when roleID
// is invalid. An unknown role surfaces as ErrForeignKey, an unknown user
// as ErrNotFound.
func (r *UserRepo) SetRole(ctx context.Context, userID uuid.UUID, roleID uuid.NullUUID) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role_id = ?, updated_at = ? WHERE id = ?",
		roleID, time.Now().UTC(), userID)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}

// Delete removes a user; login history and OAuth links cascade.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}
