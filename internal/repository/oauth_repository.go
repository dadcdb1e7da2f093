package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
)

// OAuthRepo stores providers and the accounts linking users to them.
type OAuthRepo struct{ DB *sql.DB }

func NewOAuthRepo(db *sql.DB) *OAuthRepo { return &OAuthRepo{DB: db} }

// EnsureProvider returns the provider row named name, creating it first
// when missing.
func (r *OAuthRepo) EnsureProvider(ctx context.Context, name string) (model.OAuthProvider, error) {
	if _, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO oauth_providers (id, name) VALUES (?,?)", uuid.New(), name); err != nil {
		return model.OAuthProvider{}, translate(err)
	}
	var p model.OAuthProvider
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name FROM oauth_providers WHERE name = ? LIMIT 1", name).Scan(&p.ID, &p.Name)
	if err != nil {
		return model.OAuthProvider{}, translate(err)
	}
	return p, nil
}

// UserIDByAccount resolves the user linked to providerUserID at the
// provider, or ErrNotFound.
func (r *OAuthRepo) UserIDByAccount(ctx context.Context, providerID uuid.UUID, providerUserID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id FROM oauth_accounts
		 WHERE provider_id = ? AND provider_user_id = ? ORDER BY updated_at DESC LIMIT 1`,
		providerID, providerUserID).Scan(&id)
	if err != nil {
		return uuid.Nil, translate(err)
	}
	return id, nil
}

const upsertAccount = `INSERT INTO oauth_accounts
	(id, user_id, provider_id, provider_user_id, access_token, refresh_token, expires_at, created_at, updated_at)
	VALUES (?,?,?,?,?,?,?,?,?)
	ON DUPLICATE KEY UPDATE
		provider_user_id = VALUES(provider_user_id),
		access_token     = VALUES(access_token),
		refresh_token    = VALUES(refresh_token),
		expires_at       = VALUES(expires_at),
		updated_at       = VALUES(updated_at)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertAccountWith(ctx context.Context, db execer, a *model.OAuthAccount) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.UpdatedAt = now
	_, err := db.ExecContext(ctx, upsertAccount,
		a.ID, a.UserID, a.ProviderID, a.ProviderUserID, a.AccessToken, a.RefreshToken, a.ExpiresAt, now, now)
	return translate(err)
}

// UpsertAccount inserts the link or refreshes the stored provider tokens
// when the user is already linked to that provider.
func (r *OAuthRepo) UpsertAccount(ctx context.Context, a *model.OAuthAccount) error {
	return upsertAccountWith(ctx, r.DB, a)
}

// CreateLinkedUser inserts a user together with its first provider link
// in one transaction.
func (r *OAuthRepo) CreateLinkedUser(ctx context.Context, u *model.User, a *model.OAuthAccount) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, role_id, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.RoleID, u.CreatedAt, u.UpdatedAt); err != nil {
		return fmt.Errorf("insert user: %w", translate(err))
	}
	a.UserID = u.ID
	if err := upsertAccountWith(ctx, tx, a); err != nil {
		return fmt.Errorf("insert oauth account: %w", err)
	}
	return tx.Commit()
}
