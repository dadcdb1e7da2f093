package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"duplicate", &mysql.MySQLError{Number: 1062}, ErrDuplicate},
		{"foreign key", &mysql.MySQLError{Number: 1452}, ErrForeignKey},
		{"signal", &mysql.MySQLError{Number: 1644}, ErrSystemRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translate(tt.in))
		})
	}

	other := errors.New("boom")
	assert.Same(t, other, translate(other))
}

func TestUserRepo_GetByEmailJoinsRole(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	id, roleID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "first_name", "last_name", "role_id", "title", "created_at", "updated_at"}).
		AddRow(id.String(), "ann@example.com", "hash", "Ann", "Lee", roleID.String(), "admin", now, now)
	mock.ExpectQuery("FROM users u LEFT JOIN roles r").
		WithArgs("ann@example.com").
		WillReturnRows(rows)

	u, err := repo.GetByEmail(context.Background(), "  Ann@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.True(t, u.RoleID.Valid)
	assert.Equal(t, roleID, u.RoleID.UUID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByIDMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery("FROM users u").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.User{ID: uuid.New(), Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepo_SetRole(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE users SET role_id").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetRole(ctx, uuid.New(), uuid.NullUUID{UUID: uuid.New(), Valid: true}))

	mock.ExpectExec("UPDATE users SET role_id").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetRole(ctx, uuid.New(), uuid.NullUUID{}), ErrNotFound)

	mock.ExpectExec("UPDATE users SET role_id").WillReturnError(&mysql.MySQLError{Number: 1452})
	assert.ErrorIs(t, repo.SetRole(ctx, uuid.New(), uuid.NullUUID{UUID: uuid.New(), Valid: true}), ErrForeignKey)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepo_Delete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoleRepo(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM roles").WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Delete(ctx, uuid.New()))

	mock.ExpectExec("DELETE FROM roles").
		WillReturnError(&mysql.MySQLError{Number: 1644, Message: "Cannot delete system roles"})
	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), ErrSystemRole)

	mock.ExpectExec("DELETE FROM roles").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepo_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoleRepo(db)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, title, system_role, created_at FROM roles ORDER BY title").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "system_role", "created_at"}).
			AddRow(uuid.NewString(), "admin", true, now).
			AddRow(uuid.NewString(), "editor", false, now))

	roles, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.True(t, roles[0].SystemRole)
	assert.Equal(t, "editor", roles[1].Title)
}

func TestHistoryRepo_ListByUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHistoryRepo(db)
	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT").WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("ORDER BY logged_at DESC").
		WithArgs(userID, 2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "logged_at", "ip_address", "user_agent"}).
			AddRow(uuid.NewString(), userID.String(), now, "10.0.0.1", nil))

	page, err := repo.ListByUser(context.Background(), userID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages())
	require.Len(t, page.Items, 1)
	assert.Nil(t, page.Items[0].UserAgent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepo_ListByUserEmpty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHistoryRepo(db)

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	page, err := repo.ListByUser(context.Background(), uuid.New(), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthRepo_CreateLinkedUserRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOAuthRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO oauth_accounts").WillReturnError(&mysql.MySQLError{Number: 1452})
	mock.ExpectRollback()

	u := &model.User{ID: uuid.New(), Email: "x@yandex.oauth"}
	err := repo.CreateLinkedUser(context.Background(), u, &model.OAuthAccount{ProviderID: uuid.New(), ProviderUserID: "42"})
	assert.ErrorIs(t, err, ErrForeignKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthRepo_EnsureProvider(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOAuthRepo(db)
	id := uuid.New()

	mock.ExpectExec("INSERT IGNORE INTO oauth_providers").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, name FROM oauth_providers").WithArgs("yandex").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(id.String(), "yandex"))

	p, err := repo.EnsureProvider(context.Background(), "yandex")
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_ListFiltersByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users u WHERE u.email = \?`).
		WithArgs("bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	n, err := repo.Count(context.Background(), "Bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	now := time.Now().UTC()
	mock.ExpectQuery(`WHERE u.email = \? ORDER BY u.created_at, u.id LIMIT \? OFFSET \?`).
		WithArgs("bob@example.com", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "first_name", "last_name", "role_id", "title", "created_at", "updated_at"}).
			AddRow(uuid.NewString(), "bob@example.com", "h", "", "", nil, "", now, now))
	users, err := repo.List(context.Background(), "bob@example.com", 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.False(t, users[0].RoleID.Valid)
	assert.Equal(t, model.RoleNone, users[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}
