package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on every start; each statement is idempotent.
//
// Role titles use a binary collation so uniqueness is case-sensitive.
// users.role_id is SET NULL when the referenced role goes away, and the
// trigger rejects deletion of system roles inside the DELETE statement
// itself, so there is no window between checking the flag and deleting.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS roles (
		id          CHAR(36)     NOT NULL,
		title       VARCHAR(100) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		system_role BOOLEAN      NOT NULL DEFAULT FALSE,
		created_at  DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		PRIMARY KEY (id),
		UNIQUE KEY uq_roles_title (title)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		first_name    VARCHAR(100) NOT NULL DEFAULT '',
		last_name     VARCHAR(100) NOT NULL DEFAULT '',
		role_id       CHAR(36)     NULL,
		created_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email),
		CONSTRAINT fk_users_role FOREIGN KEY (role_id) REFERENCES roles (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS login_history (
		id         CHAR(36)     NOT NULL,
		user_id    CHAR(36)     NOT NULL,
		logged_at  DATETIME(6)  NOT NULL,
		ip_address VARCHAR(64)  NOT NULL,
		user_agent VARCHAR(512) NULL,
		PRIMARY KEY (id),
		KEY ix_login_history_user (user_id, logged_at),
		CONSTRAINT fk_login_history_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS oauth_providers (
		id   CHAR(36)    NOT NULL,
		name VARCHAR(64) NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_oauth_providers_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS oauth_accounts (
		id               CHAR(36)     NOT NULL,
		user_id          CHAR(36)     NOT NULL,
		provider_id      CHAR(36)     NOT NULL,
		provider_user_id VARCHAR(255) NOT NULL,
		access_token     TEXT         NOT NULL,
		refresh_token    TEXT         NOT NULL,
		expires_at       DATETIME(6)  NULL,
		created_at       DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at       DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		PRIMARY KEY (id),
		UNIQUE KEY uq_oauth_accounts_user_provider (user_id, provider_id),
		KEY ix_oauth_accounts_provider_user (provider_id, provider_user_id),
		CONSTRAINT fk_oauth_accounts_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE,
		CONSTRAINT fk_oauth_accounts_provider FOREIGN KEY (provider_id) REFERENCES oauth_providers (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TRIGGER IF NOT EXISTS prevent_system_role_deletion
	BEFORE DELETE ON roles
	FOR EACH ROW
	BEGIN
		IF OLD.system_role THEN
			SIGNAL SQLSTATE '45000' SET MESSAGE_TEXT = 'Cannot delete system roles';
		END IF;
	END`,

	`INSERT IGNORE INTO roles (id, title, system_role) VALUES
		(UUID(), 'superuser', TRUE),
		(UUID(), 'admin', TRUE),
		(UUID(), 'subscriber', FALSE)`,
}

// Migrate applies the schema and seeds the built-in roles.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}
