package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
)

// HistoryRepo appends and pages through `login_history`.
type HistoryRepo struct{ DB *sql.DB }

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{DB: db} }

// Add inserts one login event. Rows are never updated afterwards.
func (r *HistoryRepo) Add(ctx context.Context, h *model.LoginHistory) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO login_history (id, user_id, logged_at, ip_address, user_agent) VALUES (?,?,?,?,?)",
		h.ID, h.UserID, h.LoggedAt, h.IPAddress, h.UserAgent)
	return translate(err)
}

// ListByUser returns one page of the user's history, newest first.
// page is 1-based.
func (r *HistoryRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) (model.Page[model.LoginHistory], error) {
	out := model.Page[model.LoginHistory]{Page: page, PageSize: pageSize, Items: []model.LoginHistory{}}

	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM login_history WHERE user_id = ?", userID).Scan(&out.Total); err != nil {
		return model.Page[model.LoginHistory]{}, err
	}
	if out.Total == 0 {
		return out, nil
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, logged_at, ip_address, user_agent FROM login_history
		 WHERE user_id = ? ORDER BY logged_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, pageSize, out.Offset())
	if err != nil {
		return model.Page[model.LoginHistory]{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			h  model.LoginHistory
			ua sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.UserID, &h.LoggedAt, &h.IPAddress, &ua); err != nil {
			return model.Page[model.LoginHistory]{}, err
		}
		if ua.Valid {
			h.UserAgent = &ua.String
		}
		out.Items = append(out.Items, h)
	}
	return out, rows.Err()
}
