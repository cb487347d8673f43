package store

import (
	"context"
	"fmt"
	"time"

	"remindbot/internal/domain"
)

func (s *SQLite) ListAdmins(ctx context.Context) ([]domain.AdminEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, added_by, added_at FROM admins ORDER BY added_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var res []domain.AdminEntry
	for rows.Next() {
		var (
			e     domain.AdminEntry
			added int64
		)
		if err := rows.Scan(&e.UserID, &e.AddedBy, &added); err != nil {
			return nil, err
		}
		e.AddedAt = fromUnix(added)
		res = append(res, e)
	}
	return res, rows.Err()
}

func (s *SQLite) InsertAdmin(ctx context.Context, e domain.AdminEntry) error {
	added := e.AddedAt
	if added.IsZero() {
		added = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (user_id, added_by, added_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		e.UserID, e.AddedBy, unix(added),
	)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteAdmin(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("admin %d: %w", userID, ErrNotFound)
	}
	return nil
}
