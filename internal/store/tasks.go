package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"remindbot/internal/domain"
)

const taskColumns = `task_id, user_id, added_by, text, is_done, is_daily, created_at, last_reset, completed_at`

func (s *SQLite) AddTask(ctx context.Context, userID, addedBy int64, text string) (domain.Task, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, added_by, text, created_at)
		VALUES (?, ?, ?, ?)`,
		userID, addedBy, text, unix(now),
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Task{}, err
	}
	return s.getTask(ctx, id)
}

func (s *SQLite) getTask(ctx context.Context, taskID int64) (domain.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, taskID)
	t, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return t, err
}

// ToggleTask flips done and keeps completed_at consistent with it: stamped
// when the task turns done, cleared when it is undone. SQLite evaluates the
// SET expressions against the old row, so the CASE sees the pre-toggle state.
func (s *SQLite) ToggleTask(ctx context.Context, taskID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET is_done      = 1 - is_done,
		    completed_at = CASE WHEN is_done = 1 THEN NULL ELSE ? END
		WHERE task_id = ? AND user_id = ?`,
		unix(time.Now()), taskID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("toggle task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, fmt.Errorf("task %d for user %d: %w", taskID, userID, ErrNotFound)
	}

	var done int
	if err := s.db.QueryRowContext(ctx,
		`SELECT is_done FROM tasks WHERE task_id = ?`, taskID).Scan(&done); err != nil {
		return false, err
	}
	return done != 0, nil
}

func (s *SQLite) DeleteTask(ctx context.Context, taskID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return nil
}

func (s *SQLite) SetTaskDaily(ctx context.Context, taskID int64, daily bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET is_daily = ? WHERE task_id = ?`, boolToInt(daily), taskID)
	if err != nil {
		return fmt.Errorf("set task daily: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return nil
}

func (s *SQLite) ListTasks(ctx context.Context, userID int64) ([]domain.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (s *SQLite) ListUndoneTasks(ctx context.Context, userID int64) ([]domain.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND is_done = 0 ORDER BY created_at ASC`, userID)
}

func (s *SQLite) ListDailyTasks(ctx context.Context, userID int64) ([]domain.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND is_daily = 1 ORDER BY created_at ASC`, userID)
}

func (s *SQLite) listTasks(ctx context.Context, q string, args ...any) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func scanTask(scan func(...any) error) (domain.Task, error) {
	var (
		t         domain.Task
		done      int
		daily     int
		created   int64
		lastReset sql.NullInt64
		completed sql.NullInt64
	)
	if err := scan(
		&t.ID, &t.UserID, &t.AddedBy, &t.Text, &done, &daily,
		&created, &lastReset, &completed,
	); err != nil {
		return domain.Task{}, err
	}
	t.Done = done != 0
	t.Daily = daily != 0
	t.CreatedAt = fromUnix(created)
	t.LastReset = fromNullUnix(lastReset)
	t.CompletedAt = fromNullUnix(completed)
	return t, nil
}

// ResetDailyTasks runs in its own transaction so no reader observes a
// half-reset user.
func (s *SQLite) ResetDailyTasks(ctx context.Context, userID int64, now time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("reset daily: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET is_done = 0, last_reset = ?
		WHERE user_id = ? AND is_daily = 1`,
		unix(now), userID,
	)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("reset daily: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLite) CountCompletedInWindow(ctx context.Context, userID int64, start, end time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM tasks
		WHERE user_id = ?
		  AND completed_at IS NOT NULL
		  AND completed_at >= ?
		  AND completed_at < ?`,
		userID, unix(start), unix(end),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed: %w", err)
	}
	return n, nil
}
