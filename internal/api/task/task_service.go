package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hsm-gustavo/todo-go/internal/db"
)

// TaskService persists tasks. Every statement is scoped by user_id, which
// callers take from the authenticated subject.
type TaskService struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

func NewTaskService(store *db.Store) *TaskService {
	return &TaskService{
		db:    store.DB,
		table: store.Tables.Tasks,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateTask mints a new id for t and inserts it.
func (s *TaskService) CreateTask(ctx context.Context, t *db.Task) error {
	t.ID = uuid.NewString()
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt

	query := fmt.Sprintf("INSERT INTO `%s` (user_id, id, title, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)", s.table)
	if _, err := s.db.ExecContext(ctx, query, t.UserID, t.ID, t.Title, t.Status, t.CreatedAt, t.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *TaskService) ListTasks(ctx context.Context, userID string) ([]db.Task, error) {
	query := fmt.Sprintf("SELECT id, title, status, user_id, created_at, updated_at FROM `%s` WHERE user_id = ? ORDER BY created_at, id", s.table)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	tasks := []db.Task{}
	for rows.Next() {
		var t db.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Status, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tasks, nil
}

// GetTask returns db.ErrNotFound both for a missing id and for a task owned
// by another user.
func (s *TaskService) GetTask(ctx context.Context, userID, id string) (*db.Task, error) {
	query := fmt.Sprintf("SELECT id, title, status, user_id, created_at, updated_at FROM `%s` WHERE user_id = ? AND id = ?", s.table)

	var t db.Task
	err := s.db.QueryRowContext(ctx, query, userID, id).
		Scan(&t.ID, &t.Title, &t.Status, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &t, nil
}

// UpdateTask writes title and status back. id and user_id are only used to
// address the row.
func (s *TaskService) UpdateTask(ctx context.Context, t *db.Task) error {
	t.UpdatedAt = s.now()
	query := fmt.Sprintf("UPDATE `%s` SET title = ?, status = ?, updated_at = ? WHERE user_id = ? AND id = ?", s.table)
	return s.execOne(ctx, query, t.Title, t.Status, t.UpdatedAt, t.UserID, t.ID)
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, id string) error {
	query := fmt.Sprintf("DELETE FROM `%s` WHERE user_id = ? AND id = ?", s.table)
	return s.execOne(ctx, query, userID, id)
}

func (s *TaskService) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}
