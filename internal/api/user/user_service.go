package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hsm-gustavo/todo-go/internal/db"
)

// UserService reads and writes user records. Email is the partition key:
// every statement addresses a row by email.
type UserService struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

func NewUserService(store *db.Store) *UserService {
	return &UserService{
		db:    store.DB,
		table: store.Tables.Users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser assigns a fresh id and inserts u. A taken email yields
// db.ErrConflict.
func (s *UserService) CreateUser(ctx context.Context, u *db.User) error {
	u.ID = uuid.NewString()
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt

	query := fmt.Sprintf("INSERT INTO `%s` (email, id, password_digest, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, query, u.Email, u.ID, u.PasswordDigest, nullString(u.Name), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return db.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	query := fmt.Sprintf("SELECT id, email, password_digest, name, created_at, updated_at FROM `%s` WHERE email = ?", s.table)
	return s.scanOne(s.db.QueryRowContext(ctx, query, email))
}

// GetUser is a point read by partition key and id.
func (s *UserService) GetUser(ctx context.Context, email, id string) (*db.User, error) {
	query := fmt.Sprintf("SELECT id, email, password_digest, name, created_at, updated_at FROM `%s` WHERE email = ? AND id = ?", s.table)
	return s.scanOne(s.db.QueryRowContext(ctx, query, email, id))
}

func (s *UserService) UpdateName(ctx context.Context, u *db.User) error {
	u.UpdatedAt = s.now()
	query := fmt.Sprintf("UPDATE `%s` SET name = ?, updated_at = ? WHERE email = ? AND id = ?", s.table)
	return s.execOne(ctx, query, nullString(u.Name), u.UpdatedAt, u.Email, u.ID)
}

func (s *UserService) UpdatePasswordDigest(ctx context.Context, u *db.User) error {
	u.UpdatedAt = s.now()
	query := fmt.Sprintf("UPDATE `%s` SET password_digest = ?, updated_at = ? WHERE email = ? AND id = ?", s.table)
	return s.execOne(ctx, query, u.PasswordDigest, u.UpdatedAt, u.Email, u.ID)
}

func (s *UserService) scanOne(row *sql.Row) (*db.User, error) {
	var (
		u    db.User
		name sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordDigest, &name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if name.Valid {
		u.Name = &name.String
	}
	return &u, nil
}

func (s *UserService) execOne(ctx context.Context, query string, args ...any) error {
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

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
