// internal/storage/sqlite_user_store.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Corphon/AICodeReviewer/internal/models"

	_ "modernc.org/sqlite"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE COLLATE NOCASE,
	password   TEXT NOT NULL,
	is_admin   INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_created ON users(created_at);
`

// 定宽时间格式，保证按字符串排序即按时间排序
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteUserStore 基于 SQLite 的用户存储
type SQLiteUserStore struct {
	db *sql.DB
}

// NewSQLiteUserStore 打开（或创建）数据库文件；path 为 ":memory:" 时使用内存库
func NewSQLiteUserStore(path string) (*SQLiteUserStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// 内存库每个连接都是独立的数据库
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(usersSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}

	return &SQLiteUserStore{db: db}, nil
}

// Create 插入用户，邮箱冲突返回 ErrEmailTaken，ID 冲突返回 ErrUserIDTaken
func (s *SQLiteUserStore) Create(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.Password, user.IsAdmin, user.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		switch msg := err.Error(); {
		case strings.Contains(msg, "UNIQUE constraint failed: users.email"):
			return ErrEmailTaken
		case strings.Contains(msg, "UNIQUE constraint failed: users.id"):
			return ErrUserIDTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail 邮箱不区分大小写
func (s *SQLiteUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password, is_admin, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// FindByID 按 ID 查询
func (s *SQLiteUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password, is_admin, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// List 按创建时间排序
func (s *SQLiteUserStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, email, password, is_admin, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Delete 删除用户
func (s *SQLiteUserStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Close 关闭数据库
func (s *SQLiteUserStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user      models.User
		createdAt string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.IsAdmin, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	t, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	user.CreatedAt = t
	return &user, nil
}
