// internal/storage/user_store.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Corphon/AICodeReviewer/internal/models"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken 邮箱已被注册
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserIDTaken 用户 ID 已存在
	ErrUserIDTaken = errors.New("user id already exists")
)

// UserStore 用户账户存储
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// OpenUserStore 按名称打开存储后端: file 或 sqlite
func OpenUserStore(kind, dataDir, sqlitePath string) (UserStore, error) {
	switch kind {
	case "", "file":
		fs, err := NewFileStorage(dataDir)
		if err != nil {
			return nil, err
		}
		return NewFileUserStore(fs), nil
	case "sqlite":
		return NewSQLiteUserStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown user store: %s", kind)
	}
}

const usersDir = "users"

// FileUserStore 每个用户一个 JSON 文档
type FileUserStore struct {
	files *FileStorage
	// 邮箱唯一性检查与写入需要串行
	mu sync.Mutex
}

// NewFileUserStore 基于 FileStorage 创建用户存储
func NewFileUserStore(files *FileStorage) *FileUserStore {
	return &FileUserStore{files: files}
}

func userFile(id string) string {
	return id + ".json"
}

// Create 保存新用户，邮箱重复时返回 ErrEmailTaken
func (s *FileUserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.FindByEmail(ctx, user.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if existing != nil {
		return ErrEmailTaken
	}
	if _, err := s.FindByID(ctx, user.ID); err == nil {
		return ErrUserIDTaken
	}

	return s.files.SaveJSONFile(usersDir, userFile(user.ID), user)
}

// FindByEmail 邮箱不区分大小写
func (s *FileUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

// FindByID 按 ID 读取
func (s *FileUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := s.files.LoadJSONFile(usersDir, userFile(id), &user); err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List 按创建时间排序返回全部用户
func (s *FileUserStore) List(ctx context.Context) ([]*models.User, error) {
	names, err := s.files.ListFiles(usersDir, ".json")
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var user models.User
		if err := s.files.LoadJSONFile(usersDir, name, &user); err != nil {
			// 删除与列举并发时文件可能已消失
			if errors.Is(err, ErrNotExist) {
				continue
			}
			return nil, err
		}
		users = append(users, &user)
	}

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// Delete 删除用户
func (s *FileUserStore) Delete(ctx context.Context, id string) error {
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return ErrUserNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.files.DeleteFile(usersDir, userFile(id)); err != nil {
		if errors.Is(err, ErrNotExist) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// Close 关闭底层文件存储
func (s *FileUserStore) Close() error {
	return s.files.Close()
}
