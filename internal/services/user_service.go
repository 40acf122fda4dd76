// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/Corphon/AICodeReviewer/internal/errors"
	"github.com/Corphon/AICodeReviewer/internal/models"
	"github.com/Corphon/AICodeReviewer/internal/storage"
	"github.com/Corphon/AICodeReviewer/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// 与前端约定的提示文案
const (
	MsgUserExists         = "User already exists"
	MsgInvalidCredentials = "Invalid credentials"
	MsgUserNotFound       = "User not found"
)

// UserService 处理用户相关的业务逻辑
type UserService struct {
	store      storage.UserStore
	hashCost   int
	logger     *utils.Logger
	now        func() time.Time
	adminEmail string
}

// UserServiceOption 可选配置
type UserServiceOption func(*UserService)

// WithHashCost 指定 bcrypt 成本（测试中使用 bcrypt.MinCost）
func WithHashCost(cost int) UserServiceOption {
	return func(s *UserService) { s.hashCost = cost }
}

// WithAdminEmail 该邮箱注册的账户自动成为管理员
func WithAdminEmail(email string) UserServiceOption {
	return func(s *UserService) { s.adminEmail = normalizeEmail(email) }
}

// NewUserService 创建用户服务
func NewUserService(store storage.UserStore, opts ...UserServiceOption) *UserService {
	s := &UserService{
		store:    store,
		hashCost: bcrypt.DefaultCost,
		logger:   utils.GetLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup 注册新用户，邮箱重复时返回校验错误
func (s *UserService) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, apperrors.NewValidationError("username, email and password are required", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, apperrors.NewValidationError("password cannot be hashed", err)
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Password:  string(hash),
		IsAdmin:   s.adminEmail != "" && email == s.adminEmail,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, apperrors.NewValidationError(MsgUserExists, err)
		}
		return nil, apperrors.WrapError(err, "Error registering user", apperrors.ErrorTypeError)
	}

	s.logger.Info("👤 新用户注册", map[string]interface{}{
		"user_id":  user.ID,
		"is_admin": user.IsAdmin,
	})
	return user, nil
}

// Login 校验邮箱和密码
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperrors.NewUnauthorizedError(MsgInvalidCredentials, nil)
		}
		return nil, apperrors.WrapError(err, "Error logging in", apperrors.ErrorTypeError)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.NewUnauthorizedError(MsgInvalidCredentials, nil)
	}
	return user, nil
}

// GetUser 按 ID 获取用户
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError(MsgUserNotFound, err)
		}
		return nil, apperrors.WrapError(err, "Error fetching user", apperrors.ErrorTypeError)
	}
	return user, nil
}

// ListUsers 返回不含密码的用户列表
func (s *UserService) ListUsers(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, apperrors.WrapError(err, "Error fetching users", apperrors.ErrorTypeError)
	}

	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// DeleteUser 删除用户
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return apperrors.NewNotFoundError(MsgUserNotFound, err)
		}
		return apperrors.WrapError(err, "Error deleting user", apperrors.ErrorTypeError)
	}

	s.logger.Info("🗑️ 用户已删除", map[string]interface{}{"user_id": id})
	return nil
}
