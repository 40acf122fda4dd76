package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Corphon/AICodeReviewer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(id, email string, created time.Time) *models.User {
	return &models.User{
		ID:        id,
		Username:  "user-" + id,
		Email:     email,
		Password:  "$2a$04$hash",
		CreatedAt: created,
	}
}

// storeFactories 两种后端跑同一组用例
func storeFactories() map[string]func(t *testing.T) UserStore {
	return map[string]func(t *testing.T) UserStore{
		"file": func(t *testing.T) UserStore {
			store, err := OpenUserStore("file", t.TempDir(), "")
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
		"sqlite": func(t *testing.T) UserStore {
			store, err := OpenUserStore("sqlite", "", filepath.Join(t.TempDir(), "users.db"))
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
		"sqlite-memory": func(t *testing.T) UserStore {
			store, err := NewSQLiteUserStore(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
	}
}

func TestUserStore(t *testing.T) {
	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			t.Run("create and find", func(t *testing.T) {
				store := open(t)
				ctx := context.Background()
				created := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)

				require.NoError(t, store.Create(ctx, newUser("u1", "ada@example.com", created)))

				byEmail, err := store.FindByEmail(ctx, "ADA@example.com")
				require.NoError(t, err)
				assert.Equal(t, "u1", byEmail.ID)
				assert.Equal(t, "user-u1", byEmail.Username)
				assert.True(t, created.Equal(byEmail.CreatedAt))

				byID, err := store.FindByID(ctx, "u1")
				require.NoError(t, err)
				assert.Equal(t, "ada@example.com", byID.Email)
				assert.Equal(t, "$2a$04$hash", byID.Password)
			})

			t.Run("duplicate email", func(t *testing.T) {
				store := open(t)
				ctx := context.Background()

				require.NoError(t, store.Create(ctx, newUser("u1", "ada@example.com", time.Now())))
				err := store.Create(ctx, newUser("u2", "Ada@Example.com", time.Now()))
				assert.ErrorIs(t, err, ErrEmailTaken)
			})

			t.Run("duplicate id", func(t *testing.T) {
				store := open(t)
				ctx := context.Background()

				require.NoError(t, store.Create(ctx, newUser("u1", "ada@example.com", time.Now())))
				err := store.Create(ctx, newUser("u1", "bob@example.com", time.Now()))
				assert.ErrorIs(t, err, ErrUserIDTaken)
				assert.NotErrorIs(t, err, ErrEmailTaken)

				kept, err := store.FindByID(ctx, "u1")
				require.NoError(t, err)
				assert.Equal(t, "ada@example.com", kept.Email)
			})

			t.Run("not found", func(t *testing.T) {
				store := open(t)
				ctx := context.Background()

				_, err := store.FindByEmail(ctx, "ghost@example.com")
				assert.ErrorIs(t, err, ErrUserNotFound)
				_, err = store.FindByID(ctx, "missing")
				assert.ErrorIs(t, err, ErrUserNotFound)
				assert.ErrorIs(t, store.Delete(ctx, "missing"), ErrUserNotFound)
			})

			t.Run("list ordered by creation", func(t *testing.T) {
				store := open(t)
				ctx := context.Background()
				base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

				require.NoError(t, store.Create(ctx, newUser("c", "c@example.com", base.Add(2*time.Hour))))
				require.NoError(t, store.Create(ctx, newUser("a", "a@example.com", base)))
				require.NoError(t, store.Create(ctx, newUser("b", "b@example.com", base.Add(time.Hour))))
				require.NoError(t, store.Create(ctx, newUser("d", "d@example.com", base.Add(500*time.Millisecond))))

				users, err := store.List(ctx)
				require.NoError(t, err)
				ids := make([]string, len(users))
				for i, u := range users {
					ids[i] = u.ID
				}
				assert.Equal(t, []string{"a", "d", "b", "c"}, ids)
			})

			t.Run("empty list", func(t *testing.T) {
				users, err := open(t).List(context.Background())
				require.NoError(t, err)
				assert.Empty(t, users)
			})

			t.Run("delete", func(t *testing.T) {
				store := open(t)
				ctx := context.Background()

				require.NoError(t, store.Create(ctx, newUser("u1", "ada@example.com", time.Now())))
				require.NoError(t, store.Delete(ctx, "u1"))

				_, err := store.FindByID(ctx, "u1")
				assert.ErrorIs(t, err, ErrUserNotFound)
				assert.ErrorIs(t, store.Delete(ctx, "u1"), ErrUserNotFound)

				// 删除后邮箱可以重新注册
				require.NoError(t, store.Create(ctx, newUser("u2", "ada@example.com", time.Now())))
			})

			t.Run("concurrent signup with same email", func(t *testing.T) {
				store := open(t)
				ctx := context.Background()

				var wg sync.WaitGroup
				errs := make(chan error, 8)
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						errs <- store.Create(ctx, newUser(fmt.Sprintf("u%d", i), "race@example.com", time.Now()))
					}(i)
				}
				wg.Wait()
				close(errs)

				ok := 0
				for err := range errs {
					if err == nil {
						ok++
						continue
					}
					assert.ErrorIs(t, err, ErrEmailTaken)
				}
				assert.Equal(t, 1, ok)
			})
		})
	}
}

func TestFileUserStore_RejectsPathLikeIDs(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer fs.Close()

	store := NewFileUserStore(fs)
	ctx := context.Background()

	for _, id := range []string{"", "../config", "a/b", `a\b`} {
		_, err := store.FindByID(ctx, id)
		assert.ErrorIs(t, err, ErrUserNotFound, "id %q", id)
		assert.ErrorIs(t, store.Delete(ctx, id), ErrUserNotFound, "id %q", id)
	}
}

func TestOpenUserStore_UnknownKind(t *testing.T) {
	_, err := OpenUserStore("mongo", t.TempDir(), "")
	assert.Error(t, err)
}
