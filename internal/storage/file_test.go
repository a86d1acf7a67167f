package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AyanS2004/Labdetect/internal/models"
)

func newTestStore(t *testing.T) *FileStorage {
	t.Helper()

	s, err := NewFileStorage(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

func testUser(id, email string, createdAt time.Time) models.User {
	return models.User{
		ID:           id,
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hash",
		Role:         models.RoleAnalyst,
		IsActive:     true,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestFileStorage_CreateAndGet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	user := testUser("user_00000001", "alice@example.com", time.Now().UTC())
	require.NoError(t, s.CreateUser(ctx, user))

	got, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got, err = s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = s.GetUserByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = s.CreateUser(ctx, testUser("user_00000002", "alice@example.com", time.Now().UTC()))
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestFileStorage_ConcurrentRegister(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	const workers = 16

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := testUser("user_"+string(rune('a'+i))+"0000000", "race@example.com", time.Now().UTC())
			errs[i] = s.CreateUser(ctx, u)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrUserExists)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent register may win")
}

func TestFileStorage_UpdateUser(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	created := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.CreateUser(ctx, testUser("user_00000001", "alice@example.com", created)))
	require.NoError(t, s.CreateUser(ctx, testUser("user_00000002", "bob@example.com", created)))

	name := "Alice"
	require.NoError(t, s.UpdateUser(ctx, "user_00000001", models.UserUpdate{Name: &name}))

	got, err := s.GetUserByID(ctx, "user_00000001")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "alice@example.com", got.Email, "unset fields stay untouched")
	assert.True(t, got.UpdatedAt.After(created))

	// email collision with another record leaves both unchanged
	taken := "bob@example.com"
	err = s.UpdateUser(ctx, "user_00000001", models.UserUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err = s.GetUserByID(ctx, "user_00000001")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	// changing email re-keys the record
	fresh := "alice.new@example.com"
	require.NoError(t, s.UpdateUser(ctx, "user_00000001", models.UserUpdate{Email: &fresh}))
	got, err = s.GetUserByEmail(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, "user_00000001", got.ID)
	_, err = s.GetUserByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = s.UpdateUser(ctx, "user_missing", models.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFileStorage_ListActive(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		u := testUser(
			"user_0000000"+string(rune('0'+i)),
			string(rune('a'+i))+"@example.com",
			base.Add(time.Duration(i)*time.Minute),
		)
		require.NoError(t, s.CreateUser(ctx, u))
	}

	// deactivate one user; listings must skip it
	inactive := false
	require.NoError(t, s.UpdateUser(ctx, "user_00000002", models.UserUpdate{IsActive: &inactive}))

	total, err := s.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	users, err := s.ListActive(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "user_00000004", users[0].ID, "newest first")
	assert.Equal(t, "user_00000003", users[1].ID)

	users, err = s.ListActive(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "user_00000001", users[0].ID)
	assert.Equal(t, "user_00000000", users[1].ID)

	users, err = s.ListActive(ctx, 10, 100)
	require.NoError(t, err)
	assert.Empty(t, users)

	// a wrapped-around offset is past the end, not a slice panic
	users, err = s.ListActive(ctx, 10, -20)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFileStorage_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "users.json")
	ctx := context.Background()

	s, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(ctx, testUser("user_00000001", "alice@example.com", time.Now().UTC())))
	s.Close()

	reopened, err := NewFileStorage(path)
	require.NoError(t, err)

	got, err := reopened.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user_00000001", got.ID)
}

func TestFileStorage_Ping(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))

	missing := &FileStorage{path: "/nonexistent/dir/users.json", users: map[string]models.User{}}
	assert.Error(t, missing.Ping(context.Background()))
}

func TestFileStorage_DuplicateID(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("user_00000001", "alice@example.com", time.Now().UTC())))

	err := s.CreateUser(ctx, testUser("user_00000001", "other@example.com", time.Now().UTC()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserExists))
}
