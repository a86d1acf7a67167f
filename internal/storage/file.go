package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/AyanS2004/Labdetect/internal/models"
)

// FileStorage keeps the user set in a single JSON file keyed by email,
// the same shape the flat-file deployments already use. All access is
// serialized through one mutex; writes go through a temp file + rename
// so a crash never leaves a half-written user file.
type FileStorage struct {
	path string

	mu    sync.Mutex
	users map[string]models.User // keyed by email
}

func NewFileStorage(path string) (*FileStorage, error) {
	const op = "storage.NewFileStorage"

	s := &FileStorage{
		path:  path,
		users: make(map[string]models.User),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(data, &s.users); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

// save persists the user map. Caller must hold s.mu.
func (s *FileStorage) save() error {
	data, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}

func (s *FileStorage) CreateUser(ctx context.Context, user models.User) error {
	const op = "storage.FileStorage.CreateUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Email]; ok {
		return fmt.Errorf("%s: %w", op, ErrUserExists)
	}
	for _, u := range s.users {
		if u.ID == user.ID {
			return fmt.Errorf("%s: %w", op, ErrUserExists)
		}
	}

	s.users[user.Email] = user

	if err := s.save(); err != nil {
		delete(s.users, user.Email)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *FileStorage) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.FileStorage.GetUserByEmail"

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[email]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	return user, nil
}

func (s *FileStorage) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	const op = "storage.FileStorage.GetUserByID"

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.ID == userID {
			return user, nil
		}
	}

	return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
}

func (s *FileStorage) UpdateUser(ctx context.Context, userID string, upd models.UserUpdate) error {
	const op = "storage.FileStorage.UpdateUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	oldEmail := ""
	var user models.User
	for email, u := range s.users {
		if u.ID == userID {
			oldEmail, user = email, u
			break
		}
	}
	if oldEmail == "" {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	if upd.Email != nil && *upd.Email != oldEmail {
		if _, taken := s.users[*upd.Email]; taken {
			return fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		user.Email = *upd.Email
	}
	if upd.Name != nil {
		user.Name = *upd.Name
	}
	if upd.Role != nil {
		user.Role = *upd.Role
	}
	if upd.Avatar != nil {
		user.Avatar = *upd.Avatar
	}
	if upd.PasswordHash != nil {
		user.PasswordHash = *upd.PasswordHash
	}
	if upd.IsActive != nil {
		user.IsActive = *upd.IsActive
	}
	if upd.LastLogin != nil {
		user.LastLogin = upd.LastLogin
	}
	user.UpdatedAt = time.Now().UTC()

	prev := s.users[oldEmail]
	delete(s.users, oldEmail)
	s.users[user.Email] = user

	if err := s.save(); err != nil {
		delete(s.users, user.Email)
		s.users[oldEmail] = prev
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *FileStorage) CountActive(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, user := range s.users {
		if user.IsActive {
			count++
		}
	}

	return count, nil
}

func (s *FileStorage) ListActive(ctx context.Context, limit, offset int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		if user.IsActive {
			active = append(active, user)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.After(active[j].CreatedAt)
		}
		return active[i].ID < active[j].ID
	})

	if offset < 0 || offset >= len(active) {
		return []models.User{}, nil
	}
	active = active[offset:]
	if limit < len(active) {
		active = active[:limit]
	}

	return active, nil
}

// Ping verifies the user file location is writable, since every
// mutation has to persist there.
func (s *FileStorage) Ping(ctx context.Context) error {
	const op = "storage.FileStorage.Ping"

	check := s.path + ".ping"
	if err := os.WriteFile(check, nil, 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Remove(check); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *FileStorage) Close() {}
