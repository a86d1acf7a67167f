package storage

import (
	"context"
	"errors"

	"github.com/AyanS2004/Labdetect/internal/models"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
)

// Storage is the credential store behind the account operations. Both
// implementations must make CreateUser an atomic unique insert on
// email and id, and UpdateUser an atomic partial update that stamps
// updated_at.
type Storage interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, userID string) (models.User, error)

	// UpdateUser applies the non-nil fields of upd to the record with
	// the given id. An email change is checked for uniqueness against
	// every other record and fails with ErrEmailTaken on collision,
	// leaving the record unchanged.
	UpdateUser(ctx context.Context, userID string, upd models.UserUpdate) error

	CountActive(ctx context.Context) (int, error)

	// ListActive returns active users ordered by created_at descending.
	ListActive(ctx context.Context, limit, offset int) ([]models.User, error)

	Ping(ctx context.Context) error
	Close()
}
