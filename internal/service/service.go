package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/AyanS2004/Labdetect/internal/auth"
	"github.com/AyanS2004/Labdetect/internal/models"
	"github.com/AyanS2004/Labdetect/internal/storage"
)

const minPasswordLen = 8

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ProfileUpdate carries the allow-listed profile fields. Nil means the
// field was not supplied; anything outside this set is dropped by the
// handler before it gets here.
type ProfileUpdate struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Role   *string `json:"role"`
	Avatar *string `json:"avatar"`
}

type AuthResult struct {
	User         models.PublicUser
	AccessToken  string
	RefreshToken string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type UserPage struct {
	Users      []models.PublicUser
	Pagination models.Pagination
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
	Logout(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (models.PublicUser, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) error
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error
	ListUsers(ctx context.Context, callerID string, page, limit int) (UserPage, error)
}

type service struct {
	storage storage.Storage
	tokens  *auth.Manager
	log     *slog.Logger
}

func NewService(st storage.Storage, tokens *auth.Manager, lgr *slog.Logger) *service {
	return &service{
		storage: st,
		tokens:  tokens,
		log:     lgr,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (AuthResult, error) {
	const op = "service.Register"

	log := s.log.With(slog.String("op", op))

	if req.Name == "" || req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
		return AuthResult{}, errValidation("Missing required fields")
	}
	if req.Password != req.ConfirmPassword {
		return AuthResult{}, errValidation("Passwords do not match")
	}
	if len(req.Password) < minPasswordLen {
		return AuthResult{}, errValidation("Password must be at least 8 characters")
	}

	_, err := s.storage.GetUserByEmail(ctx, req.Email)
	if err == nil {
		return AuthResult{}, errConflict("User already exists")
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return AuthResult{}, errInternal("Registration failed", err)
	}

	userID, err := auth.NewUserID()
	if err != nil {
		return AuthResult{}, errInternal("Registration failed", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           userID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: auth.HashPassword(req.Password),
		Role:         models.RoleAnalyst,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// the store's unique insert is the race-safety net for concurrent
	// registrations with the same email
	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return AuthResult{}, errConflict("User already exists")
		}
		return AuthResult{}, errInternal("Registration failed", err)
	}

	log.Info("new user registered",
		slog.String("email", user.Email), slog.String("user_id", user.ID))

	access, refresh, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return AuthResult{}, errInternal("Registration failed", err)
	}

	// best-effort last_login stamp; registration already succeeded
	loginAt := time.Now().UTC()
	if err := s.storage.UpdateUser(ctx, user.ID, models.UserUpdate{LastLogin: &loginAt}); err != nil {
		log.Error("failed to stamp last login", slog.Any("error", err))
	}

	return AuthResult{
		User:         user.Public(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (AuthResult, error) {
	const op = "service.Login"

	log := s.log.With(slog.String("op", op))

	if req.Email == "" || req.Password == "" {
		return AuthResult{}, errValidation("Email and password are required")
	}

	// unknown email, wrong password and deactivated account all return
	// the same response so accounts cannot be enumerated
	user, err := s.storage.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return AuthResult{}, errAuth("Invalid credentials")
		}
		return AuthResult{}, errInternal("Login failed", err)
	}
	if !user.IsActive {
		return AuthResult{}, errAuth("Invalid credentials")
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		return AuthResult{}, errAuth("Invalid credentials")
	}

	loginAt := time.Now().UTC()
	if err := s.storage.UpdateUser(ctx, user.ID, models.UserUpdate{LastLogin: &loginAt}); err != nil {
		log.Error("failed to stamp last login", slog.Any("error", err))
	}

	access, refresh, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return AuthResult{}, errInternal("Login failed", err)
	}

	log.Info("user logged in", slog.String("email", user.Email))

	return AuthResult{
		User:         user.Public(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, errValidation("Refresh token is required")
	}

	claims, err := s.tokens.Verify(refreshToken)
	if err != nil || claims.Type != auth.TypeRefresh {
		return TokenPair{}, errAuth("Invalid refresh token")
	}

	// refresh tokens can outlive the account; re-check it still exists
	// and is active
	user, err := s.storage.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return TokenPair{}, errAuth("User not found or inactive")
		}
		return TokenPair{}, errInternal("Token refresh failed", err)
	}
	if !user.IsActive {
		return TokenPair{}, errAuth("User not found or inactive")
	}

	access, refresh, err := s.tokens.IssuePair(claims.UserID)
	if err != nil {
		return TokenPair{}, errInternal("Token refresh failed", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout is advisory only: tokens are stateless, so there is nothing
// to revoke server-side.
func (s *service) Logout(ctx context.Context, userID string) error {
	const op = "service.Logout"

	log := s.log.With(slog.String("op", op))

	user, err := s.storage.GetUserByID(ctx, userID)
	if err == nil {
		log.Info("user logged out", slog.String("email", user.Email))
	}

	return nil
}

func (s *service) GetProfile(ctx context.Context, userID string) (models.PublicUser, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.PublicUser{}, errNotFound("User not found")
		}
		return models.PublicUser{}, errInternal("Failed to get profile", err)
	}

	return user.Public(), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) error {
	const op = "service.UpdateProfile"

	update := models.UserUpdate{
		Name:   upd.Name,
		Email:  upd.Email,
		Role:   upd.Role,
		Avatar: upd.Avatar,
	}

	// updated_at is stamped even when no allow-listed field was sent
	if err := s.storage.UpdateUser(ctx, userID, update); err != nil {
		switch {
		case errors.Is(err, storage.ErrEmailTaken):
			return errConflict("Email already in use")
		case errors.Is(err, storage.ErrUserNotFound):
			return errNotFound("User not found")
		default:
			return errInternal("Failed to update profile", err)
		}
	}

	s.log.Info("profile updated", slog.String("op", op), slog.String("user_id", userID))

	return nil
}

func (s *service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	const op = "service.ChangePassword"

	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return errValidation("Missing required fields")
	}
	if req.NewPassword != req.ConfirmPassword {
		return errValidation("New passwords do not match")
	}
	if len(req.NewPassword) < minPasswordLen {
		return errValidation("Password must be at least 8 characters")
	}

	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return errNotFound("User not found")
		}
		return errInternal("Failed to change password", err)
	}

	if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return errAuth("Current password is incorrect")
	}

	hash := auth.HashPassword(req.NewPassword)
	if err := s.storage.UpdateUser(ctx, userID, models.UserUpdate{PasswordHash: &hash}); err != nil {
		return errInternal("Failed to change password", err)
	}

	s.log.Info("password changed", slog.String("op", op), slog.String("user_id", userID))

	return nil
}

func (s *service) ListUsers(ctx context.Context, callerID string, page, limit int) (UserPage, error) {
	caller, err := s.storage.GetUserByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return UserPage{}, errForbidden("Admin access required")
		}
		return UserPage{}, errInternal("Failed to list users", err)
	}
	if caller.Role != models.RoleAdmin {
		return UserPage{}, errForbidden("Admin access required")
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	// (page-1)*limit can overflow for absurd page values; any such page
	// is past the end of the data, so clamp instead of wrapping
	skip := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		skip = (page - 1) * limit
	}

	users, err := s.storage.ListActive(ctx, limit, skip)
	if err != nil {
		return UserPage{}, errInternal("Failed to list users", err)
	}

	total, err := s.storage.CountActive(ctx)
	if err != nil {
		return UserPage{}, errInternal("Failed to list users", err)
	}

	public := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}

	// ceil(total/limit) without the total+limit-1 sum, which wraps for
	// huge limits
	pages := total / limit
	if total%limit != 0 {
		pages++
	}

	return UserPage{
		Users: public,
		Pagination: models.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

var _ Service = (*service)(nil)
