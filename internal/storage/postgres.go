package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AyanS2004/Labdetect/internal/models"
)

const usersTable = "users"

const uniqueViolationCode = "23505"

type PostgresStorage struct {
	db *pgxpool.Pool
}

func NewPostgresStorage(ctx context.Context, dbURL string) (*PostgresStorage, error) {
	const op = "storage.NewPostgresStorage"

	pool, err := pgxpool.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &PostgresStorage{db: pool}

	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func (p *PostgresStorage) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		user_id       TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		user_role     TEXT NOT NULL DEFAULT 'analyst',
		avatar        TEXT NOT NULL DEFAULT '',
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL,
		last_login    TIMESTAMPTZ
	);`, usersTable)

	_, err := p.db.Exec(ctx, query)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func (p *PostgresStorage) CreateUser(ctx context.Context, user models.User) error {
	const op = "storage.PostgresStorage.CreateUser"

	query := fmt.Sprintf(`INSERT INTO %s
		(user_id, name, email, password_hash, user_role, avatar, is_active, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, usersTable)

	_, err := p.db.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		user.Avatar, user.IsActive, user.CreatedAt, user.UpdatedAt, user.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.PostgresStorage.GetUserByEmail"

	return p.getUser(ctx, op, "email", email)
}

func (p *PostgresStorage) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	const op = "storage.PostgresStorage.GetUserByID"

	return p.getUser(ctx, op, "user_id", userID)
}

func (p *PostgresStorage) getUser(ctx context.Context, op, column, value string) (models.User, error) {
	var user models.User
	query := fmt.Sprintf(`SELECT user_id, name, email, password_hash, user_role, avatar, is_active, created_at, updated_at, last_login
		FROM %s WHERE %s=$1`, usersTable, column)

	err := p.db.QueryRow(ctx, query, value).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.Avatar, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return user, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (p *PostgresStorage) UpdateUser(ctx context.Context, userID string, upd models.UserUpdate) error {
	const op = "storage.PostgresStorage.UpdateUser"

	set := []string{"updated_at=now()"}
	args := []interface{}{}
	arg := 1

	add := func(column string, value interface{}) {
		set = append(set, fmt.Sprintf("%s=$%d", column, arg))
		args = append(args, value)
		arg++
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Role != nil {
		add("user_role", *upd.Role)
	}
	if upd.Avatar != nil {
		add("avatar", *upd.Avatar)
	}
	if upd.PasswordHash != nil {
		add("password_hash", *upd.PasswordHash)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.LastLogin != nil {
		add("last_login", *upd.LastLogin)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE user_id=$%d",
		usersTable, strings.Join(set, ", "), arg)
	args = append(args, userID)

	tag, err := p.db.Exec(ctx, query, args...)
	if err != nil {
		// unique index on email acts as the race-safety net for
		// concurrent email changes
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	return nil
}

func (p *PostgresStorage) CountActive(ctx context.Context) (int, error) {
	const op = "storage.PostgresStorage.CountActive"

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE is_active=TRUE", usersTable)

	if err := p.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (p *PostgresStorage) ListActive(ctx context.Context, limit, offset int) ([]models.User, error) {
	const op = "storage.PostgresStorage.ListActive"

	query := fmt.Sprintf(`SELECT user_id, name, email, password_hash, user_role, avatar, is_active, created_at, updated_at, last_login
		FROM %s WHERE is_active=TRUE
		ORDER BY created_at DESC, user_id
		LIMIT $1 OFFSET $2`, usersTable)

	rows, err := p.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
			&user.Avatar, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.LastLogin,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return users, nil
}

func (p *PostgresStorage) Ping(ctx context.Context) error {
	const op = "storage.PostgresStorage.Ping"

	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *PostgresStorage) Close() {
	p.db.Close()
}
