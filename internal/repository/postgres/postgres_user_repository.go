package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mxkrv/novellib-backend/internal/models"
	pkgerrors "github.com/mxkrv/novellib-backend/pkg/errors"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return pkgerrors.ErrNilUser
	}
	if user.Login == "" {
		return fmt.Errorf("%w: login is required", pkgerrors.ErrInvalidInput)
	}
	if user.PasswordHash == "" {
		return fmt.Errorf("%w: password_hash is required", pkgerrors.ErrInvalidInput)
	}
	if user.Role == "" {
		user.Role = models.RoleReader
	}

	query := `
	INSERT INTO users (login, password_hash, role, coins)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.Login,
		user.PasswordHash,
		user.Role,
		user.Coins,
	).Scan(&user.ID, &user.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pkgerrors.ErrUserAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int32) (*models.User, error) {
	query := `
	SELECT id, login, password_hash, role, coins, current_refresh_token, created_at
	FROM users WHERE id = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Login,
		&user.PasswordHash,
		&user.Role,
		&user.Coins,
		&user.CurrentRefreshToken,
		&user.CreatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	if login == "" {
		return nil, fmt.Errorf("%w: login cannot be empty", pkgerrors.ErrInvalidInput)
	}

	query := `
	SELECT id, login, password_hash, role, coins, current_refresh_token, created_at
	FROM users WHERE login = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, login).Scan(
		&user.ID,
		&user.Login,
		&user.PasswordHash,
		&user.Role,
		&user.Coins,
		&user.CurrentRefreshToken,
		&user.CreatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get user by login: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (*models.User, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token cannot be empty", pkgerrors.ErrInvalidInput)
	}

	query := `
	SELECT id, login, password_hash, role, coins, current_refresh_token, created_at
	FROM users WHERE current_refresh_token = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, refreshToken).Scan(
		&user.ID,
		&user.Login,
		&user.PasswordHash,
		&user.Role,
		&user.Coins,
		&user.CurrentRefreshToken,
		&user.CreatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to find user by refresh token: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) UpdateRefreshToken(ctx context.Context, userID int32, refreshToken sql.NullString) error {
	query := `UPDATE users SET current_refresh_token = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, refreshToken, userID)
	if err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrUserNotFound
	}
	return nil
}
