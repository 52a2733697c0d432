package repository

import (
	"context"
	"database/sql"

	"github.com/mxkrv/novellib-backend/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int32) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	// FindByRefreshToken ищет пользователя по точному совпадению
	// current_refresh_token; отсутствие — pkg/errors.ErrUserNotFound.
	FindByRefreshToken(ctx context.Context, refreshToken string) (*models.User, error)
	UpdateRefreshToken(ctx context.Context, userID int32, refreshToken sql.NullString) error
}
