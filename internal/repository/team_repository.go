package repository

import (
	"context"

	"github.com/mxkrv/novellib-backend/internal/models"
)

type TeamRepository interface {
	GetByID(ctx context.Context, id int32) (*models.Team, error)
	IsMember(ctx context.Context, teamID, userID int32) (bool, error)
	AddMember(ctx context.Context, teamID, userID int32) error
}
