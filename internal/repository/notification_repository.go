package repository

import (
	"context"

	"github.com/mxkrv/novellib-backend/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByOwner(ctx context.Context, ownerUserID int32) ([]models.Notification, error)
}
