package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mxkrv/novellib-backend/internal/models"
	pkgerrors "github.com/mxkrv/novellib-backend/pkg/errors"
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification == nil {
		return pkgerrors.ErrNilNotification
	}
	if notification.Type == "" {
		return fmt.Errorf("%w: notification type is required", pkgerrors.ErrInvalidInput)
	}
	if notification.Payload == "" {
		return fmt.Errorf("%w: notification payload is required", pkgerrors.ErrInvalidInput)
	}

	query := `
	INSERT INTO notifications (type, payload, owner_user_id, is_watched)
	VALUES ($1, $2, $3, false)
	RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		notification.Type,
		notification.Payload,
		notification.OwnerUserID,
	).Scan(&notification.ID, &notification.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) ListByOwner(ctx context.Context, ownerUserID int32) ([]models.Notification, error) {
	query := `
	SELECT id, type, payload, owner_user_id, is_watched, created_at
	FROM notifications
	WHERE owner_user_id = $1
	ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Payload, &n.OwnerUserID, &n.IsWatched, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}
	return notifications, nil
}
