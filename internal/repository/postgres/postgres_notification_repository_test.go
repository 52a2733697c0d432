package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mxkrv/novellib-backend/internal/models"
	repository "github.com/mxkrv/novellib-backend/internal/repository/postgres"
	pkgerrors "github.com/mxkrv/novellib-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPostgresNotificationRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresNotificationRepository(db)
	ctx := context.Background()

	t.Run("NilNotification", func(t *testing.T) {
		err := repo.Create(ctx, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrNilNotification)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MissingPayload", func(t *testing.T) {
		err := repo.Create(ctx, &models.Notification{Type: models.NotificationTeamInvite, OwnerUserID: 42})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		notification := models.NewInviteNotification(42, "invite-token-string")
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO notifications (type, payload, owner_user_id, is_watched)`)).
			WithArgs(models.NotificationTeamInvite, "invite-token-string", int32(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int32(10), time.Now()))

		err := repo.Create(ctx, notification)
		assert.NoError(t, err)
		assert.Equal(t, int32(10), notification.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresNotificationRepository_ListByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresNotificationRepository(db)
	ctx := context.Background()

	t.Run("MixedTypes", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "type", "payload", "owner_user_id", "is_watched", "created_at"}).
			AddRow(int32(2), models.NotificationTeamInvite, "invite-token-string", int32(42), false, time.Now()).
			AddRow(int32(1), models.NotificationNewBookChapter, "eyJib29rX2lkIjo3fQ==", int32(42), true, time.Now())
		mock.ExpectQuery(regexp.QuoteMeta(`FROM notifications`)).
			WithArgs(int32(42)).
			WillReturnRows(rows)

		notifications, err := repo.ListByOwner(ctx, 42)
		assert.NoError(t, err)
		assert.Len(t, notifications, 2)
		assert.Equal(t, models.NotificationTeamInvite, notifications[0].Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "type", "payload", "owner_user_id", "is_watched", "created_at"})
		mock.ExpectQuery(regexp.QuoteMeta(`FROM notifications`)).
			WithArgs(int32(7)).
			WillReturnRows(rows)

		notifications, err := repo.ListByOwner(ctx, 7)
		assert.NoError(t, err)
		assert.Empty(t, notifications)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
