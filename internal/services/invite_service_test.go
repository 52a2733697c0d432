package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/mxkrv/novellib-backend/internal/infrastructure/auth"
	kafkamocks "github.com/mxkrv/novellib-backend/internal/infrastructure/kafka/mocks"
	"github.com/mxkrv/novellib-backend/internal/models"
	repositorymocks "github.com/mxkrv/novellib-backend/internal/repository/mocks"
	pkgerrors "github.com/mxkrv/novellib-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inviteFixture struct {
	teamRepo         *repositorymocks.MockTeamRepository
	userRepo         *repositorymocks.MockUserRepository
	notificationRepo *repositorymocks.MockNotificationRepository
	codec            *auth.TokenCodec
	service          InviteService
}

func newInviteFixture(t *testing.T, ctrl *gomock.Controller) *inviteFixture {
	t.Helper()
	codec, err := auth.NewTokenCodec(
		[]byte("access-secret"),
		[]byte("refresh-secret"),
		[]byte("invite-secret"),
		"novellib",
		"novellib-users",
	)
	require.NoError(t, err)

	f := &inviteFixture{
		teamRepo:         repositorymocks.NewMockTeamRepository(ctrl),
		userRepo:         repositorymocks.NewMockUserRepository(ctrl),
		notificationRepo: repositorymocks.NewMockNotificationRepository(ctrl),
		codec:            codec,
	}
	kafkaProducer := kafkamocks.NewMockKafkaProducer(ctrl)
	kafkaProducer.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.service = NewInviteService(f.teamRepo, f.userRepo, f.notificationRepo, codec, kafkaProducer)
	return f
}

func TestInviteService_InviteUserToTeam(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	team := &models.Team{ID: 5, Name: "translators", OwnerUserID: 1}
	user := &models.User{ID: 42, Login: "bob", Role: models.RoleTranslator}

	t.Run("creates team_invite notification with token payload", func(t *testing.T) {
		f := newInviteFixture(t, ctrl)

		f.teamRepo.EXPECT().GetByID(gomock.Any(), int32(5)).Return(team, nil)
		f.userRepo.EXPECT().GetByID(gomock.Any(), int32(42)).Return(user, nil)
		f.teamRepo.EXPECT().IsMember(gomock.Any(), int32(5), int32(42)).Return(false, nil)

		var created *models.Notification
		f.notificationRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, n *models.Notification) error {
				created = n
				n.ID = 10
				return nil
			})

		notification, err := f.service.InviteUserToTeam(ctx, 5, 42)
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, models.NotificationTeamInvite, created.Type)
		assert.Equal(t, int32(42), created.OwnerUserID)

		// Payload — это invite-токен как есть.
		inviteToken, err := notification.InviteToken()
		require.NoError(t, err)
		claims, err := f.codec.VerifyInviteToken(inviteToken, time.Now())
		require.NoError(t, err)
		assert.Equal(t, int32(42), claims.InvitedUserID)
		assert.Equal(t, int32(5), claims.TeamID)
		assert.WithinDuration(t, time.Now().Add(auth.InviteTokenTTL), claims.ExpiresAt, 2*time.Second)
	})

	t.Run("team not found", func(t *testing.T) {
		f := newInviteFixture(t, ctrl)

		f.teamRepo.EXPECT().GetByID(gomock.Any(), int32(99)).Return(nil, pkgerrors.ErrTeamNotFound)

		_, err := f.service.InviteUserToTeam(ctx, 99, 42)
		assert.ErrorIs(t, err, pkgerrors.ErrTeamNotFound)
	})

	t.Run("user not found", func(t *testing.T) {
		f := newInviteFixture(t, ctrl)

		f.teamRepo.EXPECT().GetByID(gomock.Any(), int32(5)).Return(team, nil)
		f.userRepo.EXPECT().GetByID(gomock.Any(), int32(99)).Return(nil, pkgerrors.ErrUserNotFound)

		_, err := f.service.InviteUserToTeam(ctx, 5, 99)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
	})

	t.Run("already a member", func(t *testing.T) {
		f := newInviteFixture(t, ctrl)

		f.teamRepo.EXPECT().GetByID(gomock.Any(), int32(5)).Return(team, nil)
		f.userRepo.EXPECT().GetByID(gomock.Any(), int32(42)).Return(user, nil)
		f.teamRepo.EXPECT().IsMember(gomock.Any(), int32(5), int32(42)).Return(true, nil)

		_, err := f.service.InviteUserToTeam(ctx, 5, 42)
		assert.ErrorIs(t, err, pkgerrors.ErrAlreadyTeamMember)
	})

	t.Run("notification persist failure is reported", func(t *testing.T) {
		f := newInviteFixture(t, ctrl)

		f.teamRepo.EXPECT().GetByID(gomock.Any(), int32(5)).Return(team, nil)
		f.userRepo.EXPECT().GetByID(gomock.Any(), int32(42)).Return(user, nil)
		f.teamRepo.EXPECT().IsMember(gomock.Any(), int32(5), int32(42)).Return(false, nil)
		f.notificationRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

		_, err := f.service.InviteUserToTeam(ctx, 5, 42)
		assert.ErrorIs(t, err, pkgerrors.ErrInternal)
	})
}

func TestInviteService_DecodeInvite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	f := newInviteFixture(t, ctrl)

	token, err := f.codec.SignInviteToken(7, 3, time.Now())
	require.NoError(t, err)

	claims, err := f.service.DecodeInvite(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int32(7), claims.InvitedUserID)
	assert.Equal(t, int32(3), claims.TeamID)

	_, err = f.service.DecodeInvite(ctx, "garbage")
	assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)
}

func TestInviteService_AcceptInvite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()

	t.Run("joins the team", func(t *testing.T) {
		f := newInviteFixture(t, ctrl)

		token, err := f.codec.SignInviteToken(42, 5, time.Now())
		require.NoError(t, err)

		f.teamRepo.EXPECT().AddMember(gomock.Any(), int32(5), int32(42)).Return(nil)

		err = f.service.AcceptInvite(ctx, 42, token)
		assert.NoError(t, err)
	})

	t.Run("someone else's invite", func(t *testing.T) {
		f := newInviteFixture(t, ctrl)

		token, err := f.codec.SignInviteToken(42, 5, time.Now())
		require.NoError(t, err)

		err = f.service.AcceptInvite(ctx, 43, token)
		assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newInviteFixture(t, ctrl)

		err := f.service.AcceptInvite(ctx, 42, "garbage")
		assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)
	})
}
