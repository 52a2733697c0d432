package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/mxkrv/novellib-backend/internal/infrastructure/auth"
	"github.com/mxkrv/novellib-backend/internal/infrastructure/kafka"
	"github.com/mxkrv/novellib-backend/internal/infrastructure/observability"
	"github.com/mxkrv/novellib-backend/internal/models"
	"github.com/mxkrv/novellib-backend/internal/repository"
	pkgerrors "github.com/mxkrv/novellib-backend/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const topicNotifications = "notifications"

type InviteService interface {
	InviteUserToTeam(ctx context.Context, teamID, userID int32) (*models.Notification, error)
	DecodeInvite(ctx context.Context, inviteToken string) (*models.InviteTokenClaims, error)
	AcceptInvite(ctx context.Context, userID int32, inviteToken string) error
	ListNotifications(ctx context.Context, ownerUserID int32) ([]models.Notification, error)
}

type inviteService struct {
	teamRepo         repository.TeamRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
	codec            *auth.TokenCodec
	kafkaProducer    kafka.KafkaProducer
}

func NewInviteService(
	teamRepo repository.TeamRepository,
	userRepo repository.UserRepository,
	notificationRepo repository.NotificationRepository,
	codec *auth.TokenCodec,
	kafkaProducer kafka.KafkaProducer,
) *inviteService {
	return &inviteService{
		teamRepo:         teamRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		codec:            codec,
		kafkaProducer:    kafkaProducer,
	}
}

// InviteUserToTeam выпускает invite-токен и кладёт его как payload
// team_invite уведомления приглашённому пользователю.
func (s *inviteService) InviteUserToTeam(ctx context.Context, teamID, userID int32) (*models.Notification, error) {
	tracer := otel.Tracer("novellib")
	ctx, span := tracer.Start(ctx, "InviteUserToTeam")
	defer span.End()

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		span.SetStatus(codes.Error, "team lookup failed")
		slog.Error("failed to get team", "team_id", teamID, "error", err)
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, "user lookup failed")
		slog.Error("failed to get invited user", "user_id", userID, "error", err)
		return nil, err
	}

	isMember, err := s.teamRepo.IsMember(ctx, teamID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "membership check failed")
		slog.Error("failed to check team membership", "team_id", teamID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to check team membership", pkgerrors.ErrInternal)
	}
	if isMember {
		span.SetStatus(codes.Error, "already a member")
		slog.Warn("user is already a team member", "team_id", teamID, "user_id", userID)
		return nil, pkgerrors.ErrAlreadyTeamMember
	}

	inviteToken, err := s.codec.SignInviteToken(userID, teamID, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token signing failed")
		slog.Error("failed to sign invite token", "team_id", teamID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to sign invite token", pkgerrors.ErrInternal)
	}
	observability.TokenOperations.WithLabelValues("invite", "sign", "ok").Inc()

	notification := models.NewInviteNotification(userID, inviteToken)
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		// Токен не отзываем: он нигде не хранится и сам истечёт.
		span.RecordError(err)
		span.SetStatus(codes.Error, "notification persist failed")
		slog.Error("failed to persist invite notification", "team_id", teamID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to persist invite notification", pkgerrors.ErrInternal)
	}

	s.sendEvent(notification.ID, map[string]interface{}{
		"event_type":    "notification_created",
		"owner_user_id": userID,
		"type":          models.NotificationTeamInvite,
		"created_at":    time.Now().UTC().Format(time.RFC3339),
	})

	slog.Info("team invite created",
		"team_id", teamID,
		"team_name", team.Name,
		"user_id", user.ID,
		"notification_id", notification.ID)
	return notification, nil
}

// DecodeInvite гарантирует только точный round trip claims; принятие или
// отклонение приглашения — отдельный сценарий.
func (s *inviteService) DecodeInvite(ctx context.Context, inviteToken string) (*models.InviteTokenClaims, error) {
	claims, err := s.codec.VerifyInviteToken(inviteToken, time.Now())
	if err != nil {
		observability.TokenOperations.WithLabelValues("invite", "verify", "invalid").Inc()
		return nil, pkgerrors.ErrTokenInvalid
	}
	observability.TokenOperations.WithLabelValues("invite", "verify", "ok").Inc()
	return claims, nil
}

// AcceptInvite декодирует приглашение и вводит пользователя в команду.
// Принять чужое приглашение нельзя.
func (s *inviteService) AcceptInvite(ctx context.Context, userID int32, inviteToken string) error {
	tracer := otel.Tracer("novellib")
	ctx, span := tracer.Start(ctx, "AcceptInvite")
	defer span.End()

	claims, err := s.DecodeInvite(ctx, inviteToken)
	if err != nil {
		span.SetStatus(codes.Error, "invalid invite token")
		slog.Error("invalid invite token presented", "user_id", userID)
		return pkgerrors.ErrTokenInvalid
	}
	if claims.InvitedUserID != userID {
		span.SetStatus(codes.Error, "invite addressed to another user")
		slog.Error("invite addressed to another user",
			"user_id", userID,
			"invited_user_id", claims.InvitedUserID)
		return pkgerrors.ErrTokenInvalid
	}

	if err := s.teamRepo.AddMember(ctx, claims.TeamID, userID); err != nil {
		if stderrors.Is(err, pkgerrors.ErrAlreadyTeamMember) || stderrors.Is(err, pkgerrors.ErrTeamNotFound) {
			return err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "add member failed")
		slog.Error("failed to add team member", "team_id", claims.TeamID, "user_id", userID, "error", err)
		return fmt.Errorf("%w: failed to add team member", pkgerrors.ErrInternal)
	}

	slog.Info("team invite accepted", "team_id", claims.TeamID, "user_id", userID)
	return nil
}

func (s *inviteService) ListNotifications(ctx context.Context, ownerUserID int32) ([]models.Notification, error) {
	notifications, err := s.notificationRepo.ListByOwner(ctx, ownerUserID)
	if err != nil {
		slog.Error("failed to list notifications", "user_id", ownerUserID, "error", err)
		return nil, fmt.Errorf("%w: failed to list notifications", pkgerrors.ErrInternal)
	}
	return notifications, nil
}

func (s *inviteService) sendEvent(key int32, event map[string]interface{}) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal kafka event", "topic", topicNotifications, "error", err)
		return
	}
	go func() {
		retries := 3
		for i := 0; i < retries; i++ {
			if err := s.kafkaProducer.Send(context.Background(), topicNotifications, int64(key), eventBytes); err == nil {
				return
			}
			time.Sleep(time.Second * time.Duration(i+1))
		}
		slog.Error("failed to send kafka event after retries", "topic", topicNotifications, "key", key)
	}()
}
