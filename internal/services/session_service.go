package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/mxkrv/novellib-backend/internal/infrastructure/auth"
	"github.com/mxkrv/novellib-backend/internal/infrastructure/kafka"
	"github.com/mxkrv/novellib-backend/internal/infrastructure/observability"
	"github.com/mxkrv/novellib-backend/internal/infrastructure/redis"
	"github.com/mxkrv/novellib-backend/internal/models"
	"github.com/mxkrv/novellib-backend/internal/repository"
	pkgerrors "github.com/mxkrv/novellib-backend/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const (
	// Окно refresh-токена при логине.
	RefreshTokenLongTTL  = 30 * 24 * time.Hour
	RefreshTokenShortTTL = 30 * time.Minute
	// Короткое окно при ротации шире, чем при логине.
	RefreshTokenRenewalShortTTL = 60 * time.Minute

	userCacheTTL = 5 * time.Minute

	topicUsers    = "users"
	topicSessions = "sessions"
)

type SessionService interface {
	Register(ctx context.Context, login, password string) (int32, error)
	Login(ctx context.Context, login, password string, isLongSession bool) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID int32) error
	GetClaimsForRequest(ctx context.Context, accessToken string) (*models.AccessTokenClaims, error)
}

type sessionService struct {
	userRepo      repository.UserRepository
	codec         *auth.TokenCodec
	hasher        auth.PasswordHasher
	redisClient   redis.RedisClient
	kafkaProducer kafka.KafkaProducer
}

func NewSessionService(
	userRepo repository.UserRepository,
	codec *auth.TokenCodec,
	hasher auth.PasswordHasher,
	redisClient redis.RedisClient,
	kafkaProducer kafka.KafkaProducer,
) *sessionService {
	return &sessionService{
		userRepo:      userRepo,
		codec:         codec,
		hasher:        hasher,
		redisClient:   redisClient,
		kafkaProducer: kafkaProducer,
	}
}

func (s *sessionService) Register(ctx context.Context, login, password string) (int32, error) {
	tracer := otel.Tracer("novellib")
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	if login == "" || password == "" {
		span.SetStatus(codes.Error, "empty login or password")
		return 0, pkgerrors.ErrInvalidInput
	}

	existing, err := s.userRepo.GetByLogin(ctx, login)
	if existing != nil {
		span.SetStatus(codes.Error, "login already exists")
		slog.Warn("login already exists", "login", login, "existing_id", existing.ID)
		return 0, pkgerrors.ErrUserAlreadyExists
	}
	if err != nil && !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user check failed")
		slog.Error("failed to check user existence", "login", login, "error", err)
		return 0, fmt.Errorf("%w: failed to check user existence", pkgerrors.ErrInternal)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		slog.Error("failed to hash password", "login", login, "error", err)
		return 0, fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	user := &models.User{
		Login:        login,
		PasswordHash: hash,
		Role:         models.RoleReader,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if stderrors.Is(err, pkgerrors.ErrUserAlreadyExists) {
			return 0, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "user creation failed")
		slog.Error("failed to create user in DB", "login", login, "error", err)
		return 0, fmt.Errorf("%w: failed to create user", pkgerrors.ErrInternal)
	}

	s.sendEvent(user.ID, topicUsers, map[string]interface{}{
		"event_type": "user_registered",
		"user_id":    user.ID,
		"login":      login,
		"role":       user.Role,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})

	slog.Info("user registered", "user_id", user.ID, "login", login)
	return user.ID, nil
}

func (s *sessionService) Login(ctx context.Context, login, password string, isLongSession bool) (*models.TokenPair, error) {
	tracer := otel.Tracer("novellib")
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	user, err := s.getUserCached(ctx, login)
	if err != nil {
		span.SetStatus(codes.Error, "user lookup failed")
		slog.Error("failed to login", "login", login, "error", err)
		return nil, pkgerrors.ErrIncorrectCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		span.SetStatus(codes.Error, "invalid password")
		slog.Error("invalid password", "login", login)
		return nil, pkgerrors.ErrIncorrectCredentials
	}

	now := time.Now()
	refreshTTL := RefreshTokenShortTTL
	if isLongSession {
		refreshTTL = RefreshTokenLongTTL
	}

	pair, err := s.mintPair(user, isLongSession, now, now.Add(refreshTTL))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token signing failed")
		slog.Error("failed to sign tokens", "login", login, "error", err)
		return nil, fmt.Errorf("%w: failed to sign tokens", pkgerrors.ErrInternal)
	}

	// Коллизия свежего refresh-токена с чужой сессией: не затираем её.
	holder, err := s.userRepo.FindByRefreshToken(ctx, pair.RefreshToken)
	if err != nil && !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "collision check failed")
		slog.Error("failed to check refresh token collision", "login", login, "error", err)
		return nil, fmt.Errorf("%w: failed to check refresh token", pkgerrors.ErrInternal)
	}
	if holder != nil && holder.ID != user.ID {
		span.SetStatus(codes.Error, "refresh token collision")
		slog.Error("refresh token collision", "login", login, "holder_id", holder.ID)
		return nil, pkgerrors.ErrTokenConflict
	}

	if err := s.persistRefreshToken(ctx, user, pair.RefreshToken); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh token persist failed")
		slog.Error("failed to persist refresh token", "login", login, "error", err)
		return nil, fmt.Errorf("%w: failed to persist refresh token", pkgerrors.ErrInternal)
	}

	s.sendEvent(user.ID, topicSessions, map[string]interface{}{
		"event_type":      "session_started",
		"user_id":         user.ID,
		"login":           login,
		"is_long_session": isLongSession,
		"created_at":      now.UTC().Format(time.RFC3339),
	})

	observability.TokenOperations.WithLabelValues("refresh", "sign", "ok").Inc()
	slog.Info("user logged in", "login", login, "user_id", user.ID, "is_long_session", isLongSession)
	return pair, nil
}

func (s *sessionService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	tracer := otel.Tracer("novellib")
	ctx, span := tracer.Start(ctx, "Refresh")
	defer span.End()

	now := time.Now()
	claims, err := s.codec.VerifyRefreshToken(refreshToken, now)
	if err != nil {
		observability.TokenOperations.WithLabelValues("refresh", "verify", "invalid").Inc()
		span.SetStatus(codes.Error, "invalid refresh token")
		slog.Error("invalid refresh token presented")
		return nil, pkgerrors.ErrIncorrectCredentials
	}
	observability.TokenOperations.WithLabelValues("refresh", "verify", "ok").Inc()

	// Токен должен в точности совпадать с сохранённым. Уже ротированный
	// или отозванный токен отклоняется той же ошибкой, что и поддельный.
	user, err := s.userRepo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrUserNotFound) {
			span.SetStatus(codes.Error, "refresh token not current")
			slog.Error("refresh token does not match any stored token", "login", claims.Login)
			return nil, pkgerrors.ErrIncorrectCredentials
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		slog.Error("failed to find user by refresh token", "login", claims.Login, "error", err)
		return nil, fmt.Errorf("%w: failed to find user by refresh token", pkgerrors.ErrInternal)
	}

	refreshTTL := RefreshTokenRenewalShortTTL
	if claims.IsLongSession {
		refreshTTL = RefreshTokenLongTTL
	}

	pair, err := s.mintPair(user, claims.IsLongSession, now, now.Add(refreshTTL))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token signing failed")
		slog.Error("failed to sign tokens", "login", user.Login, "error", err)
		return nil, fmt.Errorf("%w: failed to sign tokens", pkgerrors.ErrInternal)
	}

	if err := s.persistRefreshToken(ctx, user, pair.RefreshToken); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh token persist failed")
		slog.Error("failed to persist refresh token", "login", user.Login, "error", err)
		return nil, fmt.Errorf("%w: failed to persist refresh token", pkgerrors.ErrInternal)
	}

	s.sendEvent(user.ID, topicSessions, map[string]interface{}{
		"event_type":      "session_refreshed",
		"user_id":         user.ID,
		"login":           user.Login,
		"is_long_session": claims.IsLongSession,
		"created_at":      now.UTC().Format(time.RFC3339),
	})

	observability.TokenOperations.WithLabelValues("refresh", "sign", "ok").Inc()
	slog.Info("session refreshed", "login", user.Login, "user_id", user.ID)
	return pair, nil
}

func (s *sessionService) Logout(ctx context.Context, userID int32) error {
	tracer := otel.Tracer("novellib")
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, "user lookup failed")
		slog.Error("failed to get user for logout", "user_id", userID, "error", err)
		return err
	}

	if err := s.userRepo.UpdateRefreshToken(ctx, userID, sql.NullString{}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh token revoke failed")
		slog.Error("failed to revoke refresh token", "user_id", userID, "error", err)
		return fmt.Errorf("%w: failed to revoke refresh token", pkgerrors.ErrInternal)
	}
	s.invalidateUserCache(ctx, user.Login)

	s.sendEvent(userID, topicSessions, map[string]interface{}{
		"event_type": "session_revoked",
		"user_id":    userID,
		"login":      user.Login,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})

	slog.Info("session revoked", "user_id", userID, "login", user.Login)
	return nil
}

func (s *sessionService) GetClaimsForRequest(ctx context.Context, accessToken string) (*models.AccessTokenClaims, error) {
	claims, err := s.codec.VerifyAccessToken(accessToken, time.Now())
	if err != nil {
		observability.TokenOperations.WithLabelValues("access", "verify", "invalid").Inc()
		return nil, pkgerrors.ErrTokenInvalid
	}
	observability.TokenOperations.WithLabelValues("access", "verify", "ok").Inc()
	return claims, nil
}

func (s *sessionService) mintPair(user *models.User, isLongSession bool, now, refreshExpiry time.Time) (*models.TokenPair, error) {
	accessToken, err := s.codec.SignAccessToken(user, now)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.SignRefreshToken(user.Login, isLongSession, now, refreshExpiry)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// persistRefreshToken перезаписывает единственный слот current_refresh_token:
// предыдущий токен пользователя при этом перестаёт действовать.
func (s *sessionService) persistRefreshToken(ctx context.Context, user *models.User, refreshToken string) error {
	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, sql.NullString{String: refreshToken, Valid: true}); err != nil {
		return err
	}
	s.invalidateUserCache(ctx, user.Login)
	return nil
}

func (s *sessionService) getUserCached(ctx context.Context, login string) (*models.User, error) {
	cacheKey := fmt.Sprintf("user:login:%s", login)
	cached, err := s.redisClient.Get(ctx, cacheKey)
	if err == nil {
		var user models.User
		if err := json.Unmarshal([]byte(cached), &user); err == nil {
			return &user, nil
		}
		slog.Error("failed to unmarshal cached user", "login", login, "error", err)
	} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Error("failed to get user from Redis", "login", login, "error", err)
	}

	user, err := s.userRepo.GetByLogin(ctx, login)
	if err != nil {
		return nil, err
	}

	userBytes, err := json.Marshal(user)
	if err == nil {
		if err := s.redisClient.Set(ctx, cacheKey, string(userBytes), userCacheTTL); err != nil {
			slog.Error("failed to cache user", "login", login, "error", err)
		}
	}
	return user, nil
}

func (s *sessionService) invalidateUserCache(ctx context.Context, login string) {
	cacheKey := fmt.Sprintf("user:login:%s", login)
	if err := s.redisClient.Del(ctx, cacheKey); err != nil {
		slog.Error("failed to invalidate user cache", "login", login, "error", err)
	}
}

func (s *sessionService) sendEvent(key int32, topic string, event map[string]interface{}) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal kafka event", "topic", topic, "error", err)
		return
	}
	go func() {
		retries := 3
		for i := 0; i < retries; i++ {
			if err := s.kafkaProducer.Send(context.Background(), topic, int64(key), eventBytes); err == nil {
				return
			}
			time.Sleep(time.Second * time.Duration(i+1))
		}
		slog.Error("failed to send kafka event after retries", "topic", topic, "key", key)
	}()
}
