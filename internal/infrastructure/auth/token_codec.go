package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mxkrv/novellib-backend/internal/models"
	pkgerrors "github.com/mxkrv/novellib-backend/pkg/errors"
)

const (
	AccessTokenTTL = 15 * time.Minute
	InviteTokenTTL = 72 * time.Hour
)

// TokenCodec подписывает и проверяет токены трёх независимых классов.
// У каждого класса свой ключ: токен одного класса никогда не проходит
// проверку другим.
type TokenCodec struct {
	accessKey  []byte
	refreshKey []byte
	inviteKey  []byte
	issuer     string
	audience   string
}

func NewTokenCodec(accessKey, refreshKey, inviteKey []byte, issuer, audience string) (*TokenCodec, error) {
	if len(accessKey) == 0 || len(refreshKey) == 0 || len(inviteKey) == 0 {
		return nil, fmt.Errorf("token keys must not be empty")
	}
	if issuer == "" || audience == "" {
		return nil, fmt.Errorf("token issuer and audience must not be empty")
	}
	return &TokenCodec{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		inviteKey:  inviteKey,
		issuer:     issuer,
		audience:   audience,
	}, nil
}

type accessClaims struct {
	UserID int32  `json:"user_id"`
	Login  string `json:"login"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	Login         string `json:"login"`
	IsLongSession bool   `json:"is_long_session"`
	jwt.RegisteredClaims
}

type inviteClaims struct {
	InvitedUserID int32 `json:"invited_user_id"`
	TeamID        int32 `json:"team_id"`
	jwt.RegisteredClaims
}

func (c *TokenCodec) registeredClaims(now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Audience:  jwt.ClaimStrings{c.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (c *TokenCodec) SignAccessToken(user *models.User, now time.Time) (string, error) {
	if user == nil {
		return "", pkgerrors.ErrNilUser
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		UserID:           user.ID,
		Login:            user.Login,
		Role:             user.Role,
		RegisteredClaims: c.registeredClaims(now, now.Add(AccessTokenTTL)),
	})
	return token.SignedString(c.accessKey)
}

// VerifyAccessToken возвращает только ErrTokenInvalid на любую проблему:
// причина отказа вызывающему не сообщается.
func (c *TokenCodec) VerifyAccessToken(tokenString string, now time.Time) (*models.AccessTokenClaims, error) {
	claims := &accessClaims{}
	if err := c.parse(tokenString, claims, c.accessKey, now); err != nil {
		return nil, pkgerrors.ErrTokenInvalid
	}
	return &models.AccessTokenClaims{
		UserID:    claims.UserID,
		Login:     claims.Login,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SignRefreshToken принимает абсолютный срок действия: окно выбирает
// SessionService в зависимости от isLongSession.
func (c *TokenCodec) SignRefreshToken(login string, isLongSession bool, now, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		Login:            login,
		IsLongSession:    isLongSession,
		RegisteredClaims: c.registeredClaims(now, expiresAt),
	})
	return token.SignedString(c.refreshKey)
}

func (c *TokenCodec) VerifyRefreshToken(tokenString string, now time.Time) (*models.RefreshTokenClaims, error) {
	claims := &refreshClaims{}
	if err := c.parse(tokenString, claims, c.refreshKey, now); err != nil {
		return nil, pkgerrors.ErrTokenInvalid
	}
	return &models.RefreshTokenClaims{
		Login:         claims.Login,
		IsLongSession: claims.IsLongSession,
		ExpiresAt:     claims.ExpiresAt.Time,
	}, nil
}

func (c *TokenCodec) SignInviteToken(invitedUserID, teamID int32, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, inviteClaims{
		InvitedUserID:    invitedUserID,
		TeamID:           teamID,
		RegisteredClaims: c.registeredClaims(now, now.Add(InviteTokenTTL)),
	})
	return token.SignedString(c.inviteKey)
}

// VerifyInviteToken проверяет подпись, issuer и audience. Срок действия
// с текущим временем не сравнивается: exp возвращается в claims, и решение
// об истёкшем приглашении остаётся за вызывающим.
func (c *TokenCodec) VerifyInviteToken(tokenString string, now time.Time) (*models.InviteTokenClaims, error) {
	claims := &inviteClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return c.inviteKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return nil, pkgerrors.ErrTokenInvalid
	}
	if claims.Issuer != c.issuer || !containsAudience(claims.Audience, c.audience) {
		return nil, pkgerrors.ErrTokenInvalid
	}
	if claims.ExpiresAt == nil {
		return nil, pkgerrors.ErrTokenInvalid
	}
	return &models.InviteTokenClaims{
		InvitedUserID: claims.InvitedUserID,
		TeamID:        claims.TeamID,
		ExpiresAt:     claims.ExpiresAt.Time,
	}, nil
}

func (c *TokenCodec) parse(tokenString string, claims jwt.Claims, key []byte, now time.Time) error {
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return err
	}
	if !token.Valid {
		return pkgerrors.ErrTokenInvalid
	}
	return nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
