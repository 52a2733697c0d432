package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/mxkrv/novellib-backend/internal/models"
	pkgerrors "github.com/mxkrv/novellib-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(
		[]byte("access-secret"),
		[]byte("refresh-secret"),
		[]byte("invite-secret"),
		"novellib",
		"novellib-users",
	)
	require.NoError(t, err)
	return codec
}

func testUser() *models.User {
	return &models.User{
		ID:    1,
		Login: "alice123",
		Role:  models.RoleReader,
	}
}

func TestNewTokenCodec_Validation(t *testing.T) {
	_, err := NewTokenCodec(nil, []byte("r"), []byte("i"), "iss", "aud")
	assert.Error(t, err)

	_, err = NewTokenCodec([]byte("a"), []byte("r"), []byte("i"), "", "aud")
	assert.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	now := time.Now().Truncate(time.Second)

	token, err := codec.SignAccessToken(testUser(), now)
	require.NoError(t, err)

	claims, err := codec.VerifyAccessToken(token, now.Add(14*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int32(1), claims.UserID)
	assert.Equal(t, "alice123", claims.Login)
	assert.Equal(t, models.RoleReader, claims.Role)
	assert.Equal(t, now.Add(AccessTokenTTL), claims.ExpiresAt)
}

func TestAccessToken_ExpiresAfter15Minutes(t *testing.T) {
	codec := newTestCodec(t)
	now := time.Now().Truncate(time.Second)

	token, err := codec.SignAccessToken(testUser(), now)
	require.NoError(t, err)

	_, err = codec.VerifyAccessToken(token, now.Add(15*time.Minute-time.Second))
	assert.NoError(t, err)

	_, err = codec.VerifyAccessToken(token, now.Add(15*time.Minute))
	assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)

	_, err = codec.VerifyAccessToken(token, now.Add(time.Hour))
	assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(30 * 24 * time.Hour)

	token, err := codec.SignRefreshToken("alice123", true, now, expiresAt)
	require.NoError(t, err)

	claims, err := codec.VerifyRefreshToken(token, now.Add(29*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "alice123", claims.Login)
	assert.True(t, claims.IsLongSession)
	assert.Equal(t, expiresAt, claims.ExpiresAt)

	_, err = codec.VerifyRefreshToken(token, expiresAt)
	assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)
}

func TestInviteToken_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	now := time.Now().Truncate(time.Second)

	token, err := codec.SignInviteToken(7, 3, now)
	require.NoError(t, err)

	claims, err := codec.VerifyInviteToken(token, now)
	require.NoError(t, err)
	assert.Equal(t, int32(7), claims.InvitedUserID)
	assert.Equal(t, int32(3), claims.TeamID)
	assert.Equal(t, now.Add(InviteTokenTTL), claims.ExpiresAt)
}

func TestInviteToken_ExpiryNotEnforced(t *testing.T) {
	codec := newTestCodec(t)
	signedAt := time.Now().Add(-100 * 24 * time.Hour).Truncate(time.Second)

	token, err := codec.SignInviteToken(7, 3, signedAt)
	require.NoError(t, err)

	claims, err := codec.VerifyInviteToken(token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int32(7), claims.InvitedUserID)
	assert.Equal(t, signedAt.Add(InviteTokenTTL), claims.ExpiresAt)
}

func TestVerify_TamperedSignature(t *testing.T) {
	codec := newTestCodec(t)
	now := time.Now()

	token, err := codec.SignAccessToken(testUser(), now)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.VerifyAccessToken(tampered, now)
	assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)
}

func TestVerify_CrossClassRejection(t *testing.T) {
	codec := newTestCodec(t)
	now := time.Now()

	inviteToken, err := codec.SignInviteToken(7, 3, now)
	require.NoError(t, err)

	_, err = codec.VerifyAccessToken(inviteToken, now)
	assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)

	_, err = codec.VerifyRefreshToken(inviteToken, now)
	assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)

	accessToken, err := codec.SignAccessToken(testUser(), now)
	require.NoError(t, err)

	_, err = codec.VerifyInviteToken(accessToken, now)
	assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)
}

func TestVerify_ForeignIssuerAndAudience(t *testing.T) {
	codec := newTestCodec(t)
	now := time.Now()

	// Те же ключи, другой issuer/audience: подпись валидна, токен — нет.
	foreign, err := NewTokenCodec(
		[]byte("access-secret"),
		[]byte("refresh-secret"),
		[]byte("invite-secret"),
		"other-deployment",
		"other-users",
	)
	require.NoError(t, err)

	accessToken, err := foreign.SignAccessToken(testUser(), now)
	require.NoError(t, err)
	_, err = codec.VerifyAccessToken(accessToken, now)
	assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)

	refreshToken, err := foreign.SignRefreshToken("alice123", false, now, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = codec.VerifyRefreshToken(refreshToken, now)
	assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)

	inviteToken, err := foreign.SignInviteToken(7, 3, now)
	require.NoError(t, err)
	_, err = codec.VerifyInviteToken(inviteToken, now)
	assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)
}

func TestVerify_MalformedToken(t *testing.T) {
	codec := newTestCodec(t)
	now := time.Now()

	for _, tokenString := range []string{"", "garbage", "a.b.c"} {
		_, err := codec.VerifyAccessToken(tokenString, now)
		assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)

		_, err = codec.VerifyRefreshToken(tokenString, now)
		assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)

		_, err = codec.VerifyInviteToken(tokenString, now)
		assert.ErrorIs(t, err, pkgerrors.ErrTokenInvalid)
	}
}
