package models

import "time"

// AccessTokenClaims живут только внутри подписанной строки токена,
// в базе не сохраняются.
type AccessTokenClaims struct {
	UserID    int32
	Login     string
	Role      string
	ExpiresAt time.Time
}

type RefreshTokenClaims struct {
	Login         string
	IsLongSession bool
	ExpiresAt     time.Time
}

type InviteTokenClaims struct {
	InvitedUserID int32
	TeamID        int32
	ExpiresAt     time.Time
}

// TokenPair — то, что получает клиент после логина или ротации.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
