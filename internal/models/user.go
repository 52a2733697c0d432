package models

import (
	"database/sql"
	"time"
)

const (
	RoleReader     = "reader"
	RoleTranslator = "translator"
	RoleAdmin      = "admin"
)

type User struct {
	ID           int32
	Login        string
	PasswordHash string
	Role         string
	Coins        int32
	// Единственный активный refresh-токен пользователя; NULL, пока сессии нет.
	CurrentRefreshToken sql.NullString
	CreatedAt           time.Time
}
