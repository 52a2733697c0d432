package models

import "time"

type Team struct {
	ID          int32
	Name        string
	OwnerUserID int32
	CreatedAt   time.Time
}

type TeamMember struct {
	TeamID   int32
	UserID   int32
	JoinedAt time.Time
}
