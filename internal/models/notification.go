package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

const (
	NotificationTeamInvite     = "team_invite"
	NotificationNewBookChapter = "new_book_chapter"
	NotificationNewComment     = "new_comment"
)

// Notification хранит payload в двух кодировках под одним полем:
// для team_invite это invite-токен как есть, для остальных типов —
// base64 от JSON. Кодировки намеренно не унифицированы.
type Notification struct {
	ID          int32
	Type        string
	Payload     string
	OwnerUserID int32
	IsWatched   bool
	CreatedAt   time.Time
}

func NewInviteNotification(ownerUserID int32, inviteToken string) *Notification {
	return &Notification{
		Type:        NotificationTeamInvite,
		Payload:     inviteToken,
		OwnerUserID: ownerUserID,
	}
}

func NewStructuredNotification(ownerUserID int32, notificationType string, payload any) (*Notification, error) {
	if notificationType == NotificationTeamInvite {
		return nil, fmt.Errorf("team_invite payload is a raw token, use NewInviteNotification")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	return &Notification{
		Type:        notificationType,
		Payload:     base64.StdEncoding.EncodeToString(data),
		OwnerUserID: ownerUserID,
	}, nil
}

// InviteToken возвращает invite-токен из payload team_invite уведомления.
func (n *Notification) InviteToken() (string, error) {
	if n.Type != NotificationTeamInvite {
		return "", fmt.Errorf("notification type %q does not carry an invite token", n.Type)
	}
	return n.Payload, nil
}

// DecodePayload разбирает base64+JSON payload для всех типов, кроме team_invite.
func (n *Notification) DecodePayload(dst any) error {
	if n.Type == NotificationTeamInvite {
		return fmt.Errorf("team_invite payload is a raw token, use InviteToken")
	}
	data, err := base64.StdEncoding.DecodeString(n.Payload)
	if err != nil {
		return fmt.Errorf("failed to decode notification payload: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal notification payload: %w", err)
	}
	return nil
}
