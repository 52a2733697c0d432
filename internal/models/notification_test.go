package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotification_InvitePayloadIsRawToken(t *testing.T) {
	n := NewInviteNotification(42, "header.claims.signature")

	token, err := n.InviteToken()
	require.NoError(t, err)
	assert.Equal(t, "header.claims.signature", token)
	assert.Equal(t, n.Payload, token)

	// У team_invite нет структурированного payload.
	var dst map[string]any
	assert.Error(t, n.DecodePayload(&dst))
}

func TestNotification_StructuredPayloadRoundTrip(t *testing.T) {
	type chapterPayload struct {
		BookID    int32  `json:"book_id"`
		ChapterID int32  `json:"chapter_id"`
		Title     string `json:"title"`
	}

	n, err := NewStructuredNotification(42, NotificationNewBookChapter, chapterPayload{
		BookID:    7,
		ChapterID: 3,
		Title:     "Глава 3",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "", n.Payload)

	var decoded chapterPayload
	require.NoError(t, n.DecodePayload(&decoded))
	assert.Equal(t, int32(7), decoded.BookID)
	assert.Equal(t, int32(3), decoded.ChapterID)
	assert.Equal(t, "Глава 3", decoded.Title)

	_, err = n.InviteToken()
	assert.Error(t, err)
}

func TestNotification_StructuredRejectsInviteType(t *testing.T) {
	_, err := NewStructuredNotification(42, NotificationTeamInvite, map[string]int{"team_id": 5})
	assert.Error(t, err)
}
