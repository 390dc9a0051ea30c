package user

import (
	"context"
	"testing"

	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/message"
	"github.com/banterhq/banter/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUser(t *testing.T) {
	users := testutils.NewMemUserStore(&domain.User{ID: "user-1", Name: "alice"})
	svc := NewService(users, testutils.NewMemRoomStore())

	u, err := svc.ResolveUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)

	_, err = svc.ResolveUser(context.Background(), "")
	assert.Equal(t, domain.ErrUnauthorized, domain.KindOf(err))

	_, err = svc.ResolveUser(context.Background(), "nobody")
	assert.Equal(t, domain.ErrUnauthorized, domain.KindOf(err))
}

func TestResolveSession(t *testing.T) {
	users := testutils.NewMemUserStore(&domain.User{
		ID:            "user-1",
		SessionTokens: []domain.SessionToken{{Token: "tok-1", IssuedAtUnix: 1700000000}},
	})
	svc := NewService(users, testutils.NewMemRoomStore())

	u, err := svc.ResolveSession(context.Background(), "user-1", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)

	// A structurally valid token the user never held is an authorization
	// failure, not an auth-invalid one.
	_, err = svc.ResolveSession(context.Background(), "user-1", "tok-2")
	assert.Equal(t, domain.ErrUnauthorized, domain.KindOf(err))
}

func TestCheckRoomOwnership(t *testing.T) {
	svc := NewService(testutils.NewMemUserStore(), testutils.NewMemRoomStore())

	assert.NoError(t, svc.CheckRoomOwnership("owner-1", "owner-1"))
	assert.Equal(t, domain.ErrNotRoomAuthor, domain.KindOf(svc.CheckRoomOwnership("owner-1", "user-1")))
	assert.Equal(t, domain.ErrNotRoomAuthor, domain.KindOf(svc.CheckRoomOwnership("", "")))
}

func TestCheckMessageAuthorship(t *testing.T) {
	svc := NewService(testutils.NewMemUserStore(), testutils.NewMemRoomStore())
	author := &domain.User{ID: "user-1", Name: "alice"}
	msg := message.NewFromUser(author, "hello")

	assert.NoError(t, svc.CheckMessageAuthorship(msg, "user-1"))
	assert.Equal(t, domain.ErrUnauthorized, domain.KindOf(svc.CheckMessageAuthorship(msg, "user-2")))

	system := message.New(nil, "server notice")
	assert.Equal(t, domain.ErrUnauthorized, domain.KindOf(svc.CheckMessageAuthorship(system, "user-1")))
}

func TestEditMessage(t *testing.T) {
	rooms := testutils.NewMemRoomStore()
	svc := NewService(testutils.NewMemUserStore(), rooms)
	author := &domain.User{ID: "user-1", Name: "alice"}

	first := message.NewFromUser(author, "first")
	second := message.NewFromUser(author, "secnod")
	room, err := rooms.Create(context.Background(), &domain.Room{
		Name:        "general",
		Author:      "owner-1",
		UsersInRoom: []string{"owner-1", "user-1"},
		ChatHistory: []domain.Message{first, second},
	})
	require.NoError(t, err)

	edited := second
	edited.Text = "second"
	updated, err := svc.EditMessage(context.Background(), edited, room)
	require.NoError(t, err)

	require.Len(t, updated.ChatHistory, 2)
	assert.Equal(t, "first", updated.ChatHistory[0].Text)
	assert.False(t, updated.ChatHistory[0].Edited)
	assert.Equal(t, "second", updated.ChatHistory[1].Text)
	assert.True(t, updated.ChatHistory[1].Edited)
	// Author is snapshotted at send time and never changes on edit.
	assert.Equal(t, "user-1", updated.ChatHistory[1].Author.ID)
}

func TestEditMessageNotFound(t *testing.T) {
	rooms := testutils.NewMemRoomStore()
	svc := NewService(testutils.NewMemUserStore(), rooms)

	room, err := rooms.Create(context.Background(), &domain.Room{Name: "general", Author: "owner-1"})
	require.NoError(t, err)

	ghost := message.New(nil, "never sent")
	_, err = svc.EditMessage(context.Background(), ghost, room)
	assert.Equal(t, domain.ErrPersistenceUpdate, domain.KindOf(err))
}
