package room

import (
	"context"
	"errors"
	"testing"

	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/message"
	"github.com/banterhq/banter/internal/moderation"
	"github.com/banterhq/banter/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *testutils.MemRoomStore, *testutils.MemUserStore) {
	t.Helper()
	rooms := testutils.NewMemRoomStore()
	users := testutils.NewMemUserStore(
		&domain.User{ID: "owner-1", Name: "alice", Email: "alice@example.com"},
		&domain.User{ID: "user-1", Name: "bob", Email: "bob@example.com"},
	)
	return NewService(rooms, users, moderation.NewFilter("badword")), rooms, users
}

func validDraft() domain.RoomDraft {
	return domain.RoomDraft{Name: "general", Description: "a place for everything"}
}

func TestCreateRoom(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := &domain.User{ID: "owner-1"}

	created, err := svc.CreateRoom(context.Background(), owner, validDraft())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "general", created.Name)
	assert.Equal(t, "owner-1", created.Author)
	assert.Equal(t, []string{"owner-1"}, created.UsersInRoom)
	assert.Empty(t, created.BannedUsersFromRoom)
	assert.Empty(t, created.ChatHistory)
}

func TestCreateRoomDuplicateName(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := &domain.User{ID: "owner-1"}

	_, err := svc.CreateRoom(context.Background(), owner, validDraft())
	require.NoError(t, err)

	_, err = svc.CreateRoom(context.Background(), owner, validDraft())
	assert.Equal(t, domain.ErrRoomNameTaken, domain.KindOf(err))
}

func TestCreateRoomValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := &domain.User{ID: "owner-1"}

	cases := []struct {
		name  string
		draft domain.RoomDraft
		field string
	}{
		{"missing name", domain.RoomDraft{Description: "a place for everything"}, "name"},
		{"missing description", domain.RoomDraft{Name: "general"}, "description"},
		{"short description", domain.RoomDraft{Name: "general", Description: "short"}, "description"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateRoom(context.Background(), owner, tc.draft)
			require.Error(t, err)
			assert.Equal(t, domain.ErrValidationMissingData, domain.KindOf(err))

			var domErr *domain.Error
			require.ErrorAs(t, err, &domErr)
			assert.Equal(t, tc.field, domErr.Field)
		})
	}
}

func TestCreateRoomProfaneContent(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := &domain.User{ID: "owner-1"}

	_, err := svc.CreateRoom(context.Background(), owner, domain.RoomDraft{
		Name:        "badword",
		Description: "a place for everything",
	})
	assert.Equal(t, domain.ErrValidationProfaneContent, domain.KindOf(err))

	_, err = svc.CreateRoom(context.Background(), owner, domain.RoomDraft{
		Name:        "general",
		Description: "full of badword content here",
	})
	assert.Equal(t, domain.ErrValidationProfaneContent, domain.KindOf(err))
}

func TestEditRoom(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := &domain.User{ID: "owner-1"}

	created, err := svc.CreateRoom(context.Background(), owner, validDraft())
	require.NoError(t, err)

	updated, err := svc.EditRoom(context.Background(), domain.RoomDraft{
		Name:        "renamed",
		Description: "still a place for everything",
	}, created)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "still a place for everything", updated.Description)
	assert.Equal(t, created.UsersInRoom, updated.UsersInRoom)
}

func TestEditRoomNameCollision(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := &domain.User{ID: "owner-1"}

	_, err := svc.CreateRoom(context.Background(), owner, domain.RoomDraft{Name: "taken", Description: "a place for everything"})
	require.NoError(t, err)
	created, err := svc.CreateRoom(context.Background(), owner, validDraft())
	require.NoError(t, err)

	_, err = svc.EditRoom(context.Background(), domain.RoomDraft{Name: "taken", Description: "a place for everything"}, created)
	assert.Equal(t, domain.ErrRoomNameTaken, domain.KindOf(err))
}

func TestDeleteRoom(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := &domain.User{ID: "owner-1"}

	created, err := svc.CreateRoom(context.Background(), owner, validDraft())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRoom(context.Background(), created.ID))

	err = svc.DeleteRoom(context.Background(), created.ID)
	assert.Equal(t, domain.ErrRoomNotFound, domain.KindOf(err))
}

func TestFetchRoomSnapshot(t *testing.T) {
	svc, rooms, _ := newTestService(t)
	owner := &domain.User{ID: "owner-1"}

	created, err := svc.CreateRoom(context.Background(), owner, validDraft())
	require.NoError(t, err)
	_, err = rooms.AddMember(context.Background(), created.ID, "user-1")
	require.NoError(t, err)
	// A member the user store no longer knows must be skipped, not fail the
	// snapshot.
	_, err = rooms.AddMember(context.Background(), created.ID, "ghost")
	require.NoError(t, err)

	snap, err := svc.FetchRoom(context.Background(), "general")
	require.NoError(t, err)
	require.Len(t, snap.UsersInRoom, 2)
	assert.Equal(t, "alice", snap.UsersInRoom[0].Name)
	assert.Equal(t, "bob", snap.UsersInRoom[1].Name)
}

func TestFetchRoomErrors(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.FetchRoom(context.Background(), "")
	assert.Equal(t, domain.ErrRoomQueryInvalid, domain.KindOf(err))

	_, err = svc.FetchRoom(context.Background(), "nowhere")
	assert.Equal(t, domain.ErrRoomNotFound, domain.KindOf(err))
}

func TestSaveChatHistory(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := &domain.User{ID: "owner-1", Name: "alice"}

	created, err := svc.CreateRoom(context.Background(), owner, validDraft())
	require.NoError(t, err)

	msg := message.NewFromUser(owner, "hello there")
	stored, err := svc.SaveChatHistory(context.Background(), created, msg)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, stored.ID)
	assert.Equal(t, "hello there", stored.Text)
	require.NotNil(t, stored.Author)
	assert.Equal(t, "owner-1", stored.Author.ID)
}

func TestCheckMessageContent(t *testing.T) {
	svc, _, _ := newTestService(t)

	assert.NoError(t, svc.CheckMessageContent("a perfectly fine message"))

	err := svc.CheckMessageContent("full of badword content")
	require.Error(t, err)
	assert.Equal(t, domain.ErrValidationProfaneContent, domain.KindOf(err))

	var domErr *domain.Error
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, "text", domErr.Field)
}

func TestSaveChatHistoryPersistenceFailure(t *testing.T) {
	svc, rooms, _ := newTestService(t)
	owner := &domain.User{ID: "owner-1", Name: "alice"}

	created, err := svc.CreateRoom(context.Background(), owner, validDraft())
	require.NoError(t, err)

	rooms.FailWith = errors.New("connection reset")
	_, err = svc.SaveChatHistory(context.Background(), created, message.NewFromUser(owner, "lost"))
	assert.Equal(t, domain.ErrPersistenceUpdate, domain.KindOf(err))
}

func TestCheckNameAvailable(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := &domain.User{ID: "owner-1"}

	created, err := svc.CreateRoom(context.Background(), owner, validDraft())
	require.NoError(t, err)

	// The room's own name is available to itself.
	assert.NoError(t, svc.CheckNameAvailable(context.Background(), "general", created.ID))

	err = svc.CheckNameAvailable(context.Background(), "general", "some-other-room")
	assert.Equal(t, domain.ErrRoomNameTaken, domain.KindOf(err))
}

func TestFetchUserRooms(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateRoom(context.Background(), &domain.User{ID: "owner-1"}, validDraft())
	require.NoError(t, err)
	_, err = svc.CreateRoom(context.Background(), &domain.User{ID: "user-1"}, domain.RoomDraft{
		Name:        "random",
		Description: "a room about nothing",
	})
	require.NoError(t, err)

	owned, err := svc.FetchUserRooms(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "general", owned[0].Name)

	all, err := svc.FetchAllRooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
