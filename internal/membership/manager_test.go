package membership

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/pubsub"
	"github.com/banterhq/banter/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu       sync.Mutex
	messages []pubsub.Message
}

func (p *capturePublisher) Publish(ctx context.Context, msg pubsub.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) events(t *testing.T, topic string) []MemberEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []MemberEvent
	for _, msg := range p.messages {
		if msg.Topic != topic {
			continue
		}
		var ev MemberEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		out = append(out, ev)
	}
	return out
}

type allowAllOwnership struct{}

func (allowAllOwnership) CheckRoomOwnership(roomAuthorID, userID string) error { return nil }

type strictOwnership struct{}

func (strictOwnership) CheckRoomOwnership(roomAuthorID, userID string) error {
	if roomAuthorID != userID {
		return domain.NewError(domain.ErrNotRoomAuthor, "only the room's author can do this")
	}
	return nil
}

func seedRoom(t *testing.T, store *testutils.MemRoomStore, name, author string, members ...string) *domain.Room {
	t.Helper()
	room, err := store.Create(context.Background(), &domain.Room{
		Name:                name,
		Author:              author,
		UsersInRoom:         members,
		BannedUsersFromRoom: []string{},
		ChatHistory:         []domain.Message{},
	})
	require.NoError(t, err)
	return room
}

func TestJoinRoom(t *testing.T) {
	store := testutils.NewMemRoomStore()
	bus := &capturePublisher{}
	mgr := NewManager(store, allowAllOwnership{}, bus)
	user := &domain.User{ID: "user-1", Name: "alice"}
	seedRoom(t, store, "general", "owner-1", "owner-1")

	updated, err := mgr.JoinRoom(context.Background(), user, "general")
	require.NoError(t, err)
	assert.True(t, updated.HasMember("user-1"))

	added := bus.events(t, TopicMemberAdded)
	require.Len(t, added, 1)
	assert.Equal(t, "user-1", added[0].UserID)
	assert.Equal(t, updated.ID, added[0].RoomID)
}

func TestJoinRoomTwiceFails(t *testing.T) {
	store := testutils.NewMemRoomStore()
	mgr := NewManager(store, allowAllOwnership{}, &capturePublisher{})
	user := &domain.User{ID: "user-1"}
	seedRoom(t, store, "general", "owner-1", "owner-1")

	_, err := mgr.JoinRoom(context.Background(), user, "general")
	require.NoError(t, err)

	_, err = mgr.JoinRoom(context.Background(), user, "general")
	assert.Equal(t, domain.ErrUserAlreadyInRoom, domain.KindOf(err))

	room, err := store.FindByName(context.Background(), "general")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner-1", "user-1"}, room.UsersInRoom)
}

func TestJoinRoomBannedUserFails(t *testing.T) {
	store := testutils.NewMemRoomStore()
	mgr := NewManager(store, allowAllOwnership{}, &capturePublisher{})
	room := seedRoom(t, store, "general", "owner-1", "owner-1")
	_, err := store.AddBan(context.Background(), room.ID, "user-1")
	require.NoError(t, err)

	_, err = mgr.JoinRoom(context.Background(), &domain.User{ID: "user-1"}, "general")
	assert.Equal(t, domain.ErrUserBannedFromRoom, domain.KindOf(err))
}

func TestJoinRoomUnknownName(t *testing.T) {
	mgr := NewManager(testutils.NewMemRoomStore(), allowAllOwnership{}, &capturePublisher{})

	_, err := mgr.JoinRoom(context.Background(), &domain.User{ID: "user-1"}, "nowhere")
	assert.Equal(t, domain.ErrRoomNotFound, domain.KindOf(err))

	_, err = mgr.JoinRoom(context.Background(), &domain.User{ID: "user-1"}, "")
	assert.Equal(t, domain.ErrRoomQueryInvalid, domain.KindOf(err))
}

func TestLeaveRoom(t *testing.T) {
	store := testutils.NewMemRoomStore()
	bus := &capturePublisher{}
	mgr := NewManager(store, allowAllOwnership{}, bus)
	room := seedRoom(t, store, "general", "owner-1", "owner-1", "user-1")

	updated, err := mgr.LeaveRoom(context.Background(), "user-1", room)
	require.NoError(t, err)
	assert.False(t, updated.HasMember("user-1"))

	removed := bus.events(t, TopicMemberRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, ReasonLeft, removed[0].Reason)
}

func TestLeaveRoomNotMemberFails(t *testing.T) {
	store := testutils.NewMemRoomStore()
	mgr := NewManager(store, allowAllOwnership{}, &capturePublisher{})
	room := seedRoom(t, store, "general", "owner-1", "owner-1")

	_, err := mgr.LeaveRoom(context.Background(), "stranger", room)
	assert.Equal(t, domain.ErrUserNotInRoom, domain.KindOf(err))
}

func TestKickUserRequiresOwnership(t *testing.T) {
	store := testutils.NewMemRoomStore()
	bus := &capturePublisher{}
	mgr := NewManager(store, strictOwnership{}, bus)
	room := seedRoom(t, store, "general", "owner-1", "owner-1", "user-1")

	_, err := mgr.KickUserFromRoom(context.Background(), room, "user-1", "user-1")
	assert.Equal(t, domain.ErrNotRoomAuthor, domain.KindOf(err))

	updated, err := mgr.KickUserFromRoom(context.Background(), room, "user-1", "owner-1")
	require.NoError(t, err)
	assert.False(t, updated.HasMember("user-1"))

	removed := bus.events(t, TopicMemberRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, ReasonKicked, removed[0].Reason)
}

func TestBanUserKicksThenBans(t *testing.T) {
	store := testutils.NewMemRoomStore()
	bus := &capturePublisher{}
	mgr := NewManager(store, strictOwnership{}, bus)
	room := seedRoom(t, store, "general", "owner-1", "owner-1", "user-1")

	updated, err := mgr.BanUserFromRoom(context.Background(), room, "user-1", "owner-1")
	require.NoError(t, err)
	assert.False(t, updated.HasMember("user-1"))
	assert.True(t, updated.IsBanned("user-1"))

	removed := bus.events(t, TopicMemberRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, ReasonBanned, removed[0].Reason)
}

func TestBanUserNotMemberNeverTouchesBanList(t *testing.T) {
	store := testutils.NewMemRoomStore()
	mgr := NewManager(store, strictOwnership{}, &capturePublisher{})
	room := seedRoom(t, store, "general", "owner-1", "owner-1")

	_, err := mgr.BanUserFromRoom(context.Background(), room, "stranger", "owner-1")
	assert.Equal(t, domain.ErrUserNotInRoom, domain.KindOf(err))

	current, err := store.FindByID(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Empty(t, current.BannedUsersFromRoom)
}

func TestRemoveUserFromAllRooms(t *testing.T) {
	store := testutils.NewMemRoomStore()
	bus := &capturePublisher{}
	mgr := NewManager(store, allowAllOwnership{}, bus)
	seedRoom(t, store, "general", "owner-1", "owner-1", "user-1")
	seedRoom(t, store, "random", "owner-2", "owner-2", "user-1")
	seedRoom(t, store, "empty", "owner-3", "owner-3")

	err := mgr.RemoveUserFromAllRooms(context.Background(), "user-1")
	require.NoError(t, err)

	rooms, err := store.FindByMember(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, rooms)

	removed := bus.events(t, TopicMemberRemoved)
	require.Len(t, removed, 2)
	for _, ev := range removed {
		assert.Equal(t, ReasonSessionExpired, ev.Reason)
	}
}

func TestRemoveUserFromAllRoomsCoversIndexOnlyEntries(t *testing.T) {
	store := testutils.NewMemRoomStore()
	mgr := NewManager(store, allowAllOwnership{}, &capturePublisher{})
	user := &domain.User{ID: "user-1"}
	seedRoom(t, store, "general", "owner-1", "owner-1")
	room, err := mgr.JoinRoom(context.Background(), user, "general")
	require.NoError(t, err)

	// Concurrent leave through the store: the index still names the room,
	// but the user is gone. The cascade must skip it and finish clean.
	_, err = store.RemoveMember(context.Background(), room.ID, "user-1")
	require.NoError(t, err)

	err = mgr.RemoveUserFromAllRooms(context.Background(), "user-1")
	assert.NoError(t, err)
}

func TestRemoveUserFromAllRoomsSurvivesDeletedRoom(t *testing.T) {
	store := testutils.NewMemRoomStore()
	mgr := NewManager(store, allowAllOwnership{}, &capturePublisher{})
	user := &domain.User{ID: "user-1"}
	seedRoom(t, store, "general", "owner-1", "owner-1")
	seedRoom(t, store, "random", "owner-2", "owner-2", "user-1")
	joined, err := mgr.JoinRoom(context.Background(), user, "general")
	require.NoError(t, err)

	// The room disappears while the index still names it. The cascade must
	// treat it as already done, evict the stale entry and clean the rest.
	require.NoError(t, store.Delete(context.Background(), joined.ID))

	require.NoError(t, mgr.RemoveUserFromAllRooms(context.Background(), "user-1"))
	assert.Empty(t, mgr.index.roomsOf("user-1"))

	rooms, err := store.FindByMember(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, rooms)

	// The stale entry must not resurface on a later cascade.
	require.NoError(t, mgr.RemoveUserFromAllRooms(context.Background(), "user-1"))
}

func TestForgetRoomEvictsBookkeeping(t *testing.T) {
	store := testutils.NewMemRoomStore()
	mgr := NewManager(store, allowAllOwnership{}, &capturePublisher{})
	seedRoom(t, store, "general", "owner-1", "owner-1")
	joined, err := mgr.JoinRoom(context.Background(), &domain.User{ID: "user-1"}, "general")
	require.NoError(t, err)

	mgr.ForgetRoom(joined.ID)
	assert.Empty(t, mgr.index.roomsOf("user-1"))
}

func TestBanWithConcurrentRejoin(t *testing.T) {
	for i := 0; i < 50; i++ {
		store := testutils.NewMemRoomStore()
		mgr := NewManager(store, strictOwnership{}, &capturePublisher{})
		room := seedRoom(t, store, "general", "owner-1", "owner-1", "user-1")
		user := &domain.User{ID: "user-1"}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				_, err := mgr.JoinRoom(context.Background(), user, "general")
				if err == nil || domain.KindOf(err) == domain.ErrUserBannedFromRoom {
					return
				}
			}
		}()

		_, err := mgr.BanUserFromRoom(context.Background(), room, "user-1", "owner-1")
		require.NoError(t, err)
		<-done

		// Banned implies not a member, no matter how the rejoin interleaved
		// with the kick-then-ban sequence.
		final, err := store.FindByID(context.Background(), room.ID)
		require.NoError(t, err)
		require.True(t, final.IsBanned("user-1"))
		assert.False(t, final.HasMember("user-1"))
	}
}

func TestMemberIndexTracksJoinAndLeave(t *testing.T) {
	idx := newMemberIndex()
	idx.add("user-1", "room-a")
	idx.add("user-1", "room-b")
	idx.add("user-1", "room-a")

	assert.ElementsMatch(t, []string{"room-a", "room-b"}, idx.roomsOf("user-1"))

	idx.remove("user-1", "room-a")
	assert.ElementsMatch(t, []string{"room-b"}, idx.roomsOf("user-1"))

	idx.remove("user-1", "room-b")
	assert.Empty(t, idx.roomsOf("user-1"))
}

func TestRoomLocksSerializePerRoom(t *testing.T) {
	locks := newRoomLocks()

	unlock := locks.acquire("room-a")
	done := make(chan struct{})
	go func() {
		u := locks.acquire("room-a")
		u()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("second acquire should block until the first unlock")
	default:
	}

	unlock()
	<-done
}
