package membership

// Bus topics for membership state transitions. The connection bridge
// subscribes to these so broadcast groups track persisted membership on every
// path, including cascades that run outside any connection's event handler.
const (
	// TopicMemberAdded is published after a user is persisted into a room's
	// usersInRoom.
	TopicMemberAdded = "membership.added"

	// TopicMemberRemoved is published after a user is persisted out of a
	// room's usersInRoom, whatever the reason.
	TopicMemberRemoved = "membership.removed"
)

// RemovalReason distinguishes the externally visible removal notifications.
type RemovalReason string

const (
	ReasonLeft           RemovalReason = "left"
	ReasonKicked         RemovalReason = "kicked"
	ReasonBanned         RemovalReason = "banned"
	ReasonSessionExpired RemovalReason = "session_expired"
)

// MemberEvent is the payload published on membership topics.
type MemberEvent struct {
	RoomID   string        `json:"roomId"`
	RoomName string        `json:"roomName"`
	UserID   string        `json:"userId"`
	Reason   RemovalReason `json:"reason,omitempty"`
}
