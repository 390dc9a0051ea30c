package bridge

import (
	"encoding/json"

	"github.com/banterhq/banter/internal/domain"
)

// Frame is the envelope every client event arrives in. The ID is chosen by
// the client and echoed back on the acknowledgment so callers can correlate.
type Frame struct {
	ID      string          `json:"id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Ack is the per-event acknowledgment. Exactly one of Error and Data is set;
// a domain failure travels here and never as a transport-level fault.
type Ack struct {
	ID    string            `json:"id"`
	Event string            `json:"event"`
	For   string            `json:"for"`
	Error *domain.WireError `json:"error,omitempty"`
	Data  any               `json:"data,omitempty"`
}

// Push is a server-initiated frame: notifications and full-state snapshots.
type Push struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client event names.
const (
	EventCreateRoom     = "createRoom"
	EventEditRoom       = "editRoom"
	EventDeleteRoom     = "deleteRoom"
	EventJoinRoom       = "joinRoom"
	EventLeaveRoom      = "leaveRoom"
	EventKickUser       = "kickUser"
	EventBanUser        = "banUser"
	EventFetchRoom      = "fetchRoom"
	EventFetchAllRooms  = "fetchAllRooms"
	EventFetchUserRooms = "fetchUserRooms"
	EventSendMessage    = "sendMessage"
	EventEditMessage    = "editMessage"
)

// Server push event names.
const (
	PushKicked          = "kicked"
	PushBanned          = "banned"
	PushNewMessage      = "newMessage"
	PushRoomDataUpdate  = "roomDataUpdate"
	PushRoomsListUpdate = "roomsListUpdate"
)

func ackError(frame Frame, err error) Ack {
	return Ack{ID: frame.ID, Event: "ack", For: frame.Event, Error: domain.Serialize(err)}
}

func ackData(frame Frame, data any) Ack {
	return Ack{ID: frame.ID, Event: "ack", For: frame.Event, Data: data}
}

func marshalPush(event string, data any) ([]byte, error) {
	return json.Marshal(Push{Event: event, Data: data})
}
