// Package bridge keeps the live transport consistent with persisted room
// membership. It maps authenticated connections to per-room broadcast groups,
// applies membership changes to those groups, and emits notifications and
// full-state snapshots.
package bridge

import (
	"log/slog"
	"sync"
)

// Bridge is the registry of live connections and their broadcast groups.
// The invariant it maintains: a room's group is always a subset of the room's
// persisted usersInRoom, translated to online connections. No connection may
// remain grouped to a room after that user is removed from the room by any
// path.
type Bridge struct {
	mu sync.RWMutex

	// clients maps connection id to client. A user can hold several
	// connections (tabs, devices); each has its own id.
	clients map[string]*Client

	// byUser maps user id to that user's live connections.
	byUser map[string]map[string]*Client

	// groups maps room id to the connections currently joined to that
	// room's broadcast group.
	groups map[string]map[string]*Client

	logger *slog.Logger
}

// New creates an empty bridge.
func New() *Bridge {
	return &Bridge{
		clients: make(map[string]*Client),
		byUser:  make(map[string]map[string]*Client),
		groups:  make(map[string]map[string]*Client),
		logger:  slog.Default().With("service", "bridge"),
	}
}

// Register adds a freshly authenticated connection.
func (b *Bridge) Register(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clients[c.ID] = c
	conns, ok := b.byUser[c.UserID]
	if !ok {
		conns = make(map[string]*Client)
		b.byUser[c.UserID] = conns
	}
	conns[c.ID] = c
	b.logger.Info("client registered", "connectionID", c.ID, "userID", c.UserID)
}

// Unregister tears the connection down: it leaves every broadcast group and
// its send channel is closed. Persisted membership is untouched; disconnect
// is transport teardown only.
func (b *Bridge) Unregister(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[c.ID]; !ok {
		return
	}
	delete(b.clients, c.ID)

	if conns, ok := b.byUser[c.UserID]; ok {
		delete(conns, c.ID)
		if len(conns) == 0 {
			delete(b.byUser, c.UserID)
		}
	}
	for roomID, group := range b.groups {
		delete(group, c.ID)
		if len(group) == 0 {
			delete(b.groups, roomID)
		}
	}
	close(c.send)
	b.logger.Info("client unregistered", "connectionID", c.ID, "userID", c.UserID)
}

// JoinGroup adds all of the user's live connections to the room's group.
// A no-op for offline users.
func (b *Bridge) JoinGroup(roomID, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	conns := b.byUser[userID]
	if len(conns) == 0 {
		return
	}
	group, ok := b.groups[roomID]
	if !ok {
		group = make(map[string]*Client)
		b.groups[roomID] = group
	}
	for id, c := range conns {
		group[id] = c
	}
}

// LeaveGroup removes all of the user's connections from the room's group.
func (b *Bridge) LeaveGroup(roomID, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	group, ok := b.groups[roomID]
	if !ok {
		return
	}
	for id, c := range group {
		if c.UserID == userID {
			delete(group, id)
		}
	}
	if len(group) == 0 {
		delete(b.groups, roomID)
	}
}

// DropGroup removes a room's broadcast group entirely, for room deletion.
func (b *Bridge) DropGroup(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.groups, roomID)
}

// IsOnline reports whether the user has at least one live connection.
func (b *Bridge) IsOnline(userID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byUser[userID]) > 0
}

// GroupMembers returns the user ids currently in the room's broadcast group.
func (b *Bridge) GroupMembers(roomID string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, c := range b.groups[roomID] {
		seen[c.UserID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

// CloseAll tears down every live connection, for server shutdown. Closing
// the send channels ends the write pumps, whose teardown closes the sockets
// and unblocks the read pumps.
func (b *Bridge) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, c := range b.clients {
		delete(b.clients, id)
		close(c.send)
	}
	b.byUser = make(map[string]map[string]*Client)
	b.groups = make(map[string]map[string]*Client)
	b.logger.Info("all clients disconnected")
}

// SendToUser delivers the payload to every live connection of the user.
// Returns false when the user is offline, in which case nothing was sent.
func (b *Bridge) SendToUser(userID string, payload []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	conns := b.byUser[userID]
	if len(conns) == 0 {
		return false
	}
	for _, c := range conns {
		c.enqueue(payload)
	}
	return true
}

// BroadcastToRoom delivers the payload to every connection in the room's
// broadcast group.
func (b *Bridge) BroadcastToRoom(roomID string, payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, c := range b.groups[roomID] {
		c.enqueue(payload)
	}
}

// BroadcastAll delivers the payload to every connected client.
func (b *Bridge) BroadcastAll(payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, c := range b.clients {
		c.enqueue(payload)
	}
}
