package membership

import "sync"

// memberIndex is the in-memory reverse index from user id to the set of room
// ids the user is a member of. It is maintained incrementally on every
// membership mutation and makes cascade cleanup proportional to the rooms the
// user is actually in instead of a full table scan. The store's reverse query
// remains the authoritative fallback for rooms joined before this process
// started.
type memberIndex struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

func newMemberIndex() *memberIndex {
	return &memberIndex{rooms: make(map[string]map[string]struct{})}
}

func (i *memberIndex) add(userID, roomID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	set, ok := i.rooms[userID]
	if !ok {
		set = make(map[string]struct{})
		i.rooms[userID] = set
	}
	set[roomID] = struct{}{}
}

func (i *memberIndex) remove(userID, roomID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if set, ok := i.rooms[userID]; ok {
		delete(set, roomID)
		if len(set) == 0 {
			delete(i.rooms, userID)
		}
	}
}

// dropRoom removes roomID from every user's entry, for room deletion.
func (i *memberIndex) dropRoom(roomID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for userID, set := range i.rooms {
		delete(set, roomID)
		if len(set) == 0 {
			delete(i.rooms, userID)
		}
	}
}

// roomsOf returns a snapshot of the room ids indexed for userID.
func (i *memberIndex) roomsOf(userID string) []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	set := i.rooms[userID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
