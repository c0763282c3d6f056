package server

import (
	"sort"
	"sync"

	"github.com/pagehub/go-pagechat/internal/types"
)

// sessionRecord is the registry's view of one connected session.
type sessionRecord struct {
	id            string
	identity      types.Identity
	displayName   string
	currentPageId string
}

// PresenceRegistry is the in-memory authority over connected
// sessions and per-page room membership. Both maps are guarded by a
// single mutex; every operation observes and produces a consistent
// snapshot.
type PresenceRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionRecord
	rooms    map[string]map[string]struct{}
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		sessions: make(map[string]*sessionRecord),
		rooms:    make(map[string]map[string]struct{}),
	}
}

// JoinResult reports the state of the joined room and, when the
// session was moved out of a previous room, enough to notify it.
type JoinResult struct {
	OnlineUsers []types.OnlineUser
	OnlineCount int
	// RoomCreated is true when this join created the room.
	RoomCreated bool
	// EvictedPageId is non-empty when the session was a member of
	// another room; a session belongs to at most one room.
	EvictedPageId   string
	EvictedCount    int
	EvictedRoomGone bool
}

// Connect registers a session with no room membership.
func (r *PresenceRegistry) Connect(sessionId string, identity types.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionId] = &sessionRecord{
		id:          sessionId,
		identity:    identity,
		displayName: identity.Username,
	}
}

// Join adds the session to a page's room and returns the full member
// list. Joining while a member of a different room evicts the old
// membership first. Re-joining the current room is idempotent.
func (r *PresenceRegistry) Join(sessionId, pageId string, identity types.Identity, displayName string) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if displayName == "" {
		displayName = identity.Username
	}

	rec, ok := r.sessions[sessionId]
	if !ok {
		rec = &sessionRecord{id: sessionId, identity: identity}
		r.sessions[sessionId] = rec
	}
	rec.displayName = displayName

	var res JoinResult
	if rec.currentPageId != "" && rec.currentPageId != pageId {
		count, gone := r.removeFromRoom(sessionId, rec.currentPageId)
		res.EvictedPageId = rec.currentPageId
		res.EvictedCount = count
		res.EvictedRoomGone = gone
	}
	rec.currentPageId = pageId

	room, ok := r.rooms[pageId]
	if !ok {
		room = make(map[string]struct{})
		r.rooms[pageId] = room
		res.RoomCreated = true
	}
	room[sessionId] = struct{}{}

	res.OnlineUsers = r.roomSnapshot(room)
	res.OnlineCount = len(room)

	return res
}

// Leave removes the session from a room. It reports the remaining
// member count, whether the session was actually a member, and
// whether the room was reaped.
func (r *PresenceRegistry) Leave(sessionId, pageId string) (int, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[pageId]
	if !ok {
		return 0, false, false
	}
	if _, ok := room[sessionId]; !ok {
		return len(room), false, false
	}

	count, gone := r.removeFromRoom(sessionId, pageId)

	if rec, ok := r.sessions[sessionId]; ok && rec.currentPageId == pageId {
		rec.currentPageId = ""
	}

	return count, true, gone
}

// RemovedSession carries what the caller needs to announce a
// departure after a disconnect.
type RemovedSession struct {
	PageId         string
	User           types.OnlineUser
	RemainingCount int
	RoomGone       bool
}

// RemoveSession deletes the session entirely, including any room
// membership. Idempotent; the second call reports nothing removed.
func (r *PresenceRegistry) RemoveSession(sessionId string) (RemovedSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionId]
	if !ok {
		return RemovedSession{}, false
	}
	delete(r.sessions, sessionId)

	removed := RemovedSession{
		User: types.OnlineUser{Id: rec.identity.Id, Username: rec.displayName},
	}

	if rec.currentPageId != "" {
		count, gone := r.removeFromRoom(sessionId, rec.currentPageId)
		removed.PageId = rec.currentPageId
		removed.RemainingCount = count
		removed.RoomGone = gone
	}

	return removed, true
}

func (r *PresenceRegistry) MemberCount(pageId string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms[pageId])
}

func (r *PresenceRegistry) TotalSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// RoomMembers returns a snapshot of the session ids in a room.
func (r *PresenceRegistry) RoomMembers(pageId string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[pageId]
	members := make([]string, 0, len(room))
	for id := range room {
		members = append(members, id)
	}

	return members
}

// CurrentPage returns the page the session is joined to, if any.
func (r *PresenceRegistry) CurrentPage(sessionId string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[sessionId]
	if !ok || rec.currentPageId == "" {
		return "", false
	}

	return rec.currentPageId, true
}

// removeFromRoom deletes the membership entry and reaps the room
// when it empties. Callers must hold the lock.
func (r *PresenceRegistry) removeFromRoom(sessionId, pageId string) (int, bool) {
	room, ok := r.rooms[pageId]
	if !ok {
		return 0, false
	}

	delete(room, sessionId)
	if len(room) == 0 {
		delete(r.rooms, pageId)
		return 0, true
	}

	return len(room), false
}

// roomSnapshot builds the member list for a room. Callers must hold
// the lock. Ordered by session id so snapshots are deterministic.
func (r *PresenceRegistry) roomSnapshot(room map[string]struct{}) []types.OnlineUser {
	ids := make([]string, 0, len(room))
	for id := range room {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	users := make([]types.OnlineUser, 0, len(ids))
	for _, id := range ids {
		rec, ok := r.sessions[id]
		if !ok {
			continue
		}
		users = append(users, types.OnlineUser{Id: rec.identity.Id, Username: rec.displayName})
	}

	return users
}
