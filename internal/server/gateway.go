package server

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/pagehub/go-pagechat/internal/database"
	"github.com/pagehub/go-pagechat/internal/stats"
)

// dbTimeout bounds the page lookup and message persistence calls so
// a slow store cannot stall a session's room.
const dbTimeout = 5 * time.Second

const (
	NumSessions     = "NumSessions"
	NumActiveRooms  = "NumActiveRooms"
	NumMessagesSent = "NumMessagesSent"
)

// Gateway accepts registered sessions, dispatches their inbound
// events against the presence registry and message store, and fans
// out the resulting broadcasts.
type Gateway struct {
	log          *log.Logger
	db           database.PageChatRepository
	registry     *PresenceRegistry
	stats        stats.StatsProvider
	sessions     map[string]*Session
	sessionsLock sync.Mutex
}

func NewGateway(logger *log.Logger, db database.PageChatRepository, su stats.StatsProvider) (*Gateway, error) {
	gw := &Gateway{
		log:      logger,
		db:       db,
		registry: NewPresenceRegistry(),
		stats:    su,
		sessions: make(map[string]*Session),
	}

	su.RegisterMetric(NumSessions)
	su.RegisterMetric(NumActiveRooms)
	su.RegisterMetric(NumMessagesSent)

	return gw, nil
}

// Register adds a freshly upgraded connection. The identity was
// already resolved by the token verifier; an unverifiable credential
// never reaches this point.
func (g *Gateway) Register(s *Session) {
	g.sessionsLock.Lock()
	g.sessions[s.id] = s
	g.sessionsLock.Unlock()

	g.registry.Connect(s.id, s.identity)
	g.stats.Incr(NumSessions)
	g.log.Printf("session %s connected as %q", s.id, s.identity.Username)
}

// deregister tears down a disconnected session: registry cleanup
// first, then the departure broadcast to the room it occupied.
// Safe against double invocation.
func (g *Gateway) deregister(s *Session) {
	g.sessionsLock.Lock()
	_, ok := g.sessions[s.id]
	delete(g.sessions, s.id)
	g.sessionsLock.Unlock()

	if !ok {
		return
	}

	g.stats.Decr(NumSessions)

	removed, ok := g.registry.RemoveSession(s.id)
	if !ok {
		return
	}

	g.log.Printf("session %s disconnected (%q)", s.id, removed.User.Username)

	if removed.PageId != "" {
		if removed.RoomGone {
			g.stats.Decr(NumActiveRooms)
		}
		g.toRoom(removed.PageId, &ServerEvent{
			Event: EventUserLeft,
			Data:  UserLeft{User: removed.User, OnlineCount: removed.RemainingCount},
		})
	}
}

func (g *Gateway) handleJoinPage(s *Session, data JoinPage) {
	if data.PageId == "" {
		s.queueEvent(ErrInvalidEvent())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := g.db.GetJoinablePage(ctx, data.PageId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.queueEvent(ErrPageNotFound())
		} else {
			g.log.Println("GetJoinablePage:", err)
			s.queueEvent(ErrInternalError())
		}
		return
	}

	if data.Username != "" {
		s.displayName = data.Username
	}

	res := g.registry.Join(s.id, data.PageId, s.identity, s.displayName)
	if res.RoomCreated {
		g.stats.Incr(NumActiveRooms)
	}

	// a session belongs to at most one room; notify the room it
	// was moved out of
	if res.EvictedPageId != "" {
		if res.EvictedRoomGone {
			g.stats.Decr(NumActiveRooms)
		}
		g.toRoom(res.EvictedPageId, &ServerEvent{
			Event: EventUserLeft,
			Data:  UserLeft{User: s.user(), OnlineCount: res.EvictedCount},
		})
	}

	g.toRoomExcluding(data.PageId, s.id, &ServerEvent{
		Event: EventUserJoined,
		Data:  UserJoined{User: s.user(), OnlineCount: res.OnlineCount},
	})

	s.queueEvent(&ServerEvent{
		Event: EventJoinedPage,
		Data: JoinedPage{
			PageId:      data.PageId,
			OnlineUsers: res.OnlineUsers,
			OnlineCount: res.OnlineCount,
		},
	})

	g.log.Printf("session %s joined page %s as %q", s.id, data.PageId, s.displayName)
}

func (g *Gateway) handleLeavePage(s *Session, data LeavePage) {
	count, wasMember, roomGone := g.registry.Leave(s.id, data.PageId)
	if !wasMember {
		return
	}

	if roomGone {
		g.stats.Decr(NumActiveRooms)
	}

	g.toRoom(data.PageId, &ServerEvent{
		Event: EventUserLeft,
		Data:  UserLeft{User: s.user(), OnlineCount: count},
	})

	g.log.Printf("session %s left page %s", s.id, data.PageId)
}

func (g *Gateway) handleSendMessage(s *Session, data SendMessage) {
	current, ok := g.registry.CurrentPage(s.id)
	if !ok || current != data.PageId {
		s.queueEvent(ErrNotInRoom())
		return
	}

	content, msgType, err := ValidateMessage(data.Message, data.MessageType)
	if err != nil {
		switch {
		case errors.Is(err, ErrMessageEmpty):
			s.queueEvent(ErrEmptyMessage())
		case errors.Is(err, ErrMessageTooLarge):
			s.queueEvent(ErrMessageTooLong())
		default:
			s.queueEvent(ErrUnsupportedMessageType())
		}
		return
	}

	params := database.CreateMessageParams{
		PageId:      data.PageId,
		Username:    s.displayName,
		Content:     content,
		MessageType: msgType,
	}
	// anonymous senders have no stable user id
	if !s.identity.Anonymous {
		params.UserId = s.identity.Id
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	msg, err := g.db.CreateMessage(ctx, params)
	if err != nil {
		g.log.Println("CreateMessage:", err)
		s.queueEvent(ErrInternalError())
		return
	}

	g.stats.Incr(NumMessagesSent)

	// the sender receives the broadcast like everyone else
	g.toRoom(data.PageId, &ServerEvent{
		Event: EventNewMessage,
		Data: NewMessage{
			Id:          msg.Id,
			PageId:      msg.PageId,
			UserId:      msg.UserId.String,
			Username:    msg.Username,
			Message:     msg.Content,
			MessageType: msg.MessageType,
			CreatedAt:   msg.CreatedAt,
		},
	})
}

func (g *Gateway) handleTyping(s *Session, data Typing) {
	current, ok := g.registry.CurrentPage(s.id)
	if !ok || current != data.PageId {
		return
	}

	g.toRoomExcluding(data.PageId, s.id, &ServerEvent{
		Event: EventUserTyping,
		Data:  UserTyping{User: s.user(), IsTyping: data.IsTyping},
	})
}

// toSession delivers to one session; a session that disconnected
// since the member snapshot was taken is skipped.
func (g *Gateway) toSession(sessionId string, ev *ServerEvent) {
	g.sessionsLock.Lock()
	s, ok := g.sessions[sessionId]
	g.sessionsLock.Unlock()

	if !ok {
		return
	}

	s.queueEvent(ev)
}

func (g *Gateway) toRoom(pageId string, ev *ServerEvent) {
	g.toRoomExcluding(pageId, "", ev)
}

func (g *Gateway) toRoomExcluding(pageId, excludeSessionId string, ev *ServerEvent) {
	for _, id := range g.registry.RoomMembers(pageId) {
		if id == excludeSessionId {
			continue
		}
		g.toSession(id, ev)
	}
}

func (g *Gateway) toAll(ev *ServerEvent) {
	g.sessionsLock.Lock()
	sessions := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		sessions = append(sessions, s)
	}
	g.sessionsLock.Unlock()

	for _, s := range sessions {
		s.queueEvent(ev)
	}
}

// SendSystemMessage delivers an operator message to every session
// on one page.
func (g *Gateway) SendSystemMessage(pageId, message string) {
	g.toRoom(pageId, &ServerEvent{
		Event: EventSystemMessage,
		Data:  SystemMessage{Message: message, Timestamp: Now()},
	})
}

// BroadcastSystemNotification announces to every connected session.
func (g *Gateway) BroadcastSystemNotification(data any) {
	g.toAll(&ServerEvent{Event: EventSystemNotification, Data: data})
}

func (g *Gateway) OnlineCount(pageId string) int {
	return g.registry.MemberCount(pageId)
}

func (g *Gateway) TotalOnline() int {
	return g.registry.TotalSessions()
}

// Shutdown announces the shutdown, closes every session and waits
// for their cleanup to complete.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.BroadcastSystemNotification(SystemMessage{Message: "server shutting down", Timestamp: Now()})

	g.sessionsLock.Lock()
	sessions := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		sessions = append(sessions, s)
	}
	g.sessionsLock.Unlock()

	for _, s := range sessions {
		s.Close()
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if g.registry.TotalSessions() == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
