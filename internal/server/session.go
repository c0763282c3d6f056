package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pagehub/go-pagechat/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Session is one live connection and its resolved identity. Inbound
// events are dispatched from the single Read goroutine, which keeps
// per-session ordering without further synchronization.
type Session struct {
	id          string
	conn        *websocket.Conn
	gateway     *Gateway
	log         *log.Logger
	identity    types.Identity
	displayName string
	send        chan *ServerEvent
	stop        chan struct{}
	stopOnce    sync.Once
}

func NewSession(identity types.Identity, conn *websocket.Conn, gw *Gateway, l *log.Logger) *Session {
	return &Session{
		id:          uuid.NewString(),
		conn:        conn,
		gateway:     gw,
		log:         l,
		identity:    identity,
		displayName: identity.Username,
		send:        make(chan *ServerEvent, 256),
		stop:        make(chan struct{}),
	}
}

func (s *Session) Id() string {
	return s.id
}

// user is the public shape of this session, with the current display
// name. Only read from the session's own event dispatch.
func (s *Session) user() types.OnlineUser {
	return types.OnlineUser{Id: s.identity.Id, Username: s.displayName}
}

func (s *Session) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-s.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(ev)
			if err != nil {
				s.log.Println("failed to serialize event:", err)
				continue
			}

			if !s.writeFrame(websocket.TextMessage, bytes) {
				return
			}
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.writeFrame(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (s *Session) Read() {
	defer func() {
		s.conn.Close()
		s.cleanup()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(appData string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Printf("ws: read: %v", err)
			}
			break
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			s.log.Println("error parsing event:", err)
			s.queueEvent(ErrInvalidEvent())
			continue
		}

		s.dispatch(&ev)
	}
}

func (s *Session) dispatch(ev *ClientEvent) {
	switch ev.Event {
	case EventJoinPage:
		var data JoinPage
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			s.queueEvent(ErrInvalidEvent())
			return
		}
		s.gateway.handleJoinPage(s, data)
	case EventLeavePage:
		var data LeavePage
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			s.queueEvent(ErrInvalidEvent())
			return
		}
		s.gateway.handleLeavePage(s, data)
	case EventSendMessage:
		var data SendMessage
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			s.queueEvent(ErrInvalidEvent())
			return
		}
		s.gateway.handleSendMessage(s, data)
	case EventTyping:
		var data Typing
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			s.queueEvent(ErrInvalidEvent())
			return
		}
		s.gateway.handleTyping(s, data)
	default:
		s.log.Printf("unknown event %q from session %s", ev.Event, s.id)
		s.queueEvent(ErrInvalidEvent())
	}
}

func (s *Session) queueEvent(ev *ServerEvent) bool {
	select {
	case s.send <- ev:
	default:
		s.log.Printf("send buffer full for session %s, dropping %s", s.id, ev.Event)
		return false
	}

	return true
}

func (s *Session) writeFrame(msgType int, msg []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := s.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			s.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

// Close stops the write pump and closes the connection; the read
// pump then unwinds through cleanup. Safe to call more than once.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *Session) cleanup() {
	s.gateway.deregister(s)
	s.Close()
}
