package server

import (
	"encoding/json"
	"time"

	"github.com/pagehub/go-pagechat/internal/types"
)

// Inbound event names.
const (
	EventJoinPage    = "join_page"
	EventLeavePage   = "leave_page"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
)

// Outbound event names.
const (
	EventJoinedPage         = "joined_page"
	EventUserJoined         = "user_joined"
	EventUserLeft           = "user_left"
	EventNewMessage         = "new_message"
	EventUserTyping         = "user_typing"
	EventSystemMessage      = "system_message"
	EventSystemNotification = "system_notification"
	EventError              = "error"
)

// ClientEvent is one inbound frame. Data is decoded per event name.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type JoinPage struct {
	PageId string `json:"pageId"`
	// Username overrides the session's display name for this and
	// all subsequent events.
	Username string `json:"username,omitempty"`
}

type LeavePage struct {
	PageId string `json:"pageId"`
}

type SendMessage struct {
	PageId      string `json:"pageId"`
	Message     string `json:"message"`
	MessageType string `json:"messageType,omitempty"`
}

type Typing struct {
	PageId   string `json:"pageId"`
	IsTyping bool   `json:"isTyping"`
}

// ServerEvent is one outbound frame.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type JoinedPage struct {
	PageId      string             `json:"pageId"`
	OnlineUsers []types.OnlineUser `json:"onlineUsers"`
	OnlineCount int                `json:"onlineCount"`
}

type UserJoined struct {
	User        types.OnlineUser `json:"user"`
	OnlineCount int              `json:"onlineCount"`
}

type UserLeft struct {
	User        types.OnlineUser `json:"user"`
	OnlineCount int              `json:"onlineCount"`
}

type NewMessage struct {
	Id          string    `json:"id"`
	PageId      string    `json:"pageId"`
	UserId      string    `json:"userId,omitempty"`
	Username    string    `json:"username"`
	Message     string    `json:"message"`
	MessageType string    `json:"messageType"`
	CreatedAt   time.Time `json:"createdAt"`
}

type UserTyping struct {
	User     types.OnlineUser `json:"user"`
	IsTyping bool             `json:"isTyping"`
}

type SystemMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func errEvent(message string) *ServerEvent {
	return &ServerEvent{
		Event: EventError,
		Data:  ErrorPayload{Message: message},
	}
}

func ErrPageNotFound() *ServerEvent {
	return errEvent("page not found")
}

func ErrNotInRoom() *ServerEvent {
	return errEvent("not joined to page")
}

func ErrEmptyMessage() *ServerEvent {
	return errEvent("message cannot be empty")
}

func ErrMessageTooLong() *ServerEvent {
	return errEvent("message too long")
}

func ErrUnsupportedMessageType() *ServerEvent {
	return errEvent("unsupported message type")
}

func ErrInvalidEvent() *ServerEvent {
	return errEvent("invalid message format")
}

func ErrInternalError() *ServerEvent {
	return errEvent("internal server error")
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
