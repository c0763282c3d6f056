package types

import (
	"time"
)

// Identity is the resolved principal for one connection. Anonymous
// identities are generated at connect time and live only as long as
// the connection.
type Identity struct {
	Id        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role,omitempty"`
	Anonymous bool   `json:"-"`
}

// OnlineUser is the public shape of a room member.
type OnlineUser struct {
	Id       string `json:"id"`
	Username string `json:"username"`
}

type PageSummary struct {
	Id           string `json:"id"`
	Title        string `json:"title"`
	InternalCode string `json:"internal_code"`
	IsPublic     bool   `json:"is_public"`
	IsActive     bool   `json:"is_active"`
}

type ChatMessage struct {
	Id          string    `json:"id"`
	PageId      string    `json:"page_id"`
	UserId      string    `json:"user_id,omitempty"`
	Username    string    `json:"username"`
	Message     string    `json:"message"`
	MessageType string    `json:"message_type"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeEmoji = "emoji"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidMessageType reports whether t is one of the supported chat
// message types.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeEmoji:
		return true
	}
	return false
}
