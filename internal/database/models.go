package database

import (
	"database/sql"
	"time"
)

type Page struct {
	Id           string
	Title        string
	Description  string
	InternalCode string
	IsPublic     bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Message struct {
	Id          string
	PageId      string
	UserId      sql.NullString
	Username    string
	Content     string
	MessageType string
	IsDeleted   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateMessageParams struct {
	PageId string
	// UserId is empty for anonymous senders and stored as NULL.
	UserId      string
	Username    string
	Content     string
	MessageType string
}

// MessageFilter narrows a message listing. Zero times mean no bound.
type MessageFilter struct {
	Before time.Time
	After  time.Time
	Limit  int
}

type PageChatStats struct {
	TotalMessages int
	TodayMessages int
	UniqueSenders int
}
