package database

import "context"

type PageChatRepository interface {
	Ping() error
	// GetJoinablePage returns the page only if it exists, is active
	// and is public. All three failure modes surface as
	// sql.ErrNoRows so callers cannot leak the existence of private
	// pages.
	GetJoinablePage(ctx context.Context, pageId string) (Page, error)
	// GetActivePage ignores the visibility flag; used by the admin
	// surface.
	GetActivePage(ctx context.Context, pageId string) (Page, error)
	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	GetMessageById(ctx context.Context, id string) (Message, error)
	ListMessages(ctx context.Context, pageId string, filter MessageFilter) ([]Message, error)
	DeleteMessage(ctx context.Context, id string) error
	ClearMessages(ctx context.Context, pageId string) (int64, error)
	GetPageStats(ctx context.Context, pageId string) (PageChatStats, error)
}
