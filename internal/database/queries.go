package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (db *PgPageChatRepository) GetJoinablePage(ctx context.Context, pageId string) (Page, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, title, description, internal_code, is_public, is_active FROM media_pages "+
			"WHERE id = $1 AND is_active = TRUE AND is_public = TRUE LIMIT 1",
		pageId,
	)

	var p Page
	err := row.Scan(
		&p.Id,
		&p.Title,
		&p.Description,
		&p.InternalCode,
		&p.IsPublic,
		&p.IsActive,
	)

	return p, err
}

func (db *PgPageChatRepository) GetActivePage(ctx context.Context, pageId string) (Page, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, title, description, internal_code, is_public, is_active FROM media_pages "+
			"WHERE id = $1 AND is_active = TRUE LIMIT 1",
		pageId,
	)

	var p Page
	err := row.Scan(
		&p.Id,
		&p.Title,
		&p.Description,
		&p.InternalCode,
		&p.IsPublic,
		&p.IsActive,
	)

	return p, err
}

func (db *PgPageChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	var userId sql.NullString
	if params.UserId != "" {
		userId = sql.NullString{String: params.UserId, Valid: true}
	}

	now := time.Now().UTC()
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO chat_messages (id, page_id, user_id, username, message, message_type, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $7) "+
			"RETURNING id, page_id, user_id, username, message, message_type, created_at",
		uuid.NewString(),
		params.PageId,
		userId,
		params.Username,
		params.Content,
		params.MessageType,
		now,
	)

	var m Message
	err := row.Scan(
		&m.Id,
		&m.PageId,
		&m.UserId,
		&m.Username,
		&m.Content,
		&m.MessageType,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgPageChatRepository) GetMessageById(ctx context.Context, id string) (Message, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, page_id, user_id, username, message, message_type, created_at FROM chat_messages "+
			"WHERE id = $1 AND is_deleted = FALSE LIMIT 1",
		id,
	)

	var m Message
	err := row.Scan(
		&m.Id,
		&m.PageId,
		&m.UserId,
		&m.Username,
		&m.Content,
		&m.MessageType,
		&m.CreatedAt,
	)

	return m, err
}

// ListMessages returns up to filter.Limit messages for a page,
// newest first. Callers reverse the slice when they need display
// order.
func (db *PgPageChatRepository) ListMessages(ctx context.Context, pageId string, filter MessageFilter) ([]Message, error) {
	query := "SELECT id, page_id, user_id, username, message, message_type, created_at FROM chat_messages " +
		"WHERE page_id = $1 AND is_deleted = FALSE"
	args := []any{pageId}

	if !filter.Before.IsZero() {
		args = append(args, filter.Before)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	if !filter.After.IsZero() {
		args = append(args, filter.After)
		query += fmt.Sprintf(" AND created_at > $%d", len(args))
	}

	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.PageId,
			&m.UserId,
			&m.Username,
			&m.Content,
			&m.MessageType,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (db *PgPageChatRepository) DeleteMessage(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE chat_messages SET is_deleted = TRUE, updated_at = $2 WHERE id = $1 AND is_deleted = FALSE",
		id,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgPageChatRepository) ClearMessages(ctx context.Context, pageId string) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE chat_messages SET is_deleted = TRUE, updated_at = $2 WHERE page_id = $1 AND is_deleted = FALSE",
		pageId,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (db *PgPageChatRepository) GetPageStats(ctx context.Context, pageId string) (PageChatStats, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*), "+
			"COUNT(*) FILTER (WHERE created_at >= date_trunc('day', now() AT TIME ZONE 'utc')), "+
			"COUNT(DISTINCT user_id) "+
			"FROM chat_messages WHERE page_id = $1 AND is_deleted = FALSE",
		pageId,
	)

	var stats PageChatStats
	err := row.Scan(
		&stats.TotalMessages,
		&stats.TodayMessages,
		&stats.UniqueSenders,
	)

	return stats, err
}
