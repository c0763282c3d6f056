package database

import (
	"database/sql"
)

type PgPageChatRepository struct {
	conn *sql.DB
}

func NewPgPageChatRepository(dsn string) (*PgPageChatRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgPageChatRepository{conn: db}, nil
}

func (db *PgPageChatRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgPageChatRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
