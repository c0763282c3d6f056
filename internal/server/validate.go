package server

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/pagehub/go-pagechat/internal/types"
)

// MaxMessageLen is the maximum chat message length in characters,
// counted after trimming.
const MaxMessageLen = 1000

var (
	ErrMessageEmpty    = errors.New("message is empty")
	ErrMessageTooLarge = errors.New("message exceeds maximum length")
	ErrBadMessageType  = errors.New("unsupported message type")
)

// ValidateMessage normalizes a chat message before persistence. It
// returns the trimmed content and the effective message type. Every
// write path goes through this, regardless of any validation done at
// the edges.
func ValidateMessage(content, messageType string) (string, string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", "", ErrMessageEmpty
	}

	if utf8.RuneCountInString(trimmed) > MaxMessageLen {
		return "", "", ErrMessageTooLarge
	}

	if messageType == "" {
		messageType = types.MessageTypeText
	}
	if !types.ValidMessageType(messageType) {
		return "", "", ErrBadMessageType
	}

	return trimmed, messageType, nil
}
