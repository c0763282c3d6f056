package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pagehub/go-pagechat/internal/database"
	"github.com/pagehub/go-pagechat/internal/server"
	"github.com/pagehub/go-pagechat/internal/types"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 100
)

func (s *PageChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("failed to encode response: %v", err)
	}
}

func (s *PageChatApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check failed:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func messageResponse(msg database.Message) types.ChatMessage {
	m := types.ChatMessage{
		Id:          msg.Id,
		PageId:      msg.PageId,
		Username:    msg.Username,
		Message:     msg.Content,
		MessageType: msg.MessageType,
		CreatedAt:   msg.CreatedAt,
	}
	if msg.UserId.Valid {
		m.UserId = msg.UserId.String
	}

	return m
}

func (s *PageChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	pageId := r.PathValue("pageId")

	if _, err := s.db.GetJoinablePage(r.Context(), pageId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	filter := database.MessageFilter{Limit: defaultMessageLimit}

	limitStr := r.URL.Query().Get("limit")
	if limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		filter.Limit = min(limit, maxMessageLimit)
	}

	beforeStr := r.URL.Query().Get("before")
	if beforeStr != "" {
		before, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		filter.Before = before
	}

	afterStr := r.URL.Query().Get("after")
	if afterStr != "" {
		after, err := time.Parse(time.RFC3339, afterStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		filter.After = after
	}

	messages, err := s.db.ListMessages(r.Context(), pageId, filter)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// rows come back newest first; reverse so the latest message
	// lands at the bottom of the page
	chatMessages := make([]types.ChatMessage, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		chatMessages = append(chatMessages, messageResponse(messages[i]))
	}

	s.writeJson(w, http.StatusOK, chatMessages)
}

type createMessageRequest struct {
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
}

func (s *PageChatApp) createMessage(w http.ResponseWriter, r *http.Request) {
	pageId := r.PathValue("pageId")

	identity, ok := IdentityFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetJoinablePage(r.Context(), pageId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	content, msgType, err := server.ValidateMessage(req.Message, req.MessageType)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateMessageParams{
		PageId:      pageId,
		Username:    identity.Username,
		Content:     content,
		MessageType: msgType,
	}
	if !identity.Anonymous {
		params.UserId = identity.Id
	}

	msg, err := s.db.CreateMessage(r.Context(), params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, messageResponse(msg))
}

func (s *PageChatApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	identity, ok := IdentityFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.db.GetMessageById(r.Context(), id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// only the sender or an admin may delete a message
	isSender := msg.UserId.Valid && msg.UserId.String == identity.Id
	if identity.Role != types.RoleAdmin && !isSender {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteMessage(r.Context(), id); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type chatStatsResponse struct {
	PageTitle     string `json:"page_title"`
	TotalMessages int    `json:"total_messages"`
	TodayMessages int    `json:"today_messages"`
	UniqueSenders int    `json:"unique_senders"`
	OnlineCount   int    `json:"online_count"`
}

func (s *PageChatApp) getChatStats(w http.ResponseWriter, r *http.Request) {
	pageId := r.PathValue("pageId")

	page, err := s.db.GetActivePage(r.Context(), pageId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	stats, err := s.db.GetPageStats(r.Context(), pageId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, chatStatsResponse{
		PageTitle:     page.Title,
		TotalMessages: stats.TotalMessages,
		TodayMessages: stats.TodayMessages,
		UniqueSenders: stats.UniqueSenders,
		OnlineCount:   s.gw.OnlineCount(pageId),
	})
}

type clearMessagesResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

func (s *PageChatApp) clearMessages(w http.ResponseWriter, r *http.Request) {
	pageId := r.PathValue("pageId")

	if _, err := s.db.GetActivePage(r.Context(), pageId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	count, err := s.db.ClearMessages(r.Context(), pageId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.gw.SendSystemMessage(pageId, "chat history was cleared by an administrator")

	s.writeJson(w, http.StatusOK, clearMessagesResponse{DeletedCount: count})
}

func (s *PageChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}

	// a bad credential refuses the connection; only a missing one
	// falls back to an anonymous identity
	identity, err := s.verifier.Verify(token)
	if err != nil {
		s.log.Printf("ws handshake rejected: %v", err)
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	sess := server.NewSession(identity, conn, s.gw, s.log)
	s.gw.Register(sess)

	go sess.Write()
	go sess.Read()
}
