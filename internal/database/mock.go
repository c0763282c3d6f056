package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockPageChatRepository struct {
	mock.Mock
}

func (m *MockPageChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPageChatRepository) GetJoinablePage(ctx context.Context, pageId string) (Page, error) {
	args := m.Called(pageId)
	return args.Get(0).(Page), args.Error(1)
}

func (m *MockPageChatRepository) GetActivePage(ctx context.Context, pageId string) (Page, error) {
	args := m.Called(pageId)
	return args.Get(0).(Page), args.Error(1)
}

func (m *MockPageChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockPageChatRepository) GetMessageById(ctx context.Context, id string) (Message, error) {
	args := m.Called(id)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockPageChatRepository) ListMessages(ctx context.Context, pageId string, filter MessageFilter) ([]Message, error) {
	args := m.Called(pageId, filter)
	if messages, ok := args.Get(0).([]Message); ok {
		return messages, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPageChatRepository) DeleteMessage(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockPageChatRepository) ClearMessages(ctx context.Context, pageId string) (int64, error) {
	args := m.Called(pageId)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPageChatRepository) GetPageStats(ctx context.Context, pageId string) (PageChatStats, error) {
	args := m.Called(pageId)
	return args.Get(0).(PageChatStats), args.Error(1)
}
