package server

import (
	"encoding/json"
	"testing"

	"github.com/pagehub/go-pagechat/internal/database"
	"github.com/pagehub/go-pagechat/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewSession(t *testing.T) {
	gw := newTestGateway(t, &database.MockPageChatRepository{})

	identity := authedIdentity("alice-id", "alice")
	s := NewSession(identity, nil, gw, testutil.TestLogger(t))

	assert.NotEmpty(t, s.Id(), "expected a generated session id")
	assert.Equal(t, identity, s.identity, "expected the resolved identity to be kept")
	assert.Equal(t, "alice", s.displayName, "expected the display name to default to the username")

	other := NewSession(identity, nil, gw, testutil.TestLogger(t))
	assert.NotEqual(t, s.Id(), other.Id(), "expected session ids to be unique")
}

func Test_dispatch(t *testing.T) {
	db := &database.MockPageChatRepository{}
	defer db.AssertExpectations(t)
	db.On("GetJoinablePage", "page-1").Return(database.Page{Id: "page-1"}, nil).Once()

	gw := newTestGateway(t, db)
	s := newTestSession(t, gw, anonIdentity(1))

	raw, err := json.Marshal(JoinPage{PageId: "page-1"})
	assert.NoError(t, err, "expected payload to serialize")

	s.dispatch(&ClientEvent{Event: EventJoinPage, Data: raw})

	ev := nextEvent(t, s)
	assert.Equal(t, EventJoinedPage, ev.Event, "expected join_page to reach the gateway")
}

func Test_dispatch_UnknownEvent(t *testing.T) {
	gw := newTestGateway(t, &database.MockPageChatRepository{})
	s := newTestSession(t, gw, anonIdentity(1))

	s.dispatch(&ClientEvent{Event: "shrug"})

	ev := nextEvent(t, s)
	assert.Equal(t, EventError, ev.Event, "expected an error event")
	assert.Equal(t, "invalid message format", ev.Data.(ErrorPayload).Message, "expected the invalid-format message")
}

func Test_dispatch_MalformedPayload(t *testing.T) {
	gw := newTestGateway(t, &database.MockPageChatRepository{})
	s := newTestSession(t, gw, anonIdentity(1))

	s.dispatch(&ClientEvent{Event: EventSendMessage, Data: json.RawMessage(`"not an object"`)})

	ev := nextEvent(t, s)
	assert.Equal(t, EventError, ev.Event, "expected an error event")
	assert.Equal(t, "invalid message format", ev.Data.(ErrorPayload).Message, "expected the invalid-format message")
}

func Test_queueEvent(t *testing.T) {
	gw := newTestGateway(t, &database.MockPageChatRepository{})
	s := NewSession(anonIdentity(1), nil, gw, testutil.TestLogger(t))

	assert.True(t, s.queueEvent(&ServerEvent{Event: EventSystemMessage}), "expected the event to be queued")
	assert.Len(t, s.send, 1, "expected one buffered event")
}

func Test_queueEvent_FullBuffer(t *testing.T) {
	gw := newTestGateway(t, &database.MockPageChatRepository{})
	s := NewSession(anonIdentity(1), nil, gw, testutil.TestLogger(t))

	for i := 0; i < cap(s.send); i++ {
		assert.True(t, s.queueEvent(&ServerEvent{Event: EventSystemMessage}), "expected the event to be queued")
	}

	// a slow consumer loses events rather than blocking the gateway
	assert.False(t, s.queueEvent(&ServerEvent{Event: EventSystemMessage}), "expected the event to be dropped")
	assert.Len(t, s.send, cap(s.send), "expected the buffer to stay at capacity")
}

func TestSessionClose(t *testing.T) {
	gw := newTestGateway(t, &database.MockPageChatRepository{})
	s := NewSession(anonIdentity(1), nil, gw, testutil.TestLogger(t))

	s.Close()
	select {
	case <-s.stop:
	default:
		t.Fatal("expected the stop channel to be closed")
	}

	// closing twice must not panic
	s.Close()
}
