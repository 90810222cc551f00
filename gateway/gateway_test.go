package gateway

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oppositecube/jarvis/agent"
	"github.com/oppositecube/jarvis/command"
	"github.com/oppositecube/jarvis/engine"
	"github.com/oppositecube/jarvis/model"
)

func newTestEngine(t *testing.T, optFns ...func(o *engine.Options)) *engine.Engine {
	t.Helper()

	fixed := time.Date(2025, time.March, 14, 15, 4, 0, 0, time.UTC)

	a := agent.NewAssistant("jarvis", model.NewMockModel("mock", "mock"), func(o *agent.AssistantOptions) {
		o.EnableStreaming = false
	})
	a.MustRegisterCommand(command.NewCurrentTimeCommand(func() time.Time { return fixed }))

	e := engine.New(optFns...)
	e.Register(a)
	return e
}

// dial connects a websocket client to the gateway under test.
func dial(t *testing.T, s *Server, session string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if session != "" {
		url += "?session=" + session
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg Message) Message {
	t.Helper()

	require.NoError(t, conn.WriteJSON(msg))

	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestGateway_UtteranceReply(t *testing.T) {
	s := NewServer(newTestEngine(t))
	conn := dial(t, s, "")

	reply := roundTrip(t, conn, Message{From: "client-1", Kind: KindUtterance, Content: "what time is it"})

	assert.Equal(t, KindReply, reply.Kind)
	assert.Equal(t, "jarvis", reply.From)
	assert.Equal(t, "client-1", reply.To)
	assert.Equal(t, "3:04 PM", reply.Content)
}

func TestGateway_AsleepSession(t *testing.T) {
	e := newTestEngine(t, func(o *engine.Options) {
		o.Config.WakeWord = "jarvis"
		o.Config.AwakeTurns = 1
	})
	s := NewServer(e)
	conn := dial(t, s, "sess-1")

	reply := roundTrip(t, conn, Message{From: "client-1", Kind: KindUtterance, Content: "what time is it"})
	assert.Equal(t, KindAsleep, reply.Kind)

	reply = roundTrip(t, conn, Message{From: "client-1", Kind: KindUtterance, Content: "jarvis what time is it"})
	assert.Equal(t, KindReply, reply.Kind)
	assert.Equal(t, "3:04 PM", reply.Content)
}

func TestGateway_EmptyUtterance(t *testing.T) {
	s := NewServer(newTestEngine(t))
	conn := dial(t, s, "")

	reply := roundTrip(t, conn, Message{From: "client-1", Kind: KindUtterance, Content: "   "})
	assert.Equal(t, KindError, reply.Kind)
	assert.Contains(t, reply.Content, "empty utterance")
}

func TestGateway_IgnoresOtherKinds(t *testing.T) {
	s := NewServer(newTestEngine(t))
	conn := dial(t, s, "")

	// A non-utterance message is skipped; the next utterance still works.
	require.NoError(t, conn.WriteJSON(Message{From: "client-1", Kind: "ping"}))

	reply := roundTrip(t, conn, Message{From: "client-1", Kind: KindUtterance, Content: "what time is it"})
	assert.Equal(t, KindReply, reply.Kind)
	assert.Equal(t, "3:04 PM", reply.Content)
}

func TestGateway_SharedSessionAcrossConnections(t *testing.T) {
	e := newTestEngine(t, func(o *engine.Options) {
		o.Config.WakeWord = "jarvis"
		o.Config.AwakeTurns = 2
	})
	s := NewServer(e)

	first := dial(t, s, "shared")
	reply := roundTrip(t, first, Message{From: "a", Kind: KindUtterance, Content: "jarvis what time is it"})
	require.Equal(t, KindReply, reply.Kind)

	// The pinned session keeps its awake state on a new connection.
	second := dial(t, s, "shared")
	reply = roundTrip(t, second, Message{From: "b", Kind: KindUtterance, Content: "what time is it"})
	assert.Equal(t, KindReply, reply.Kind)
	assert.Equal(t, "3:04 PM", reply.Content)
}
