// Package gateway exposes the dispatcher over a websocket bus.
//
// Clients connect to /ws and exchange JSON bus messages. An "utterance"
// message is dispatched to the configured agent; the final reply comes back
// as a "reply" message addressed to the sender. Utterances swallowed by the
// wake-word gate produce an "asleep" message so clients can show standby
// state.
package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/engine"
	"github.com/oppositecube/jarvis/logging"
)

// Message kinds exchanged on the bus.
const (
	KindUtterance = "utterance"
	KindReply     = "reply"
	KindAsleep    = "asleep"
	KindError     = "error"
)

// Message is the wire format of the websocket bus.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// Options configures the gateway server.
type Options struct {
	// AgentName is the agent every utterance is dispatched to.
	AgentName string

	// Logger receives connection and dispatch logs.
	Logger logging.Logger

	// CheckOrigin overrides the websocket origin check. Defaults to
	// accepting all origins, which suits a localhost daemon.
	CheckOrigin func(r *http.Request) bool
}

// Server accepts websocket clients and routes their utterances through a
// dispatcher.
type Server struct {
	dispatcher core.Dispatcher
	agentName  string
	logger     logging.Logger
	upgrader   websocket.Upgrader
	httpSrv    *http.Server
}

// NewServer creates a gateway in front of the given dispatcher.
func NewServer(dispatcher core.Dispatcher, optFns ...func(o *Options)) *Server {
	opts := Options{
		AgentName: "jarvis",
		Logger:    logging.NoOpLogger{},
		CheckOrigin: func(_ *http.Request) bool {
			return true
		},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Server{
		dispatcher: dispatcher,
		agentName:  opts.AgentName,
		logger:     opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
	}
}

// Handler returns the HTTP handler serving the websocket endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start binds addr and serves connections in the background. The listener
// is bound synchronously so address errors surface here.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.httpSrv = &http.Server{Handler: s.Handler()}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway.serve_failed", "error", err)
		}
	}()

	s.logger.Info("gateway.listening", "addr", ln.Addr().String())
	return nil
}

// Shutdown stops accepting connections and waits for handlers to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("gateway.upgrade_failed", "error", err)
		return
	}
	defer conn.Close()

	// Each connection gets its own session unless the client pins one.
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.logger.Info("gateway.client.connected", "session_id", sessionID, "remote", conn.RemoteAddr().String())
	defer s.logger.Info("gateway.client.disconnected", "session_id", sessionID)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("gateway.read_failed", "session_id", sessionID, "error", err)
			}
			return
		}

		if msg.Kind != KindUtterance {
			s.logger.Debug("gateway.message.ignored", "kind", msg.Kind)
			continue
		}

		reply := s.dispatch(r.Context(), sessionID, msg)
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Warn("gateway.write_failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

// dispatch runs one utterance to completion and shapes the response message.
func (s *Server) dispatch(ctx context.Context, sessionID string, msg Message) Message {
	out := Message{From: s.agentName, To: msg.From}

	utterance := strings.TrimSpace(msg.Content)
	if utterance == "" {
		out.Kind = KindError
		out.Content = "empty utterance"
		return out
	}

	dispatchID, events, err := s.dispatcher.DispatchSync(ctx, sessionID, s.agentName, core.NewUserText(utterance))
	if err != nil {
		if errors.Is(err, engine.ErrNotAwake) {
			out.Kind = KindAsleep
			return out
		}
		s.logger.Error("gateway.dispatch_failed", "session_id", sessionID, "error", err)
		out.Kind = KindError
		out.Content = err.Error()
		return out
	}

	s.logger.Debug("gateway.dispatch.completed", "session_id", sessionID, "dispatch_id", dispatchID, "events", len(events))

	out.Kind = KindReply
	out.Content = finalReply(events)
	return out
}

// finalReply extracts the last complete assistant reply from a dispatch.
func finalReply(events []core.Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Content != nil && ev.Content.Role == "assistant" && ev.IsFinalReply() {
			return ev.Content.Text()
		}
	}
	return ""
}
