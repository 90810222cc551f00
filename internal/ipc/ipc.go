// Package ipc provides a local control channel over a unix socket.
//
// Each connection carries one JSON-encoded ControlMessage and receives one
// Response. The daemon serves the socket; jarvisctl is the client.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
)

// Control commands understood by the daemon.
const (
	CmdSay      = "say"
	CmdStatus   = "status"
	CmdShutdown = "shutdown"
)

// ControlMessage is a single control request.
type ControlMessage struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

// Response is the daemon's answer to a control request.
type Response struct {
	OK     bool   `json:"ok"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Handler processes one control message and produces the response.
type Handler func(msg ControlMessage) Response

// Server listens on a unix socket and hands each message to the handler.
type Server struct {
	path string
	ln   net.Listener

	mu     sync.Mutex
	closed bool
}

// NewServer creates a control server for the given socket path.
func NewServer(path string) *Server {
	return &Server{path: path}
}

// Start binds the socket and serves connections in the background. A stale
// socket file from a previous run is removed first.
func (s *Server) Start(handler Handler) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket %s: %w", s.path, err)
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.path, err)
	}
	s.ln = ln

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				s.mu.Lock()
				closed := s.closed
				s.mu.Unlock()
				if closed || errors.Is(err, net.ErrClosed) {
					return
				}
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return nil
}

// Close stops the listener and removes the socket file.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		json.NewEncoder(conn).Encode(Response{Error: "malformed control message"})
		return
	}

	json.NewEncoder(conn).Encode(handler(msg))
}

// Send delivers one control message to the socket and returns the response.
func Send(path string, msg ControlMessage) (Response, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return Response{}, fmt.Errorf("connect to %s: %w", path, err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Response{}, fmt.Errorf("send control message: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read control response: %w", err)
	}
	return resp, nil
}
