package ipc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, handler Handler) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "jarvisd.sock")
	srv := NewServer(path)
	require.NoError(t, srv.Start(handler))
	t.Cleanup(func() { srv.Close() })

	return path
}

func TestSendReceivesResponse(t *testing.T) {
	path := startServer(t, func(msg ControlMessage) Response {
		if msg.Cmd == CmdSay {
			return Response{OK: true, Result: "heard: " + msg.Arg}
		}
		return Response{Error: "unknown command"}
	})

	resp, err := Send(path, ControlMessage{Cmd: CmdSay, Arg: "hello"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "heard: hello", resp.Result)

	resp, err = Send(path, ControlMessage{Cmd: "bogus"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, "unknown command", resp.Error)
}

func TestConcurrentClients(t *testing.T) {
	path := startServer(t, func(msg ControlMessage) Response {
		return Response{OK: true, Result: msg.Arg}
	})

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			resp, err := Send(path, ControlMessage{Cmd: CmdStatus, Arg: "ping"})
			assert.NoError(t, err)
			assert.Equal(t, "ping", resp.Result)
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}
}

func TestStaleSocketRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jarvisd.sock")

	first := NewServer(path)
	require.NoError(t, first.Start(func(ControlMessage) Response { return Response{OK: true} }))
	require.NoError(t, first.Close())

	// Restart over the leftover socket file
	second := NewServer(path)
	require.NoError(t, second.Start(func(ControlMessage) Response { return Response{OK: true} }))
	defer second.Close()

	resp, err := Send(path, ControlMessage{Cmd: CmdStatus})
	require.NoError(t, err)
	assert.True(t, resp.OK)
}

func TestSendNoServer(t *testing.T) {
	_, err := Send(filepath.Join(t.TempDir(), "missing.sock"), ControlMessage{Cmd: CmdStatus})
	assert.Error(t, err)
}
