package chat

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/park285/chessline/internal/wire"
)

// chatClient drives one end of a pipe as a chat participant, draining inbound
// frames into a channel so server writes never block.
type chatClient struct {
	conn *wire.Conn
	in   chan []byte
}

func dialChat(t *testing.T, s *Server) *chatClient {
	t.Helper()
	client, server := net.Pipe()
	go s.Handle(server)
	c := &chatClient{conn: wire.NewConn(client), in: make(chan []byte, 16)}
	go func() {
		defer close(c.in)
		for {
			raw, err := c.conn.Recv()
			if err != nil {
				return
			}
			c.in <- raw
		}
	}()
	t.Cleanup(func() { _ = c.conn.Close() })
	return c
}

func (c *chatClient) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case raw, ok := <-c.in:
		if !ok {
			t.Fatalf("stream closed")
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame within deadline")
		return nil
	}
}

func (c *chatClient) expectSilence(t *testing.T) {
	t.Helper()
	select {
	case raw, ok := <-c.in:
		if ok {
			t.Fatalf("unexpected frame: %s", raw)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChatRelayExcludesSender(t *testing.T) {
	s := NewServer()

	white := dialChat(t, s)
	if err := white.conn.Send(wire.NewChatJoinFrame(1, "white")); err != nil {
		t.Fatalf("join white: %v", err)
	}

	black := dialChat(t, s)
	if err := black.conn.Send(wire.NewChatJoinFrame(1, "black")); err != nil {
		t.Fatalf("join black: %v", err)
	}

	// white sees black's join notice
	m := white.next(t)
	if m["type"] != "system" || m["content"] != "black joined the chat" {
		t.Fatalf("unexpected notice: %v", m)
	}

	if err := white.conn.Send(wire.NewChatPostFrame("good luck")); err != nil {
		t.Fatalf("post: %v", err)
	}
	m = black.next(t)
	if m["type"] != "chat" || m["color"] != "white" || m["content"] != "good luck" {
		t.Fatalf("unexpected relay: %v", m)
	}
	if _, ok := m["timestamp"].(float64); !ok {
		t.Fatalf("missing timestamp: %v", m)
	}
	// the sender must not hear itself
	white.expectSilence(t)
}

func TestChatRoomsAreIsolated(t *testing.T) {
	s := NewServer()

	a := dialChat(t, s)
	if err := a.conn.Send(wire.NewChatJoinFrame(1, "white")); err != nil {
		t.Fatalf("join: %v", err)
	}
	b := dialChat(t, s)
	if err := b.conn.Send(wire.NewChatJoinFrame(2, "white")); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := a.conn.Send(wire.NewChatPostFrame("hello room 1")); err != nil {
		t.Fatalf("post: %v", err)
	}
	b.expectSilence(t)
}

func TestChatLeaveNotice(t *testing.T) {
	s := NewServer()

	a := dialChat(t, s)
	if err := a.conn.Send(wire.NewChatJoinFrame(1, "white")); err != nil {
		t.Fatalf("join: %v", err)
	}
	b := dialChat(t, s)
	if err := b.conn.Send(wire.NewChatJoinFrame(1, "spectator")); err != nil {
		t.Fatalf("join: %v", err)
	}
	a.next(t) // join notice

	_ = b.conn.Close()
	m := a.next(t)
	if m["type"] != "system" || m["content"] != "spectator left the chat" {
		t.Fatalf("unexpected notice: %v", m)
	}
}

func TestChatRejectsBadJoin(t *testing.T) {
	s := NewServer()

	c := dialChat(t, s)
	if err := c.conn.Send(wire.NewChatPostFrame("no join")); err != nil {
		t.Fatalf("send: %v", err)
	}
	// server closes without admitting the connection
	select {
	case _, ok := <-c.in:
		if ok {
			t.Fatalf("expected close, got frame")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("connection not closed")
	}
}
