package wire

import (
	"encoding/json"
	"fmt"
)

// Chat side-channel frames. The chat room server shares the transport
// family with the game service but runs an independent protocol.

type ChatClientMessage interface{ chatClientMessage() }

// ChatJoin binds a connection to the chat room of one game.
type ChatJoin struct {
	GameID int64  `json:"game_id"`
	Color  string `json:"color"`
}

// ChatPost is a text line for the sender's room.
type ChatPost struct {
	Content string `json:"content"`
}

func (ChatJoin) chatClientMessage() {}
func (ChatPost) chatClientMessage() {}

type chatEnvelope struct {
	Type    string `json:"type"`
	GameID  int64  `json:"game_id"`
	Color   string `json:"color"`
	Content string `json:"content"`
}

func DecodeChatClient(raw []byte) (ChatClientMessage, error) {
	var env chatEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	switch env.Type {
	case "join":
		return ChatJoin{GameID: env.GameID, Color: env.Color}, nil
	case "chat":
		return ChatPost{Content: env.Content}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

// Client-side encodings of the chat frames.

type ChatJoinFrame struct {
	Type   string `json:"type"`
	GameID int64  `json:"game_id"`
	Color  string `json:"color"`
}

type ChatPostFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func NewChatJoinFrame(gameID int64, color string) ChatJoinFrame {
	return ChatJoinFrame{Type: "join", GameID: gameID, Color: color}
}
func NewChatPostFrame(content string) ChatPostFrame {
	return ChatPostFrame{Type: "chat", Content: content}
}

// ChatEvent is a relayed chat line, stamped with unix seconds.
type ChatEvent struct {
	Type      string  `json:"type"`
	Color     string  `json:"color"`
	Content   string  `json:"content"`
	Timestamp float64 `json:"timestamp"`
}

func NewChatEvent(color, content string, ts float64) ChatEvent {
	return ChatEvent{Type: "chat", Color: color, Content: content, Timestamp: ts}
}
