package wire

import (
	"encoding/json"
	"fmt"
)

// ClientMessage is the closed set of frames a game client may send.
type ClientMessage interface{ clientMessage() }

// PlayerHello is the classification frame for a player connection. Any
// well-formed first frame that does not declare a spectator counts.
type PlayerHello struct{}

// SpectatorHello requests read-only attachment to an existing session.
type SpectatorHello struct {
	GameID int64 `json:"game_id"`
}

// Move submits a UCI move for the sender's session.
type Move struct {
	Move string `json:"move"`
}

func (PlayerHello) clientMessage()    {}
func (SpectatorHello) clientMessage() {}
func (Move) clientMessage()           {}

type clientEnvelope struct {
	Type   string `json:"type"`
	Move   string `json:"move"`
	GameID int64  `json:"game_id"`
}

// Classify decodes the first frame of a connection. A spectator declaration
// routes to spectator attach; any other well-formed object is a player.
func Classify(raw []byte) (ClientMessage, error) {
	var env clientEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed classification frame: %w", err)
	}
	if env.Type == "spectator" {
		return SpectatorHello{GameID: env.GameID}, nil
	}
	return PlayerHello{}, nil
}

// DecodeClient decodes an in-session frame strictly: only known types are
// accepted, anything else is a protocol error for the sending connection.
func DecodeClient(raw []byte) (ClientMessage, error) {
	var env clientEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	switch env.Type {
	case "move":
		return Move{Move: env.Move}, nil
	case "spectator":
		return SpectatorHello{GameID: env.GameID}, nil
	case "player":
		return PlayerHello{}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

// ServerMessage is the closed set of frames the server may send to a game
// client. Concrete types carry their literal wire tag.
type ServerMessage interface{ serverMessage() }

type Init struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

type Wait struct {
	Type string `json:"type"`
}

type Update struct {
	Type   string  `json:"type"`
	Move   string  `json:"move"`
	FEN    string  `json:"fen"`
	Turn   *string `json:"turn"`
	Status string  `json:"status"`
	Winner *string `json:"winner"`
}

type Invalid struct {
	Type string `json:"type"`
}

type NotYourTurn struct {
	Type string `json:"type"`
}

type ErrorReply struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// System carries out-of-band session notices, e.g. a player leaving.
type System struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (Init) serverMessage()        {}
func (Wait) serverMessage()        {}
func (Update) serverMessage()      {}
func (Invalid) serverMessage()     {}
func (NotYourTurn) serverMessage() {}
func (ErrorReply) serverMessage()  {}
func (System) serverMessage()      {}

func NewInit(color string) Init { return Init{Type: "init", Color: color} }
func NewWait() Wait             { return Wait{Type: "wait"} }
func NewInvalid() Invalid       { return Invalid{Type: "invalid"} }
func NewNotYourTurn() NotYourTurn {
	return NotYourTurn{Type: "not_your_turn"}
}
func NewError(message string) ErrorReply {
	return ErrorReply{Type: "error", Message: message}
}
func NewSystem(content string) System {
	return System{Type: "system", Content: content}
}

// NewUpdate builds a state-transition broadcast. turn and winner are nil when
// the session is terminal / no winner exists.
func NewUpdate(move, fen string, turn *string, status string, winner *string) Update {
	return Update{Type: "update", Move: move, FEN: fen, Turn: turn, Status: status, Winner: winner}
}

// Client-side frame encodings. The server decodes via envelope, so these
// exist for the bundled CLI clients.

type HelloFrame struct {
	Type   string `json:"type"`
	GameID int64  `json:"game_id,omitempty"`
}

type MoveFrame struct {
	Type string `json:"type"`
	Move string `json:"move"`
}

func NewPlayerHelloFrame() HelloFrame { return HelloFrame{Type: "player"} }
func NewSpectatorHelloFrame(gameID int64) HelloFrame {
	return HelloFrame{Type: "spectator", GameID: gameID}
}
func NewMoveFrame(uci string) MoveFrame { return MoveFrame{Type: "move", Move: uci} }

type serverEnvelope struct {
	Type    string  `json:"type"`
	Color   string  `json:"color"`
	Move    string  `json:"move"`
	FEN     string  `json:"fen"`
	Turn    *string `json:"turn"`
	Status  string  `json:"status"`
	Winner  *string `json:"winner"`
	Message string  `json:"message"`
	Content string  `json:"content"`
}

// DecodeServer decodes a server frame on the client side.
func DecodeServer(raw []byte) (ServerMessage, error) {
	var env serverEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	switch env.Type {
	case "init":
		return Init{Type: env.Type, Color: env.Color}, nil
	case "wait":
		return Wait{Type: env.Type}, nil
	case "update":
		return Update{Type: env.Type, Move: env.Move, FEN: env.FEN, Turn: env.Turn, Status: env.Status, Winner: env.Winner}, nil
	case "invalid":
		return Invalid{Type: env.Type}, nil
	case "not_your_turn":
		return NotYourTurn{Type: env.Type}, nil
	case "error":
		return ErrorReply{Type: env.Type, Message: env.Message}, nil
	case "system":
		return System{Type: env.Type, Content: env.Content}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}
