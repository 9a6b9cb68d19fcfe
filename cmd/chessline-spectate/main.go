package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/park285/chessline/internal/board"
	"github.com/park285/chessline/internal/wire"
)

// Read-only spectator client: attaches to a running game by id and prints
// the current position plus every subsequent transition.
func main() {
	port := flag.Int("port", 5555, "game service port")
	flag.Parse()
	if flag.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [-port N] <server_ip> <game_id>\n", os.Args[0])
		os.Exit(2)
	}
	gameID, err := strconv.ParseInt(flag.Arg(1), 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad game id %q\n", flag.Arg(1))
		os.Exit(2)
	}

	addr := net.JoinHostPort(flag.Arg(0), fmt.Sprintf("%d", *port))
	raw, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", addr, err)
		os.Exit(1)
	}
	c := wire.NewConn(raw)
	defer c.Close()

	if err := c.Send(wire.NewSpectatorHelloFrame(gameID)); err != nil {
		fmt.Fprintf(os.Stderr, "send hello: %v\n", err)
		os.Exit(1)
	}

	for {
		msg, err := c.RecvServer()
		if err != nil {
			fmt.Println("connection closed")
			return
		}
		switch m := msg.(type) {
		case wire.Update:
			printUpdate(m)
		case wire.System:
			fmt.Printf("* %s\n", m.Content)
		case wire.ErrorReply:
			fmt.Fprintf(os.Stderr, "server error: %s\n", m.Message)
			os.Exit(1)
		}
	}
}

func printUpdate(m wire.Update) {
	if m.Move != "" {
		fmt.Printf("move: %s\n", m.Move)
	}
	if diagram, err := board.ASCII(m.FEN); err == nil {
		fmt.Print(diagram)
	}
	switch {
	case m.Winner != nil:
		fmt.Printf("%s: %s wins\n", m.Status, *m.Winner)
	case m.Status != "normal" && m.Status != "check":
		fmt.Printf("game over: %s\n", m.Status)
	case m.Turn != nil:
		fmt.Printf("%s to move\n", *m.Turn)
	}
}
