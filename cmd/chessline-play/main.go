package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/park285/chessline/internal/board"
	"github.com/park285/chessline/internal/wire"
)

// Interactive player client: queues for a game, then reads UCI moves from
// stdin while printing every state transition the server broadcasts.
func main() {
	port := flag.Int("port", 5555, "game service port")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-port N] <server_ip>\n", os.Args[0])
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

	if err := c.Send(wire.NewPlayerHelloFrame()); err != nil {
		fmt.Fprintf(os.Stderr, "send hello: %v\n", err)
		os.Exit(1)
	}

	done := make(chan int, 1)
	go func() { done <- serverLoop(c) }()
	go stdinLoop(c)
	os.Exit(<-done)
}

// serverLoop prints server frames until the stream ends. Returns the process
// exit code.
func serverLoop(c *wire.Conn) int {
	for {
		msg, err := c.RecvServer()
		if err != nil {
			fmt.Println("connection closed")
			return 0
		}
		switch m := msg.(type) {
		case wire.Wait:
			fmt.Println("waiting for an opponent...")
		case wire.Init:
			fmt.Printf("game started, you play %s\n", m.Color)
			if m.Color == "white" {
				fmt.Println("your move (e.g. e2e4):")
			}
		case wire.Update:
			printUpdate(m)
		case wire.Invalid:
			fmt.Println("invalid move, try again:")
		case wire.NotYourTurn:
			fmt.Println("not your turn")
		case wire.System:
			fmt.Printf("* %s\n", m.Content)
		case wire.ErrorReply:
			fmt.Fprintf(os.Stderr, "server error: %s\n", m.Message)
			return 1
		}
	}
}

func stdinLoop(c *wire.Conn) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		mv := strings.TrimSpace(sc.Text())
		if mv == "" {
			continue
		}
		if err := c.Send(wire.NewMoveFrame(mv)); err != nil {
			return
		}
	}
	_ = c.Close()
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
		if m.Status == "check" {
			fmt.Println("check!")
		}
		fmt.Printf("%s to move\n", *m.Turn)
	}
}
