package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/park285/chessline/internal/wire"
)

// Chat client: joins the room of one game and relays stdin lines.
func main() {
	port := flag.Int("port", 5556, "chat service port")
	name := flag.String("as", "spectator", "display name (white, black or spectator)")
	flag.Parse()
	if flag.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [-port N] [-as NAME] <server_ip> <game_id>\n", os.Args[0])
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

	if err := c.Send(wire.NewChatJoinFrame(gameID, *name)); err != nil {
		fmt.Fprintf(os.Stderr, "send join: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("joined chat for game %d as %s\n", gameID, *name)

	go func() {
		for {
			raw, err := c.Recv()
			if err != nil {
				fmt.Println("connection closed")
				os.Exit(0)
			}
			var ev wire.ChatEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				continue
			}
			switch ev.Type {
			case "chat":
				fmt.Printf("[%s] %s\n", ev.Color, ev.Content)
			case "system":
				fmt.Printf("* %s\n", ev.Content)
			}
		}
	}()

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := c.Send(wire.NewChatPostFrame(line)); err != nil {
			return
		}
	}
}
