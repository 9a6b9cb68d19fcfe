package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/chessline/internal/obslog"
)

// Gateway exposes the game protocol to websocket clients. Each accepted
// socket is wrapped as a net.Conn carrying the same length-delimited frames
// and pushed through the acceptor's classification path, so browser players
// and spectators behave identically to TCP ones.
type Gateway struct {
	acceptor *Acceptor
	log      *zap.Logger
}

func NewGateway(a *Acceptor) *Gateway {
	return &Gateway{acceptor: a, log: obslog.L()}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		g.log.Debug("ws_accept_error", zap.Error(err))
		return
	}
	ws.SetReadLimit(2 * 64 * 1024)
	// The socket is hijacked; it outlives this handler. NetConn therefore
	// binds to the background context, not the request's.
	nc := websocket.NetConn(context.Background(), ws, websocket.MessageBinary)
	g.acceptor.Handle(nc)
}

// ListenAndServe serves the gateway on addr until the server fails.
func (g *Gateway) ListenAndServe(addr string) error {
	g.log.Info("ws_listen", zap.String("addr", addr))
	srv := &http.Server{Addr: addr, Handler: g}
	return srv.ListenAndServe()
}
