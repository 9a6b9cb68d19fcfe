package status

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chessline/internal/board"
	"github.com/park285/chessline/internal/obslog"
	"github.com/park285/chessline/internal/session"
)

// Server is a read-only ops surface over the session registry:
//
//	GET /healthz             liveness probe
//	GET /games               JSON snapshots of live sessions
//	GET /games/<id>/board.png  rendered current position
type Server struct {
	registry *session.Registry
	log      *zap.Logger
}

func NewServer(reg *session.Registry) *Server {
	return &Server{registry: reg, log: obslog.L()}
}

// ListenAndServe serves the status endpoint on addr until the server fails.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("status_listen", zap.String("addr", addr))
	srv := &fasthttp.Server{
		Handler:     s.Handle,
		ReadTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe(addr)
}

func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		return
	}
	path := string(ctx.Path())
	switch {
	case path == "/healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	case path == "/games":
		s.handleGames(ctx)
	case strings.HasPrefix(path, "/games/") && strings.HasSuffix(path, "/board.png"):
		s.handleBoard(ctx, strings.TrimSuffix(strings.TrimPrefix(path, "/games/"), "/board.png"))
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) handleGames(ctx *fasthttp.RequestCtx) {
	sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snaps := s.registry.Snapshots(sctx)
	body, err := json.Marshal(snaps)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return
	}
	sess, ok := s.registry.Lookup(id)
	if !ok {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := sess.Snapshot(sctx)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	size := ctx.QueryArgs().GetUintOrZero("size")
	img, err := board.RenderPNG(snap.FEN, size)
	if err != nil {
		s.log.Error("status_render_error", zap.Int64("session_id", id), zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("image/png")
	ctx.SetBody(img)
}
