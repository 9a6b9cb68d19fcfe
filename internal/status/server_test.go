package status

import (
	"encoding/json"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/park285/chessline/internal/session"
)

func doRequest(t *testing.T, s *Server, method, uri string) *fasthttp.RequestCtx {
	t.Helper()
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	s.Handle(ctx)
	return ctx
}

func TestHealthz(t *testing.T) {
	s := NewServer(session.NewRegistry())
	ctx := doRequest(t, s, "GET", "/healthz")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status %d", ctx.Response.StatusCode())
	}
	if string(ctx.Response.Body()) != "ok" {
		t.Fatalf("body %q", ctx.Response.Body())
	}
}

func TestGamesEmpty(t *testing.T) {
	s := NewServer(session.NewRegistry())
	ctx := doRequest(t, s, "GET", "/games")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status %d", ctx.Response.StatusCode())
	}
	var snaps []session.Snapshot
	if err := json.Unmarshal(ctx.Response.Body(), &snaps); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(snaps) != 0 {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
}

func TestBoardUnknownGame(t *testing.T) {
	s := NewServer(session.NewRegistry())
	if ctx := doRequest(t, s, "GET", "/games/99/board.png"); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("status %d", ctx.Response.StatusCode())
	}
	if ctx := doRequest(t, s, "GET", "/games/abc/board.png"); ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("status %d", ctx.Response.StatusCode())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := NewServer(session.NewRegistry())
	if ctx := doRequest(t, s, "POST", "/healthz"); ctx.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("status %d", ctx.Response.StatusCode())
	}
}

func TestUnknownPath(t *testing.T) {
	s := NewServer(session.NewRegistry())
	if ctx := doRequest(t, s, "GET", "/nope"); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("status %d", ctx.Response.StatusCode())
	}
}
