package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/chessline/internal/archive"
	"github.com/park285/chessline/internal/chat"
	appcfg "github.com/park285/chessline/internal/config"
	"github.com/park285/chessline/internal/obslog"
	"github.com/park285/chessline/internal/server"
	"github.com/park285/chessline/internal/session"
	"github.com/park285/chessline/internal/status"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	registry := session.NewRegistry()

	var archivers archive.Multi
	var store *archive.Store
	var repo *archive.Repository
	if cfg.RedisURL != "" {
		store, err = archive.NewStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
		archivers = append(archivers, store)
	}
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db init error: %v", err)
		}
		archivers = append(archivers, repo)
	}
	if len(archivers) > 0 {
		registry.SetArchiver(archivers)
	}

	acceptor := server.NewAcceptor(registry)
	acceptor.HandshakeTimeout = cfg.HandshakeTimeout
	acceptor.IdleTimeout = cfg.IdleTimeout

	errCh := make(chan error, 4)
	go func() {
		errCh <- acceptor.ListenAndServe(cfg.GameAddr)
	}()

	chatSrv := chat.NewServer()
	go func() {
		errCh <- chatSrv.ListenAndServe(cfg.ChatAddr)
	}()

	if cfg.WSAddr != "" {
		gw := server.NewGateway(acceptor)
		go func() {
			errCh <- gw.ListenAndServe(cfg.WSAddr)
		}()
	}
	if cfg.StatusAddr != "" {
		st := status.NewServer(registry)
		go func() {
			errCh <- st.ListenAndServe(cfg.StatusAddr)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("listener_failed", zap.Error(err))
	}

	if store != nil {
		_ = store.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
}
