package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pairchat/pairchat/internal/server"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	srv := server.NewServer(cfg, log)
	srv.StartHub()

	httpServer := server.CreateServer(cfg.Port, srv.Routes())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()
	log.Info("server listening", zap.String("addr", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	case sig := <-quit:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
	}
	if err := srv.Hub().Shutdown(cfg.ShutdownTimeout); err != nil {
		log.Warn("hub shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
}
