package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sanuei/YoutubePlanner-sub000/internal/config"
	"github.com/sanuei/YoutubePlanner-sub000/internal/server"
	"github.com/sanuei/YoutubePlanner-sub000/internal/util"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()
	cfg := config.Load()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Prefix: "server",
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Init(ctx, cfg); err != nil {
		logger.Fatal("Server stopped", "err", err)
	}
	logger.Info("Shutdown complete")
}
