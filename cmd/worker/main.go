// Command worker archives scripts published to the hand-off queue in
// object storage.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sanuei/YoutubePlanner-sub000/internal/config"
	"github.com/sanuei/YoutubePlanner-sub000/internal/handoff"
	"github.com/sanuei/YoutubePlanner-sub000/internal/queue"
	"github.com/sanuei/YoutubePlanner-sub000/internal/storage"
	"github.com/sanuei/YoutubePlanner-sub000/internal/util"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger/console"

	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	if !cfg.RabbitMQ.Enabled() || !cfg.S3.Enabled() {
		logger.Fatal("Worker needs RABBITMQ_HOST and AWS_BUCKET")
	}

	client, err := storage.NewS3Client(ctx, cfg.S3)
	if err != nil {
		logger.Fatal("Could not create S3 client", "err", err)
	}
	archive := handoff.NewArchive(storage.NewBucket(client, cfg.S3.Bucket), cfg.S3Prefix)

	conn, err := util.RetryWithContext(ctx, 5, time.Second, func(context.Context) (*amqp.Connection, error) {
		return queue.Dial(cfg.RabbitMQ)
	})
	if err != nil {
		logger.Fatal("Could not connect to rabbitmq", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, cfg.HandoffQueue); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	// prefetch=1: one script at a time
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := ch.Consume(cfg.HandoffQueue, "script_archiver", false, false, false, false, nil)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", cfg.HandoffQueue, "err", err)
	}

	logger.Info("Listening for scripts", "queue", cfg.HandoffQueue, "bucket", cfg.S3.Bucket)
	queue.Consume(ctx, ch, cfg.HandoffQueue, msgs, handoff.ArchiveHandler(archive))
	logger.Info("Shutdown signal received, exiting...")
}
