package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sanuei/YoutubePlanner-sub000/internal/config"
	"github.com/sanuei/YoutubePlanner-sub000/internal/document"
	"github.com/sanuei/YoutubePlanner-sub000/internal/handoff"
	"github.com/sanuei/YoutubePlanner-sub000/internal/metrics"
	"github.com/sanuei/YoutubePlanner-sub000/internal/queue"
	mid "github.com/sanuei/YoutubePlanner-sub000/internal/server/middleware"
	"github.com/sanuei/YoutubePlanner-sub000/internal/session"
	"github.com/sanuei/YoutubePlanner-sub000/internal/storage"
	"github.com/sanuei/YoutubePlanner-sub000/internal/store"
	"github.com/sanuei/YoutubePlanner-sub000/internal/util"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai/providers"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/leaselock"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/prompt"
)

// Build connects the configured backends and returns the application
// together with a function that releases them.
func Build(ctx context.Context, cfg config.Config) (*mid.App, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*mid.App, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	m := metrics.NewCollector()

	var st store.Store
	if cfg.DatabaseURL != "" {
		if err := store.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return fail(err)
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fail(fmt.Errorf("connect to database: %w", err))
		}
		closers = append(closers, pool.Close)
		if err := util.RetryErrWithContext(ctx, 5, time.Second, pool.Ping); err != nil {
			return fail(fmt.Errorf("ping database: %w", err))
		}
		st = store.NewPgStore(pool, store.WithLocker(leaselock.New(pool)))
		logger.Info("[Server] using postgres document store")
	} else {
		st = store.NewMemoryStore()
		logger.Warn("[Server] DATABASE_URL not set, documents are kept in memory")
	}
	st = store.Observe(st, m.Persistence)

	var sinks handoff.FanOut
	if cfg.RabbitMQ.Enabled() {
		conn, err := util.RetryWithContext(ctx, 5, time.Second, func(context.Context) (*amqp.Connection, error) {
			return queue.Dial(cfg.RabbitMQ)
		})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { conn.Close() })
		ch, err := conn.Channel()
		if err != nil {
			return fail(fmt.Errorf("open channel: %w", err))
		}
		if err := queue.SetupQueues(ch, cfg.HandoffQueue); err != nil {
			return fail(err)
		}
		sinks = append(sinks, handoff.NewQueuePublisher(ch, cfg.HandoffQueue))
		logger.Info("[Server] script hand-off via queue", "queue", cfg.HandoffQueue)
	} else if cfg.S3.Enabled() {
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return fail(err)
		}
		bucket := storage.NewBucket(client, cfg.S3.Bucket)
		sinks = append(sinks, handoff.NewArchive(bucket, cfg.S3Prefix))
		logger.Info("[Server] script hand-off to object storage", "bucket", cfg.S3.Bucket)
	}

	ingestor := ai.NewIngestor(ai.IngestorParams{
		Resolver:              providers.Resolve,
		MaxConcurrentRequests: cfg.ParallelReq,
		Observer:              m,
	})

	if cfg.MaxPromptTokens > 0 {
		go prompt.WarmTokens()
	}

	params := document.Params{
		Store:           st,
		Generator:       ingestor,
		Provider:        cfg.Provider,
		Direction:       cfg.LayoutDirection,
		Debounce:        cfg.LayoutDebounce,
		MaxPromptTokens: cfg.MaxPromptTokens,
		OnEdit:          m.Edit,
		OnLayout:        m.LayoutPass,
	}
	if len(sinks) > 0 {
		params.Handoff = sinks
	}

	sessions := session.NewRegistry(func(title string) *document.Controller {
		return document.New(title, params)
	}, cfg.SessionIdle)
	closers = append(closers, sessions.CloseAll)

	return &mid.App{Store: st, Sessions: sessions, Metrics: m}, cleanup, nil
}
