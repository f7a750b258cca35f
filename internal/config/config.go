// Package config reads the process configuration from the environment.
package config

import (
	"time"

	"github.com/sanuei/YoutubePlanner-sub000/internal/queue"
	"github.com/sanuei/YoutubePlanner-sub000/internal/storage"
	"github.com/sanuei/YoutubePlanner-sub000/internal/util"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/layout"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/viewsync"
)

type Config struct {
	Port  string
	Debug bool

	DatabaseURL    string
	MigrationsPath string

	Provider        ai.ProviderConfig
	ParallelReq     int64
	MaxPromptTokens int

	LayoutDebounce  time.Duration
	LayoutDirection layout.Direction
	SessionIdle     time.Duration

	RabbitMQ     queue.Config
	HandoffQueue string
	S3           storage.Config
	S3Prefix     string
}

func Load() Config {
	return Config{
		Port:  util.GetEnvString("PORT", "8080"),
		Debug: util.GetEnvBool("DEBUG", false),

		DatabaseURL:    util.GetEnv("DATABASE_URL"),
		MigrationsPath: util.GetEnvString("MIGRATIONS_PATH", "migrations"),

		Provider: ai.ProviderConfig{
			Kind:        ai.ParseKind(util.GetEnv("AI_PROVIDER")),
			BaseURL:     util.GetEnv("AI_BASE_URL"),
			APIKey:      util.GetEnv("AI_API_KEY"),
			Model:       util.GetEnv("AI_MODEL"),
			Temperature: util.GetEnvNumeric("AI_TEMPERATURE", ai.DefaultTemperature),
			MaxTokens:   int(util.GetEnvNumeric("AI_MAX_TOKENS", ai.DefaultMaxTokens)),
			Timeout:     util.GetEnvDuration("AI_TIMEOUT", ai.DefaultTimeout),
		},
		ParallelReq:     int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
		MaxPromptTokens: int(util.GetEnvNumeric("AI_MAX_PROMPT_TOKENS", 0)),

		LayoutDebounce:  util.GetEnvDuration("LAYOUT_DEBOUNCE", viewsync.DefaultDelay),
		LayoutDirection: layout.ParseDirection(util.GetEnv("LAYOUT_DIRECTION")),
		SessionIdle:     util.GetEnvDuration("SESSION_IDLE_TIMEOUT", 2*time.Hour),

		RabbitMQ: queue.Config{
			User:     util.GetEnvString("RABBITMQ_USER", "guest"),
			Password: util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
			Host:     util.GetEnv("RABBITMQ_HOST"),
			Port:     util.GetEnvString("RABBITMQ_PORT", "5672"),
			VHost:    util.GetEnv("RABBITMQ_VHOST"),
		},
		HandoffQueue: util.GetEnvString("HANDOFF_QUEUE", "script_handoff"),
		S3: storage.Config{
			Region:    util.GetEnvString("AWS_REGION", "us-east-1"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
			Bucket:    util.GetEnv("AWS_BUCKET"),
		},
		S3Prefix: util.GetEnvString("AWS_SCRIPT_PREFIX", "scripts"),
	}
}
