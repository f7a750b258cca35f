// Package queue wraps the RabbitMQ topology used for script hand-offs.
package queue

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
)

// MaxRetries is how often a failing message is retried before it is moved
// to the dead-letter queue.
const MaxRetries = 10

const retryTTL = 10 * time.Second

type Config struct {
	User     string
	Password string
	Host     string
	Port     string
	VHost    string
}

func (c Config) Enabled() bool {
	return c.Host != ""
}

func (c Config) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.VHost,
	}
	return u.String()
}

func Dial(cfg Config) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq at %s: %w", cfg.Host, err)
	}
	return conn, nil
}

// Channel is the part of *amqp091.Channel needed to declare and publish.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

func RetryQueue(name string) string { return name + "_retry" }
func DeadLetterQueue(name string) string { return name + "_dlq" }

// SetupQueues declares every queue with its dead-letter queue and a retry
// queue that routes messages back after a delay.
func SetupQueues(ch Channel, names ...string) error {
	for _, name := range names {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}
		if _, err := ch.QueueDeclare(DeadLetterQueue(name), true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", DeadLetterQueue(name), err)
		}
		_, err := ch.QueueDeclare(RetryQueue(name), true, false, false, false, amqp091.Table{
			"x-message-ttl":             int32(retryTTL.Milliseconds()),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": name,
		})
		if err != nil {
			return fmt.Errorf("declare %s: %w", RetryQueue(name), err)
		}
	}
	return nil
}

// Publish sends a persistent message to the default exchange.
func Publish(ctx context.Context, ch Channel, queueName, contentType string, body []byte, headers amqp091.Table) error {
	return ch.PublishWithContext(ctx, "", queueName, false, false, amqp091.Publishing{
		ContentType:  contentType,
		Body:         body,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
}

// RetryCount reads the x-retries header.
func RetryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// HandleFailure moves a failed delivery to the retry queue, or to the
// dead-letter queue once MaxRetries is reached, and acks the original.
// If republishing fails the delivery is requeued instead.
func HandleFailure(ctx context.Context, ch Channel, msg amqp091.Delivery, queueName string) {
	retries := RetryCount(msg.Headers)
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	target := RetryQueue(queueName)
	if retries >= MaxRetries {
		target = DeadLetterQueue(queueName)
		logger.Warn("[Queue] moving message to dead-letter queue", "queue", queueName, "retries", retries)
	} else {
		headers["x-retries"] = int32(retries + 1)
	}

	if err := Publish(ctx, ch, target, msg.ContentType, msg.Body, headers); err != nil {
		logger.Error("[Queue] failed to republish message", "target", target, "err", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// Consume delivers messages from deliveries to h one at a time until ctx
// is done or the channel closes.
func Consume(ctx context.Context, ch Channel, queueName string, deliveries <-chan amqp091.Delivery, h Handler) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("[Queue] stopping consumer", "queue", queueName)
			return
		case msg, ok := <-deliveries:
			if !ok {
				logger.Info("[Queue] delivery channel closed", "queue", queueName)
				return
			}
			start := time.Now()
			if err := h(ctx, msg.Body); err != nil {
				logger.Error("[Queue] message failed", "queue", queueName, "err", err)
				HandleFailure(ctx, ch, msg, queueName)
				continue
			}
			if err := msg.Ack(false); err != nil {
				logger.Error("[Queue] failed to ack message", "queue", queueName, "err", err)
			}
			logger.Debug("[Queue] message processed", "queue", queueName, "duration", time.Since(start))
		}
	}
}
