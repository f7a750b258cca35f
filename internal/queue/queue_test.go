package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rabbitmq/amqp091-go"
)

type published struct {
	key string
	msg amqp091.Publishing
}

type fakeChannel struct {
	mu        sync.Mutex
	declared  map[string]amqp091.Table
	published []published
	failPub   bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{declared: map[string]amqp091.Table{}}
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, args amqp091.Table) (amqp091.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared[name] = args
	return amqp091.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp091.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPub {
		return errors.New("channel closed")
	}
	f.published = append(f.published, published{key: key, msg: msg})
	return nil
}

type fakeAck struct {
	acked, nacked, requeued int
}

func (a *fakeAck) Ack(uint64, bool) error { a.acked++; return nil }
func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	if requeue {
		a.requeued++
	}
	return nil
}
func (a *fakeAck) Reject(uint64, bool) error { return nil }

func TestSetupQueues(t *testing.T) {
	ch := newFakeChannel()
	if err := SetupQueues(ch, "script_handoff"); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"script_handoff", "script_handoff_dlq", "script_handoff_retry"} {
		if _, ok := ch.declared[name]; !ok {
			t.Errorf("%s not declared", name)
		}
	}
	retry := ch.declared["script_handoff_retry"]
	if retry["x-dead-letter-routing-key"] != "script_handoff" || retry["x-message-ttl"] != int32(10000) {
		t.Fatalf("retry args = %v", retry)
	}
}

func TestHandleFailureRetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	ch := newFakeChannel()
	ack := &fakeAck{}

	msg := amqp091.Delivery{Acknowledger: ack, Body: []byte("x"), Headers: amqp091.Table{"x-retries": int32(3)}}
	HandleFailure(ctx, ch, msg, "q")
	if ch.published[0].key != "q_retry" || RetryCount(ch.published[0].msg.Headers) != 4 {
		t.Fatalf("published = %+v", ch.published[0])
	}
	if msg.Headers["x-retries"] != int32(3) {
		t.Fatal("original headers were modified")
	}

	msg.Headers = amqp091.Table{"x-retries": int32(MaxRetries)}
	HandleFailure(ctx, ch, msg, "q")
	if ch.published[1].key != "q_dlq" {
		t.Fatalf("published = %+v", ch.published[1])
	}
	if ack.acked != 2 {
		t.Fatalf("acked = %d", ack.acked)
	}

	ch.failPub = true
	HandleFailure(ctx, ch, msg, "q")
	if ack.requeued != 1 {
		t.Fatal("failed republish must requeue")
	}
}

func TestConsume(t *testing.T) {
	ch := newFakeChannel()
	ack := &fakeAck{}
	deliveries := make(chan amqp091.Delivery, 2)
	deliveries <- amqp091.Delivery{Acknowledger: ack, Body: []byte("ok")}
	deliveries <- amqp091.Delivery{Acknowledger: ack, Body: []byte("bad")}
	close(deliveries)

	var seen []string
	Consume(context.Background(), ch, "q", deliveries, func(_ context.Context, body []byte) error {
		seen = append(seen, string(body))
		if string(body) == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	if len(seen) != 2 || ack.acked != 2 {
		t.Fatalf("seen = %v, acked = %d", seen, ack.acked)
	}
	if len(ch.published) != 1 || ch.published[0].key != "q_retry" {
		t.Fatalf("published = %+v", ch.published)
	}
}

func TestConfigURL(t *testing.T) {
	c := Config{User: "guest", Password: "p@ss", Host: "mq", Port: "5672"}
	if got := c.URL(); got != "amqp://guest:p%40ss@mq:5672/" {
		t.Fatalf("URL = %s", got)
	}
	if (Config{}).Enabled() {
		t.Fatal("empty config enabled")
	}
}
