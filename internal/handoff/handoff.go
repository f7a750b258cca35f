// Package handoff delivers finished scripts to the script editor: through
// a queue, straight into object storage, or both.
package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sanuei/YoutubePlanner-sub000/internal/queue"
	"github.com/sanuei/YoutubePlanner-sub000/internal/storage"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/script"
)

const DefaultQueue = "script_handoff"

type Sink interface {
	Deliver(ctx context.Context, p script.Payload) error
}

// QueuePublisher sends payloads as JSON messages.
type QueuePublisher struct {
	ch    queue.Channel
	queue string
}

func NewQueuePublisher(ch queue.Channel, queueName string) *QueuePublisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &QueuePublisher{ch: ch, queue: queueName}
}

func (q *QueuePublisher) Deliver(ctx context.Context, p script.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := queue.Publish(ctx, q.ch, q.queue, "application/json", body, nil); err != nil {
		return fmt.Errorf("publish script hand-off: %w", err)
	}
	logger.Debug("[Handoff] published", "queue", q.queue, "document", p.DocumentID)
	return nil
}

// Archive writes payloads to object storage, one object per delivery.
type Archive struct {
	bucket *storage.Bucket
	prefix string
	now    func() time.Time
}

func NewArchive(bucket *storage.Bucket, prefix string) *Archive {
	return &Archive{bucket: bucket, prefix: strings.Trim(prefix, "/"), now: time.Now}
}

// Key is "<prefix>/<document id>/<UTC timestamp>.json".
func (a *Archive) Key(p script.Payload) string {
	doc := p.DocumentID
	if doc == "" {
		doc = "unsaved"
	}
	name := a.now().UTC().Format("20060102T150405.000000000Z") + ".json"
	if a.prefix == "" {
		return doc + "/" + name
	}
	return a.prefix + "/" + doc + "/" + name
}

func (a *Archive) Deliver(ctx context.Context, p script.Payload) error {
	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	key := a.Key(p)
	if err := a.bucket.Put(ctx, key, body, "application/json"); err != nil {
		return err
	}
	logger.Info("[Handoff] script archived", "bucket", a.bucket.Name(), "key", key)
	return nil
}

// FanOut delivers to every sink concurrently. All sinks are attempted; the
// first failure is returned.
type FanOut []Sink

func (f FanOut) Deliver(ctx context.Context, p script.Payload) error {
	var g errgroup.Group
	for _, s := range f {
		g.Go(func() error {
			return s.Deliver(ctx, p)
		})
	}
	return g.Wait()
}

// Decode parses a queued hand-off message.
func Decode(body []byte) (script.Payload, error) {
	var p script.Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return script.Payload{}, fmt.Errorf("decode script hand-off: %w", err)
	}
	return p, nil
}

// ArchiveHandler is the worker side of the queue: it stores every
// received payload.
func ArchiveHandler(a *Archive) queue.Handler {
	return func(ctx context.Context, body []byte) error {
		p, err := Decode(body)
		if err != nil {
			return err
		}
		return a.Deliver(ctx, p)
	}
}
