package document

import (
	"sync"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/mindmap"
)

const (
	EventEdit    = "edit"
	EventLayout  = "layout"
	EventFitView = "fit_view"
	EventStream  = "stream"
	EventStatus  = "status"
	EventLoaded  = "loaded"
	EventSaved   = "saved"
	EventScript  = "script"
)

type Event struct {
	Type       string          `json:"type"`
	Generation uint64          `json:"generation,omitempty"`
	Text       string          `json:"text,omitempty"`
	Status     ai.Status       `json:"status,omitempty"`
	Error      string          `json:"error,omitempty"`
	Graph      *mindmap.Graph  `json:"graph,omitempty"`
	Change     *mindmap.Change `json:"change,omitempty"`
	DocumentID string          `json:"documentId,omitempty"`
	Title      string          `json:"title,omitempty"`
}

const subscriberBuffer = 256

// broker fans events out to subscribers. A subscriber that is not keeping
// up loses events instead of blocking the session.
type broker struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Event
	closed bool
}

func newBroker() *broker {
	return &broker{subs: map[int]chan Event{}}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
