package ai

import (
	"strings"
	"sync"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusStreaming Status = "streaming"
	StatusDone      Status = "done"
	StatusErrored   Status = "errored"
)

// Buffer accumulates the text of the current generation.
//
// Every write carries the generation number it belongs to. Writes from an
// older generation are dropped, so a canceled stream can never leak text
// into the buffer of its successor. Once a generation is finished the
// buffer is frozen until the next Reset.
type Buffer struct {
	mu     sync.RWMutex
	text   strings.Builder
	status Status
	gen    uint64
	err    string
}

// BufferSnapshot is a consistent read of a Buffer.
type BufferSnapshot struct {
	Text       string `json:"text"`
	Status     Status `json:"status"`
	Generation uint64 `json:"generation"`
	Error      string `json:"error,omitempty"`
}

func NewBuffer() *Buffer {
	return &Buffer{status: StatusIdle}
}

// Reset empties the buffer and starts generation gen in streaming state.
func (b *Buffer) Reset(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.Reset()
	b.gen = gen
	b.status = StatusStreaming
	b.err = ""
}

// Restore replaces the buffer with previously generated text, e.g. when a
// saved document is reopened, and makes gen the current generation. The
// buffer is left in done state, or idle when text is empty.
func (b *Buffer) Restore(gen uint64, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen = gen
	b.text.Reset()
	b.text.WriteString(text)
	if text == "" {
		b.status = StatusIdle
	} else {
		b.status = StatusDone
	}
	b.err = ""
}

// Append adds a fragment. It reports false when the fragment was dropped
// because gen is stale or the generation is already finished.
func (b *Buffer) Append(gen uint64, fragment string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen || b.status != StatusStreaming {
		return false
	}
	b.text.WriteString(fragment)
	return true
}

// Finish freezes generation gen. A nil err marks it done, anything else
// errored. It reports false for stale or already finished generations.
func (b *Buffer) Finish(gen uint64, err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen || b.status != StatusStreaming {
		return false
	}
	if err != nil {
		b.status = StatusErrored
		b.err = err.Error()
		return true
	}
	b.status = StatusDone
	return true
}

func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text.String()
}

func (b *Buffer) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

func (b *Buffer) Snapshot() BufferSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BufferSnapshot{
		Text:       b.text.String(),
		Status:     b.status,
		Generation: b.gen,
		Error:      b.err,
	}
}
