// Package session keeps the live editing sessions of the server.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/sanuei/YoutubePlanner-sub000/internal/document"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
)

var ErrNotFound = errors.New("session not found")

// Factory builds the controller for a new session.
type Factory func(title string) *document.Controller

type entry struct {
	ctrl     *document.Controller
	lastUsed time.Time
}

// Registry maps session ids to controllers. Sessions unused for longer
// than the idle timeout are closed by Run.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  Factory
	idle     time.Duration
	now      func() time.Time
}

func NewRegistry(factory Factory, idle time.Duration) *Registry {
	if idle <= 0 {
		idle = 2 * time.Hour
	}
	return &Registry{
		sessions: map[string]*entry{},
		factory:  factory,
		idle:     idle,
		now:      time.Now,
	}
}

// Create starts an empty session.
func (r *Registry) Create(title string) (string, *document.Controller, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", nil, err
	}
	ctrl := r.factory(title)

	r.mu.Lock()
	r.sessions[id] = &entry{ctrl: ctrl, lastUsed: r.now()}
	r.mu.Unlock()

	logger.Debug("[Session] created", "session", id)
	return id, ctrl, nil
}

// Open starts a session for a stored document.
func (r *Registry) Open(ctx context.Context, documentID string) (string, *document.Controller, error) {
	ctrl := r.factory("")
	if err := ctrl.Load(ctx, documentID); err != nil {
		ctrl.Close()
		return "", nil, err
	}
	id, err := gonanoid.New()
	if err != nil {
		ctrl.Close()
		return "", nil, err
	}

	r.mu.Lock()
	r.sessions[id] = &entry{ctrl: ctrl, lastUsed: r.now()}
	r.mu.Unlock()

	logger.Debug("[Session] opened", "session", id, "document", documentID)
	return id, ctrl, nil
}

func (r *Registry) Get(id string) (*document.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastUsed = r.now()
	return e.ctrl, nil
}

func (r *Registry) Close(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.ctrl.Close()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle since before now minus the idle timeout and
// returns how many were closed.
func (r *Registry) Sweep(now time.Time) int {
	var stale []*document.Controller
	r.mu.Lock()
	for id, e := range r.sessions {
		if now.Sub(e.lastUsed) > r.idle {
			stale = append(stale, e.ctrl)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	if len(stale) > 0 {
		logger.Info("[Session] closed idle sessions", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps idle sessions until ctx is done, then closes all sessions.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case <-t.C:
			r.Sweep(r.now())
		}
	}
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[string]*entry{}
	r.mu.Unlock()
	for _, e := range all {
		e.ctrl.Close()
	}
}
