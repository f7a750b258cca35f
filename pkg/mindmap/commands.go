package mindmap

import (
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
)

const (
	OpAddChild      = "add_child"
	OpRename        = "rename"
	OpDeleteSubtree = "delete_subtree"
)

// Command is a user intent addressed to nodes by id.
type Command interface {
	Op() string
	apply(s *Store) (Change, error)
}

// Change describes the effect of a successful command.
type Change struct {
	Op      string   `json:"op"`
	Node    *Node    `json:"node,omitempty"`
	Removed []string `json:"removed,omitempty"`
	// Title is set when the root was renamed; the document title must follow.
	Title string `json:"title,omitempty"`
}

type AddChild struct {
	ParentID string
}

func (AddChild) Op() string { return OpAddChild }

func (c AddChild) apply(s *Store) (Change, error) {
	n, err := s.AddChild(c.ParentID)
	if err != nil {
		return Change{}, err
	}
	return Change{Op: OpAddChild, Node: &n}, nil
}

type Rename struct {
	NodeID string
	Label  string
}

func (Rename) Op() string { return OpRename }

func (c Rename) apply(s *Store) (Change, error) {
	n, err := s.Rename(c.NodeID, c.Label)
	if err != nil {
		return Change{}, err
	}
	ch := Change{Op: OpRename, Node: &n}
	if n.ID == s.RootID() {
		ch.Title = n.Label
	}
	return ch, nil
}

type DeleteSubtree struct {
	NodeID string
}

func (DeleteSubtree) Op() string { return OpDeleteSubtree }

func (c DeleteSubtree) apply(s *Store) (Change, error) {
	removed, err := s.DeleteSubtree(c.NodeID)
	if err != nil {
		return Change{}, err
	}
	return Change{Op: OpDeleteSubtree, Removed: removed}, nil
}

// Scheduler receives a notification after every successful mutation.
// The view sync controller implements it to debounce layout passes.
type Scheduler interface {
	Schedule()
}

// Observer is told about every executed command and its outcome.
type Observer func(op string, err error)

// Processor applies commands to a Store. Failed commands leave the graph
// untouched.
type Processor struct {
	store     *Store
	scheduler Scheduler
	observer  Observer
}

type ProcessorOption func(*Processor)

func WithScheduler(s Scheduler) ProcessorOption {
	return func(p *Processor) {
		p.scheduler = s
	}
}

func WithObserver(o Observer) ProcessorOption {
	return func(p *Processor) {
		p.observer = o
	}
}

func NewProcessor(store *Store, opts ...ProcessorOption) *Processor {
	p := &Processor{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute applies cmd and schedules a layout pass on success.
func (p *Processor) Execute(cmd Command) (Change, error) {
	change, err := cmd.apply(p.store)
	if p.observer != nil {
		p.observer(cmd.Op(), err)
	}
	if err != nil {
		logger.Debug("[Edit] command rejected", "op", cmd.Op(), "err", err)
		return Change{}, err
	}
	if p.scheduler != nil {
		p.scheduler.Schedule()
	}
	return change, nil
}
