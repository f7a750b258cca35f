// Package document holds the state of one mind-map editing session and
// binds it to layout, generation, persistence and script hand-off.
package document

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sanuei/YoutubePlanner-sub000/internal/store"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/ai"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/layout"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/mindmap"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/prompt"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/script"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/viewsync"
)

var (
	ErrPromptTooLong = errors.New("prompt exceeds the token limit")
	ErrClosed        = errors.New("session closed")
)

// Generator streams a completion into a buffer. *ai.Ingestor implements it.
type Generator interface {
	Run(ctx context.Context, cfg ai.ProviderConfig, prompt string, buf *ai.Buffer, gen uint64, notify func(ai.StreamEvent)) error
}

// Handoff receives finished scripts. Delivery failures are logged and do
// not fail the save.
type Handoff interface {
	Deliver(ctx context.Context, p script.Payload) error
}

type Params struct {
	Store     store.Store
	Generator Generator
	Handoff   Handoff
	Provider  ai.ProviderConfig

	Direction layout.Direction
	// Debounce is the layout window, FitDelay the pause between a layout
	// pass and the fit-to-view event.
	Debounce time.Duration
	FitDelay time.Duration

	// MaxPromptTokens rejects larger prompts. Zero disables the check.
	MaxPromptTokens int

	OnEdit   mindmap.Observer
	OnLayout func()

	// NodeIDs overrides node id generation.
	NodeIDs func() string
}

// Controller is one editing session. All exported methods are safe for
// concurrent use; graph mutations, layout passes and generation starts are
// serialized on the controller's mutex.
type Controller struct {
	params Params

	mu          sync.Mutex
	graph       *mindmap.Store
	proc        *mindmap.Processor
	docID       string
	title       string
	description string
	closed      bool

	// generation single-flight
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	buf    *ai.Buffer

	saveMu sync.Mutex
	view   *viewsync.Controller
	events *broker
}

// New starts a session with a fresh graph whose root is labeled title.
func New(title string, params Params) *Controller {
	if params.Direction == "" {
		params.Direction = layout.Horizontal
	}
	var opts []mindmap.StoreOption
	if params.NodeIDs != nil {
		opts = append(opts, mindmap.WithIDGenerator(params.NodeIDs))
	}

	c := &Controller{
		params: params,
		graph:  mindmap.NewStore(title, opts...),
		buf:    ai.NewBuffer(),
		events: newBroker(),
	}
	root, _ := c.graph.Node(c.graph.RootID())
	c.title = root.Label

	c.view = viewsync.New(params.Debounce, c.relayout, c.fitView, viewsync.WithFitDelay(params.FitDelay))
	c.proc = mindmap.NewProcessor(c.graph,
		mindmap.WithScheduler(c.view),
		mindmap.WithObserver(params.OnEdit),
	)
	return c
}

// State is a read-only snapshot of the session.
type State struct {
	DocumentID  string            `json:"documentId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Graph       mindmap.Graph     `json:"graph"`
	Buffer      ai.BufferSnapshot `json:"buffer"`
	LayoutDue   bool              `json:"layoutPending"`
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		DocumentID:  c.docID,
		Title:       c.title,
		Description: c.description,
		Graph:       c.graph.Snapshot(),
		Buffer:      c.buf.Snapshot(),
		LayoutDue:   c.view.Pending(),
	}
}

func (c *Controller) DocumentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.docID
}

// Load replaces the session graph with a stored document. The root label
// is set to the document title. On failure nothing changes.
func (c *Controller) Load(ctx context.Context, id string) error {
	doc, err := c.params.Store.Load(ctx, id)
	if err != nil {
		return err
	}
	g, err := mindmap.DecodeGraph(doc.NodesJSON, doc.EdgesJSON)
	if err != nil {
		logger.Error("[Document] stored graph is invalid", "id", id, "err", err)
		return &store.PersistenceError{Op: store.OpLoad, Err: err}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err := c.graph.Replace(g); err != nil {
		c.mu.Unlock()
		return &store.PersistenceError{Op: store.OpLoad, Err: err}
	}
	title := doc.Title
	if root, err := c.graph.Rename(c.graph.RootID(), title); err == nil {
		title = root.Label
	} else {
		root, _ := c.graph.Node(c.graph.RootID())
		title = root.Label
	}
	c.docID = doc.ID
	c.title = title
	c.description = doc.Description
	// A generation for the previous graph must not write into the new one.
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.buf.Restore(c.gen, "")
	c.mu.Unlock()

	logger.Info("[Document] loaded", "id", doc.ID, "nodes", len(g.Nodes))
	c.events.publish(Event{Type: EventLoaded, DocumentID: doc.ID, Title: title})
	c.view.Schedule()
	return nil
}

func (c *Controller) execute(cmd mindmap.Command) (mindmap.Change, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return mindmap.Change{}, ErrClosed
	}
	change, err := c.proc.Execute(cmd)
	if err == nil && change.Title != "" {
		c.title = change.Title
	}
	c.mu.Unlock()

	if err != nil {
		return mindmap.Change{}, err
	}
	c.events.publish(Event{Type: EventEdit, Change: &change, Title: change.Title})
	return change, nil
}

func (c *Controller) AddChild(parentID string) (mindmap.Node, error) {
	change, err := c.execute(mindmap.AddChild{ParentID: parentID})
	if err != nil {
		return mindmap.Node{}, err
	}
	return *change.Node, nil
}

// Rename changes a label. Renaming the root also renames the document.
func (c *Controller) Rename(nodeID, label string) (mindmap.Node, error) {
	change, err := c.execute(mindmap.Rename{NodeID: nodeID, Label: label})
	if err != nil {
		return mindmap.Node{}, err
	}
	return *change.Node, nil
}

// DeleteSubtree removes a node with all of its descendants and returns the
// removed ids.
func (c *Controller) DeleteSubtree(nodeID string) ([]string, error) {
	change, err := c.execute(mindmap.DeleteSubtree{NodeID: nodeID})
	if err != nil {
		return nil, err
	}
	return change.Removed, nil
}

func (c *Controller) SetDescription(desc string) {
	c.mu.Lock()
	c.description = desc
	c.mu.Unlock()
}

// FlushLayout applies a pending layout pass now.
func (c *Controller) FlushLayout() {
	c.view.Flush()
}

func (c *Controller) relayout() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	g := c.graph.Snapshot()
	c.graph.SetPositions(layout.Positions(g.Nodes, g.Edges, c.params.Direction))
	g = c.graph.Snapshot()
	c.mu.Unlock()

	if c.params.OnLayout != nil {
		c.params.OnLayout()
	}
	c.events.publish(Event{Type: EventLayout, Graph: &g})
}

func (c *Controller) fitView() {
	c.events.publish(Event{Type: EventFitView})
}

// Prompt renders the completion prompt for the current graph.
func (c *Controller) Prompt(mode prompt.Mode) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return prompt.Build(c.graph.Snapshot(), mode)
}

// Generate starts a new generation and returns its number. A generation
// already in flight is canceled first; its remaining fragments are dropped.
// The prompt is rendered and counted from a graph snapshot outside the
// session lock.
// The generation is owned by the session, not by ctx: it ends when the
// stream ends, on Cancel, on the next Generate or on Close.
func (c *Controller) Generate(ctx context.Context, mode prompt.Mode, override ai.Override) (uint64, error) {
	cfg := c.params.Provider.Apply(override).WithDefaults()
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	g := c.graph.Snapshot()
	c.mu.Unlock()

	text := prompt.Build(g, mode)
	if limit := c.params.MaxPromptTokens; limit > 0 {
		if n := prompt.CountTokens(text); n > limit {
			return 0, fmt.Errorf("%w: %d > %d", ErrPromptTooLong, n, limit)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	c.buf.Reset(gen)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	logger.Info("[Document] generation started", "generation", gen, "provider", cfg.Kind, "mode", mode)
	c.events.publish(Event{Type: EventStatus, Generation: gen, Status: ai.StatusStreaming})
	go c.run(runCtx, cancel, done, gen, cfg, text)
	return gen, nil
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, gen uint64, cfg ai.ProviderConfig, text string) {
	defer close(done)
	defer cancel()

	err := c.params.Generator.Run(ctx, cfg, text, c.buf, gen, func(ev ai.StreamEvent) {
		c.events.publish(Event{Type: EventStream, Generation: gen, Text: ev.Content})
	})

	status := Event{Type: EventStatus, Generation: gen, Status: ai.StatusDone}
	if err != nil {
		status.Status = ai.StatusErrored
		status.Error = err.Error()
		if !errors.Is(err, ai.ErrCanceled) {
			logger.Error("[Document] generation failed", "generation", gen, "err", err)
		}
	}

	c.mu.Lock()
	current := gen == c.gen
	if current {
		c.cancel = nil
	}
	firstSave := current && err == nil && c.docID == "" && !c.closed
	c.mu.Unlock()

	c.events.publish(status)
	if !firstSave {
		return
	}

	saveCtx, cancelSave := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancelSave()
	if _, err := c.Save(saveCtx); err != nil {
		logger.Error("[Document] auto-save after first generation failed", "err", err)
	}
}

// Cancel aborts the generation in flight. It reports whether there was one.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	c.cancel = nil
	return true
}

// Wait blocks until the latest generation has finished, including the
// auto-save that may follow it.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) Buffer() ai.BufferSnapshot {
	return c.buf.Snapshot()
}

// Save persists the graph and returns the document id. The first save of
// a session creates the document.
func (c *Controller) Save(ctx context.Context) (string, error) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	g := c.graph.Snapshot()
	id := c.docID
	in := store.DocumentInput{Title: c.title, Description: c.description}
	c.mu.Unlock()

	var err error
	if in.NodesJSON, err = mindmap.EncodeNodes(g.Nodes); err != nil {
		return "", &store.PersistenceError{Op: store.OpSave, Err: err}
	}
	if in.EdgesJSON, err = mindmap.EncodeEdges(g.Edges); err != nil {
		return "", &store.PersistenceError{Op: store.OpSave, Err: err}
	}

	saved, err := c.params.Store.Save(ctx, id, in)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.docID == "" {
		c.docID = saved
	}
	c.mu.Unlock()

	logger.Info("[Document] saved", "id", saved, "nodes", len(g.Nodes))
	c.events.publish(Event{Type: EventSaved, DocumentID: saved})
	return saved, nil
}

// SaveAsScript extracts a script from the current buffer and hands it
// off. Extraction always runs again on the latest text. A document that
// was never saved is saved first.
func (c *Controller) SaveAsScript(ctx context.Context) (script.Payload, error) {
	id := c.DocumentID()
	if id == "" {
		var err error
		if id, err = c.Save(ctx); err != nil {
			return script.Payload{}, err
		}
	}

	raw := c.buf.String()
	c.mu.Lock()
	title := c.title
	c.mu.Unlock()

	payload := script.NewPayload(script.Extract(raw), raw, id, title)
	if c.params.Handoff != nil {
		if err := c.params.Handoff.Deliver(ctx, payload); err != nil {
			logger.Error("[Document] script hand-off failed", "id", id, "err", err)
		}
	}
	c.events.publish(Event{Type: EventScript, DocumentID: id})
	return payload, nil
}

// Subscribe returns a channel of session events and a function that ends
// the subscription.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	return c.events.subscribe()
}

// Close cancels generation and layout work and ends all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.view.Stop()
	c.events.close()
}
