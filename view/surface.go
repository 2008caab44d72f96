// Package view mounts trace graphs into named containers and drives each
// one with its own cooperative loop: simulation ticks and pointer events are
// handled one at a time on the container's goroutine.
package view

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/ctxlog"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/interact"
	"github.com/meikuraledutech/traceflow/layout"
	"github.com/meikuraledutech/traceflow/payload"
	"github.com/meikuraledutech/traceflow/scene"
)

const (
	DefaultEmptyMessage   = "No flow data available. Run a demo to generate data."
	DefaultNoNodesMessage = "No nodes found in flow data."
)

// Config controls every session a Surface creates.
type Config struct {
	Layout         layout.Params
	Render         scene.Options
	TickInterval   time.Duration
	StrictEdges    bool
	RandomizeStart bool
	EmptyMessage   string
	NoNodesMessage string
}

// DefaultConfig ticks at roughly 60 frames per second.
func DefaultConfig() Config {
	return Config{
		Layout:         layout.DefaultParams(),
		TickInterval:   16 * time.Millisecond,
		EmptyMessage:   DefaultEmptyMessage,
		NoNodesMessage: DefaultNoNodesMessage,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.EmptyMessage == "" {
		c.EmptyMessage = d.EmptyMessage
	}
	if c.NoNodesMessage == "" {
		c.NoNodesMessage = d.NoNodesMessage
	}
	return c
}

func (c Config) normalizeOptions(ctx context.Context) []graph.Option {
	opts := []graph.Option{graph.WithContext(ctx)}
	if c.StrictEdges {
		opts = append(opts, graph.WithStrictEdges())
	}
	return opts
}

func (c Config) renderOptions() scene.Options {
	ro := c.Render
	if ro.Width <= 0 {
		ro.Width = c.Layout.Width
	}
	if ro.Height <= 0 {
		ro.Height = c.Layout.Height
	}
	return ro
}

func (c Config) layoutOptions() []layout.Option {
	if !c.RandomizeStart {
		return nil
	}
	seed := uint64(time.Now().UnixNano())
	return []layout.Option{layout.WithRand(rand.New(rand.NewPCG(seed, seed>>7)))}
}

// Hooks let the host react to what happens inside containers. They are
// called from the container's loop goroutine and must not block.
type Hooks struct {
	OnNodeInspect func(container string, id graph.NodeID, step traceflow.StepResult)
	OnEdgeInspect func(container string, e graph.Edge)
	OnFrame       func(f Frame)
}

type request struct {
	ev    interact.Event
	reply chan error
}

type loop struct {
	events  chan request
	done    chan struct{}
	stopped chan struct{}
}

type mount struct {
	name string
	// op serializes show and teardown on one container.
	op sync.Mutex

	// guarded by Surface.mu
	gen   uint64
	loop  *loop
	frame Frame
}

// Surface is the registry of render targets.
type Surface struct {
	cfg    Config
	hooks  Hooks
	logger *slog.Logger

	mu         sync.Mutex
	containers map[string]*mount
	nextGen    uint64
}

func NewSurface(ctx context.Context, cfg Config, hooks Hooks) *Surface {
	return &Surface{
		cfg:        cfg.withDefaults(),
		hooks:      hooks,
		logger:     ctxlog.FromContext(ctx),
		containers: make(map[string]*mount),
	}
}

// Register makes a container available for ShowGraph. Registering twice is
// a no-op.
func (s *Surface) Register(container string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[container]; !ok {
		s.containers[container] = &mount{name: container}
	}
}

// Unregister tears down and forgets a container.
func (s *Surface) Unregister(container string) error {
	if err := s.Teardown(container); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.containers, container)
	s.mu.Unlock()
	return nil
}

// Containers lists the registered container names.
func (s *Surface) Containers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.containers))
	for name := range s.containers {
		out = append(out, name)
	}
	return out
}

func (s *Surface) lookup(container string) (*mount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.containers[container]
	if !ok {
		return nil, &RenderTargetMissingError{Container: container}
	}
	return m, nil
}

// ShowGraph replaces whatever container shows with rec. The previous session
// is stopped before the new one starts.
//
// A nil rec shows the empty state. A trace without steps shows the no-nodes
// state and returns an error matching graph.ErrEmptyGraph. Any other
// normalization error leaves the container as it was.
func (s *Surface) ShowGraph(ctx context.Context, container string, rec *traceflow.TraceRecord) error {
	m, err := s.lookup(container)
	if err != nil {
		return err
	}
	m.op.Lock()
	defer m.op.Unlock()

	if rec == nil {
		s.stop(m)
		return s.showEmpty(m, s.cfg.EmptyMessage)
	}

	g, err := graph.Normalize(rec, s.cfg.normalizeOptions(ctx)...)
	if errors.Is(err, graph.ErrEmptyGraph) {
		s.stop(m)
		if eerr := s.showEmpty(m, s.cfg.NoNodesMessage); eerr != nil {
			return eerr
		}
		return err
	}
	if err != nil {
		return err
	}

	s.stop(m)

	s.mu.Lock()
	s.nextGen++
	gen := s.nextGen
	m.gen = gen
	s.mu.Unlock()

	sess := NewSession(container, gen, rec, g, s.cfg, interact.Hooks{
		OnNodeInspect: func(id graph.NodeID, step traceflow.StepResult) {
			if s.hooks.OnNodeInspect != nil {
				s.hooks.OnNodeInspect(container, id, step)
			}
		},
		OnEdgeInspect: func(e graph.Edge) {
			if s.hooks.OnEdgeInspect != nil {
				s.hooks.OnEdgeInspect(container, e)
			}
		},
	})
	frame, err := sess.Render()
	if err != nil {
		return err
	}
	s.publish(m, frame)

	l := &loop{
		events:  make(chan request),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	s.mu.Lock()
	m.loop = l
	s.mu.Unlock()
	go s.run(m, sess, l)

	s.logger.Debug("graph mounted", "container", container, "generation", gen,
		"trace", rec.ID, "nodes", len(g.Nodes), "edges", len(g.Edges), "dropped", len(g.Dropped))
	return nil
}

// Teardown stops the container's session and clears its frame. The
// container stays registered.
func (s *Surface) Teardown(container string) error {
	m, err := s.lookup(container)
	if err != nil {
		return err
	}
	m.op.Lock()
	defer m.op.Unlock()
	s.stop(m)
	s.mu.Lock()
	m.frame = Frame{Container: container, Generation: m.gen}
	s.mu.Unlock()
	return nil
}

// Close tears down every container.
func (s *Surface) Close() {
	for _, name := range s.Containers() {
		_ = s.Teardown(name)
	}
}

// stop retires the current generation and waits for its loop to exit.
// Frames still in flight from that loop are dropped by publish.
func (s *Surface) stop(m *mount) {
	s.mu.Lock()
	l := m.loop
	m.loop = nil
	s.nextGen++
	m.gen = s.nextGen
	s.mu.Unlock()

	if l != nil {
		close(l.done)
		<-l.stopped
	}
}

func (s *Surface) showEmpty(m *mount, message string) error {
	var buf bytes.Buffer
	r := scene.NewRenderer(s.cfg.renderOptions())
	if err := r.RenderEmpty(&buf, message); err != nil {
		return err
	}
	s.mu.Lock()
	gen := m.gen
	s.mu.Unlock()
	s.publish(m, Frame{Container: m.name, Generation: gen, Empty: true, Idle: true, SVG: buf.String()})
	return nil
}

// publish stores f as the container's frame unless it belongs to a retired
// generation.
func (s *Surface) publish(m *mount, f Frame) bool {
	s.mu.Lock()
	if f.Generation != m.gen {
		s.mu.Unlock()
		s.logger.Debug("dropping stale frame", "container", m.name, "generation", f.Generation, "current", m.gen)
		return false
	}
	m.frame = f
	s.mu.Unlock()

	if s.hooks.OnFrame != nil {
		s.hooks.OnFrame(f)
	}
	return true
}

func (s *Surface) run(m *mount, sess *Session, l *loop) {
	defer close(l.stopped)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	tick := ticker.C

	for {
		select {
		case <-l.done:
			return

		case <-tick:
			f, err := sess.Tick()
			if err != nil {
				s.logger.Error("tick failed", "container", m.name, "err", err)
				return
			}
			s.publish(m, f)
			if sess.Idle() {
				ticker.Stop()
				tick = nil
				s.logger.Debug("layout settled", "container", m.name, "ticks", f.Tick)
			}

		case req := <-l.events:
			f, changed, err := sess.Dispatch(req.ev)
			if err == nil && changed {
				s.publish(m, f)
			}
			if tick == nil && !sess.Idle() {
				ticker.Reset(s.cfg.TickInterval)
				tick = ticker.C
			}
			req.reply <- err
		}
	}
}

// Dispatch delivers a pointer event to the container's session and waits
// until it has been handled. Events for a container showing the empty state
// are ignored.
func (s *Surface) Dispatch(ctx context.Context, container string, ev interact.Event) error {
	m, err := s.lookup(container)
	if err != nil {
		return err
	}
	s.mu.Lock()
	l := m.loop
	s.mu.Unlock()
	if l == nil {
		return nil
	}

	req := request{ev: ev, reply: make(chan error, 1)}
	select {
	case l.events <- req:
	case <-l.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frame returns the latest frame of container.
func (s *Surface) Frame(container string) (Frame, error) {
	m, err := s.lookup(container)
	if err != nil {
		return Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.frame, nil
}

// Detail returns the detail view open in container, if any.
func (s *Surface) Detail(container string) (*payload.Detail, error) {
	f, err := s.Frame(container)
	if err != nil {
		return nil, err
	}
	return f.Detail, nil
}
