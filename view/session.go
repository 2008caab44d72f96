package view

import (
	"bytes"
	"fmt"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/interact"
	"github.com/meikuraledutech/traceflow/layout"
	"github.com/meikuraledutech/traceflow/payload"
	"github.com/meikuraledutech/traceflow/scene"
)

// Frame is one rendered picture of a container.
type Frame struct {
	Container  string                  `json:"container"`
	Generation uint64                  `json:"generation"`
	TraceID    string                  `json:"trace_id,omitempty"`
	Tick       int                     `json:"tick"`
	Idle       bool                    `json:"idle"`
	Empty      bool                    `json:"empty"`
	SVG        string                  `json:"svg"`
	Positions  map[string]layout.Point `json:"positions,omitempty"`
	Detail     *payload.Detail         `json:"detail,omitempty"`
}

// Session is everything that belongs to one displayed graph: the trace, its
// normalized graph, the simulation, the visuals and the interaction state.
// It is driven from a single goroutine and thrown away when the container
// shows another trace.
type Session struct {
	container string
	gen       uint64

	rec      *traceflow.TraceRecord
	g        *graph.Graph
	sim      *layout.Simulation
	visuals  []scene.NodeVisual
	renderer *scene.Renderer
	ctl      *interact.Controller
}

// NewSession builds a session for an already normalized graph.
func NewSession(container string, gen uint64, rec *traceflow.TraceRecord, g *graph.Graph, cfg Config, hooks interact.Hooks) *Session {
	sim := layout.New(g, cfg.Layout, cfg.layoutOptions()...)
	s := &Session{
		container: container,
		gen:       gen,
		rec:       rec,
		g:         g,
		sim:       sim,
		visuals:   scene.Visuals(g),
		renderer:  scene.NewRenderer(cfg.renderOptions()),
	}
	s.ctl = interact.NewController(rec, g, sim, hooks)
	return s
}

// Generation identifies this session within its container.
func (s *Session) Generation() uint64 { return s.gen }

// Graph returns the normalized graph.
func (s *Session) Graph() *graph.Graph { return s.g }

// Simulation exposes the layout engine.
func (s *Session) Simulation() *layout.Simulation { return s.sim }

// Idle reports whether the layout has settled and nothing is being dragged.
func (s *Session) Idle() bool {
	_, dragging := s.ctl.Dragging()
	return s.sim.Idle() && !dragging
}

// Tick advances the layout one step and redraws.
func (s *Session) Tick() (Frame, error) {
	s.sim.Step(1)
	return s.Render()
}

// Dispatch applies a pointer event. The frame is redrawn when the event
// changed something.
func (s *Session) Dispatch(ev interact.Event) (Frame, bool, error) {
	if !s.ctl.Handle(ev) {
		return Frame{}, false, nil
	}
	f, err := s.Render()
	return f, true, err
}

// Render draws the current state and refreshes the controller's hit map.
func (s *Session) Render() (Frame, error) {
	var buf bytes.Buffer
	st := s.sim.State()
	hits, err := s.renderer.Render(&buf, s.g, s.visuals, st.Positions(), s.ctl.Overlay())
	if err != nil {
		return Frame{}, fmt.Errorf("view: render %s: %w", s.container, err)
	}
	s.ctl.SetHits(hits)
	return Frame{
		Container:  s.container,
		Generation: s.gen,
		TraceID:    s.rec.ID,
		Tick:       s.sim.Ticks(),
		Idle:       s.Idle(),
		SVG:        buf.String(),
		Positions:  st.Positions(),
		Detail:     s.ctl.Detail(),
	}, nil
}
