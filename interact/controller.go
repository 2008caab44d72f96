// Package interact turns pointer events over a rendered graph into drags,
// hover tooltips and inspect requests.
package interact

import (
	"math"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/payload"
	"github.com/meikuraledutech/traceflow/scene"
)

const (
	// ClickSlop is how far a press may travel and still count as a click.
	ClickSlop = 3.0

	tooltipDX = 15.0
	tooltipDY = -28.0
)

// Pinner is the part of the layout engine a drag drives.
type Pinner interface {
	Pin(id graph.NodeID, x, y float64) bool
	Unpin(id graph.NodeID) bool
}

// Hooks are called when the user asks for payload detail.
type Hooks struct {
	OnNodeInspect func(id graph.NodeID, step traceflow.StepResult)
	OnEdgeInspect func(e graph.Edge)
}

type press struct {
	target scene.Target
	x, y   float64
	// offset of the press from the node centre
	dx, dy float64
	moved  bool
}

// Controller holds the interaction state of one graph view. It never
// modifies the graph or the trace.
type Controller struct {
	rec    *traceflow.TraceRecord
	g      *graph.Graph
	pinner Pinner
	hooks  Hooks
	hits   *scene.HitMap

	press    *press
	hover    scene.Target
	tooltip  *scene.Tooltip
	detail   *payload.Detail
	selected graph.NodeID
}

func NewController(rec *traceflow.TraceRecord, g *graph.Graph, pinner Pinner, hooks Hooks) *Controller {
	return &Controller{rec: rec, g: g, pinner: pinner, hooks: hooks}
}

// SetHits installs the hit map of the latest render.
func (c *Controller) SetHits(h *scene.HitMap) { c.hits = h }

// Handle applies ev and reports whether the view needs a redraw.
func (c *Controller) Handle(ev Event) bool {
	switch ev.Type {
	case PointerDown:
		return c.down(ev)
	case PointerMove:
		return c.move(ev)
	case PointerUp:
		return c.up(ev)
	case PointerLeave:
		return c.leave()
	case Dismiss:
		if c.detail == nil {
			return false
		}
		c.detail, c.selected = nil, ""
		return true
	}
	return false
}

func (c *Controller) down(ev Event) bool {
	t := c.hits.At(ev.X, ev.Y)
	if t.Kind == scene.None {
		c.press = nil
		return false
	}
	p := &press{target: t, x: ev.X, y: ev.Y}
	c.press = p
	if t.Kind == scene.NodeTarget {
		c.hover, c.tooltip = scene.Target{}, nil
		if ctr, ok := c.hits.NodeCenter(t.Node); ok {
			p.dx, p.dy = ev.X-ctr.X, ev.Y-ctr.Y
		}
		c.pinner.Pin(t.Node, ev.X-p.dx, ev.Y-p.dy)
	}
	return true
}

func (c *Controller) move(ev Event) bool {
	if p := c.press; p != nil {
		if math.Hypot(ev.X-p.x, ev.Y-p.y) > ClickSlop {
			p.moved = true
		}
		if p.target.Kind == scene.NodeTarget {
			c.pinner.Pin(p.target.Node, ev.X-p.dx, ev.Y-p.dy)
			return true
		}
		return false
	}

	t := c.hits.At(ev.X, ev.Y)
	if t.Same(c.hover) {
		return false
	}
	c.hover = t
	c.tooltip = c.tooltipFor(t, ev.X, ev.Y)
	return true
}

func (c *Controller) up(ev Event) bool {
	p := c.press
	c.press = nil
	if p == nil {
		return false
	}
	if p.target.Kind == scene.NodeTarget {
		c.pinner.Unpin(p.target.Node)
	}
	if !p.moved && c.hits.At(ev.X, ev.Y).Same(p.target) {
		c.click(p.target)
	}
	return true
}

func (c *Controller) leave() bool {
	changed := c.tooltip != nil || c.hover.Kind != scene.None
	c.hover, c.tooltip = scene.Target{}, nil
	if p := c.press; p != nil {
		c.press = nil
		if p.target.Kind == scene.NodeTarget {
			c.pinner.Unpin(p.target.Node)
		}
		changed = true
	}
	return changed
}

func (c *Controller) click(t scene.Target) {
	switch t.Kind {
	case scene.NodeTarget:
		step, _ := c.rec.Step(t.Node)
		d := payload.NodeDetail(t.Node, step.Input, step.Output)
		c.detail, c.selected = &d, t.Node
		if c.hooks.OnNodeInspect != nil {
			c.hooks.OnNodeInspect(t.Node, step)
		}
	case scene.EdgeTarget:
		if t.Edge < 0 || t.Edge >= len(c.g.Edges) {
			return
		}
		e := c.g.Edges[t.Edge]
		d := payload.EdgeDetail(e.Source, e.Target, e.Data)
		c.detail, c.selected = &d, ""
		if c.hooks.OnEdgeInspect != nil {
			c.hooks.OnEdgeInspect(e)
		}
	}
}

func (c *Controller) tooltipFor(t scene.Target, x, y float64) *scene.Tooltip {
	var text string
	switch t.Kind {
	case scene.NodeTarget:
		step, _ := c.rec.Step(t.Node)
		text = payload.NodeTooltip(t.Node, step.Input, step.Output)
	case scene.EdgeTarget:
		if t.Edge < 0 || t.Edge >= len(c.g.Edges) {
			return nil
		}
		e := c.g.Edges[t.Edge]
		text = payload.EdgeTooltip(e.Source, e.Target, e.Data)
	default:
		return nil
	}
	return &scene.Tooltip{Text: text, X: x + tooltipDX, Y: y + tooltipDY}
}

// Overlay is the interaction state to draw over the graph.
func (c *Controller) Overlay() scene.Overlay {
	ov := scene.Overlay{Tooltip: c.tooltip, Selected: c.selected}
	if c.press != nil && c.press.target.Kind == scene.NodeTarget {
		ov.Dragging = c.press.target.Node
	}
	return ov
}

// Tooltip returns the hover text, if any.
func (c *Controller) Tooltip() *scene.Tooltip { return c.tooltip }

// Detail returns the open detail view, if any.
func (c *Controller) Detail() *payload.Detail { return c.detail }

// Dragging returns the node being dragged.
func (c *Controller) Dragging() (graph.NodeID, bool) {
	if c.press == nil || c.press.target.Kind != scene.NodeTarget {
		return "", false
	}
	return c.press.target.Node, true
}
