// Package layout positions graph nodes with an iterative force simulation:
// many-body repulsion, spring links and a pull toward the canvas center.
package layout

import (
	"math"
	"math/rand/v2"

	"github.com/meikuraledutech/traceflow/graph"
)

type link struct {
	source, target int
	strength       float64
	bias           float64
}

// Simulation advances a State one tick at a time. It is not safe for
// concurrent use; the owning session drives it from a single goroutine.
type Simulation struct {
	p     Params
	state *State
	links []link
	rnd   *rand.Rand

	alpha       float64
	alphaTarget float64
	ticks       int
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithRand sets the random source used for jitter. Initial positions are
// scattered with it too, so different sources give different layouts.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulation) { s.rnd = r }
}

// New builds a simulation for g with nodes placed on a spiral around the
// canvas center.
func New(g *graph.Graph, p Params, opts ...Option) *Simulation {
	s := &Simulation{
		p:     p.withDefaults(),
		alpha: 1,
	}
	scatter := false
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd != nil {
		scatter = true
	} else {
		s.rnd = rand.New(rand.NewPCG(1, uint64(len(g.Nodes))))
	}

	s.state = &State{
		Nodes: make([]NodeState, len(g.Nodes)),
		index: make(map[graph.NodeID]int, len(g.Nodes)),
	}
	cx, cy := s.center()
	golden := math.Pi * (3 - math.Sqrt(5))
	for i, id := range g.Nodes {
		r := 10 * math.Sqrt(0.5+float64(i))
		a := float64(i) * golden
		n := NodeState{ID: id, X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
		if scatter {
			n.X += (s.rnd.Float64() - 0.5) * 20
			n.Y += (s.rnd.Float64() - 0.5) * 20
		}
		s.state.Nodes[i] = n
		s.state.index[id] = i
	}

	count := make([]int, len(g.Nodes))
	for _, e := range g.Edges {
		if e.SelfLoop() {
			continue
		}
		count[g.IndexOf(e.Source)]++
		count[g.IndexOf(e.Target)]++
	}
	for _, e := range g.Edges {
		if e.SelfLoop() {
			continue
		}
		src, tgt := g.IndexOf(e.Source), g.IndexOf(e.Target)
		s.links = append(s.links, link{
			source:   src,
			target:   tgt,
			strength: 1 / float64(min(count[src], count[tgt])),
			bias:     float64(count[src]) / float64(count[src]+count[tgt]),
		})
	}
	return s
}

func (s *Simulation) center() (float64, float64) {
	return s.p.Width / 2, s.p.Height / 2
}

// State returns the live state. Callers must not keep it past the session.
func (s *Simulation) State() *State { return s.state }

// Params returns the effective parameters.
func (s *Simulation) Params() Params { return s.p }

// Alpha is the current simulation temperature.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Ticks counts steps taken since New.
func (s *Simulation) Ticks() int { return s.ticks }

// Idle reports whether the simulation has cooled below AlphaMin.
func (s *Simulation) Idle() bool { return s.alpha < s.p.AlphaMin }

// Reheat raises alpha so an idle simulation resumes.
func (s *Simulation) Reheat() {
	if s.alpha < s.p.ReheatAlpha {
		s.alpha = s.p.ReheatAlpha
	}
}

// Pin fixes id at (x, y) until Unpin. Calling Pin on an already pinned node
// moves the pin. Unknown ids are ignored and report false.
func (s *Simulation) Pin(id graph.NodeID, x, y float64) bool {
	n, ok := s.state.node(id)
	if !ok {
		return false
	}
	n.Pinned, n.FX, n.FY = true, x, y
	n.X, n.Y, n.VX, n.VY = x, y, 0, 0
	s.alphaTarget = s.p.ReheatAlpha
	s.Reheat()
	return true
}

// Unpin hands id back to the physics.
func (s *Simulation) Unpin(id graph.NodeID) bool {
	n, ok := s.state.node(id)
	if !ok {
		return false
	}
	n.Pinned = false
	if !s.anyPinned() {
		s.alphaTarget = 0
	}
	s.Reheat()
	return true
}

func (s *Simulation) anyPinned() bool {
	for i := range s.state.Nodes {
		if s.state.Nodes[i].Pinned {
			return true
		}
	}
	return false
}

// Step advances the simulation by one tick. dt scales how far velocities
// move nodes; 1 is a normal frame.
func (s *Simulation) Step(dt float64) *State {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		dt = 1
	}
	s.alpha += (s.alphaTarget - s.alpha) * s.p.AlphaDecay
	s.ticks++

	s.applyLinks()
	s.applyCharge()
	s.applyCenter()

	cx, cy := s.center()
	keep := 1 - s.p.VelocityDecay
	for i := range s.state.Nodes {
		n := &s.state.Nodes[i]
		if n.Pinned {
			n.X, n.Y, n.VX, n.VY = n.FX, n.FY, 0, 0
			continue
		}
		n.VX *= keep
		n.VY *= keep
		n.X += n.VX * dt
		n.Y += n.VY * dt
		if !finite(n.X) || !finite(n.Y) {
			n.X, n.Y = cx+s.jiggle(), cy+s.jiggle()
			n.VX, n.VY = 0, 0
		}
	}
	return s.state
}

// Run steps until the simulation idles or maxTicks is reached and returns
// the number of ticks taken.
func (s *Simulation) Run(maxTicks int) int {
	n := 0
	for n < maxTicks && !s.Idle() {
		s.Step(1)
		n++
	}
	return n
}

func (s *Simulation) applyLinks() {
	nodes := s.state.Nodes
	for _, l := range s.links {
		src, tgt := &nodes[l.source], &nodes[l.target]
		dx := tgt.X + tgt.VX - src.X - src.VX
		dy := tgt.Y + tgt.VY - src.Y - src.VY
		if dx == 0 {
			dx = s.jiggle()
		}
		if dy == 0 {
			dy = s.jiggle()
		}
		d := math.Sqrt(dx*dx + dy*dy)
		k := (d - s.p.LinkDistance) / d * s.alpha * l.strength
		dx, dy = dx*k, dy*k
		tgt.VX -= dx * l.bias
		tgt.VY -= dy * l.bias
		src.VX += dx * (1 - l.bias)
		src.VY += dy * (1 - l.bias)
	}
}

// applyCharge is the direct O(n^2) many-body force. Trace graphs are a
// handful of steps, so there is no quadtree.
func (s *Simulation) applyCharge() {
	nodes := s.state.Nodes
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := &nodes[i], &nodes[j]
			dx, dy := b.X-a.X, b.Y-a.Y
			if dx == 0 {
				dx = s.jiggle()
			}
			if dy == 0 {
				dy = s.jiggle()
			}
			l2 := dx*dx + dy*dy
			if l2 < 1 {
				l2 = math.Sqrt(l2)
			}
			w := s.p.Charge * s.alpha / l2
			a.VX += dx * w
			a.VY += dy * w
			b.VX -= dx * w
			b.VY -= dy * w
		}
	}
}

func (s *Simulation) applyCenter() {
	cx, cy := s.center()
	k := s.p.CenterStrength * s.alpha
	for i := range s.state.Nodes {
		n := &s.state.Nodes[i]
		if n.Pinned {
			continue
		}
		n.VX += (cx - n.X) * k
		n.VY += (cy - n.Y) * k
	}
}

func (s *Simulation) jiggle() float64 {
	return (s.rnd.Float64() - 0.5) * 1e-6
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
