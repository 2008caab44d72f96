package scene

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/layout"
)

// Options controls the drawing. Zero fields take the defaults.
type Options struct {
	Width      float64
	Height     float64
	NodeRadius float64
	EdgeColor  string
	// HitSlack is how far from an edge line a pointer still hits it.
	HitSlack float64
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 400
	}
	if o.NodeRadius <= 0 {
		o.NodeRadius = 30
	}
	if o.EdgeColor == "" {
		o.EdgeColor = "#999"
	}
	if o.HitSlack <= 0 {
		o.HitSlack = 6
	}
	return o
}

// Tooltip is transient hover text drawn near the pointer.
type Tooltip struct {
	Text string
	X, Y float64
}

// Overlay is the interaction state drawn on top of the graph.
type Overlay struct {
	Tooltip  *Tooltip
	Selected graph.NodeID
	Dragging graph.NodeID
}

// Renderer draws graphs as SVG. It keeps no state between calls.
type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (r *Renderer) Options() Options { return r.opts }

// Render writes a full SVG document for g at the given positions and
// returns the hit map for it. Edges are drawn first so nodes cover their
// ends.
func (r *Renderer) Render(w io.Writer, g *graph.Graph, visuals []NodeVisual, pos map[graph.NodeID]layout.Point, ov Overlay) (*HitMap, error) {
	for _, v := range visuals {
		if _, ok := pos[v.ID]; !ok {
			return nil, fmt.Errorf("scene: no position for node %q", v.ID)
		}
	}

	o := r.opts
	hits := &HitMap{slack: o.HitSlack}
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" data-trace="%s">`,
		num(o.Width), num(o.Height), num(o.Width), num(o.Height), esc(g.TraceID))
	bw.WriteString("\n")
	fmt.Fprintf(bw, `<defs><marker id="arrowhead" viewBox="0 -5 10 10" refX="10" refY="0" orient="auto" markerWidth="6" markerHeight="6"><path d="M0,-5L10,0L0,5" fill="%s" stroke="none"/></marker></defs>`, o.EdgeColor)
	bw.WriteString("\n")

	bw.WriteString(`<g class="links">` + "\n")
	for _, e := range g.Edges {
		a, b := pos[e.Source], pos[e.Target]
		if e.SelfLoop() {
			c := layout.Point{X: a.X, Y: a.Y - o.NodeRadius - 8}
			loopR := o.NodeRadius * 0.45
			fmt.Fprintf(bw, `<circle class="link loop" data-edge="%d" cx="%s" cy="%s" r="%s" fill="none" stroke="%s" stroke-opacity="0.8" stroke-width="2"/>`,
				e.Index, num(c.X), num(c.Y), num(loopR), o.EdgeColor)
			bw.WriteString("\n")
			hits.edges = append(hits.edges, edgeHit{index: e.Index, a: c, loop: true, radius: loopR})
			continue
		}
		s, t := trim(a, b, o.NodeRadius)
		fmt.Fprintf(bw, `<line class="link" data-edge="%d" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-opacity="0.8" stroke-width="2" marker-end="url(#arrowhead)"/>`,
			e.Index, num(s.X), num(s.Y), num(t.X), num(t.Y), o.EdgeColor)
		bw.WriteString("\n")
		hits.edges = append(hits.edges, edgeHit{index: e.Index, a: s, b: t})
	}
	bw.WriteString("</g>\n")

	bw.WriteString(`<g class="nodes">` + "\n")
	for _, v := range visuals {
		p := pos[v.ID]
		class := "node"
		if v.ID == ov.Selected {
			class += " selected"
		}
		if v.ID == ov.Dragging {
			class += " dragging"
		}
		fmt.Fprintf(bw, `<g class="%s" data-node="%s" transform="translate(%s,%s)">`, class, esc(v.ID), num(p.X), num(p.Y))
		fmt.Fprintf(bw, `<circle r="%s" fill="%s" stroke="#fff" stroke-width="2"/>`, num(o.NodeRadius), v.Color)
		fmt.Fprintf(bw, `<text class="node-label" dy=".35em" fill="#fff" text-anchor="middle">%s</text>`, esc(v.Label))
		bw.WriteString("</g>\n")
		hits.nodes = append(hits.nodes, nodeHit{id: v.ID, center: p, radius: o.NodeRadius})
	}
	bw.WriteString("</g>\n")

	if ov.Tooltip != nil {
		writeTooltip(bw, ov.Tooltip)
	}

	bw.WriteString("</svg>\n")
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("scene: write: %w", err)
	}
	return hits, nil
}

// RenderEmpty writes the placeholder shown when there is nothing to draw.
func (r *Renderer) RenderEmpty(w io.Writer, message string) error {
	o := r.opts
	_, err := fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" class="empty"><text x="%s" y="%s" text-anchor="middle" fill="#6c757d">%s</text></svg>`+"\n",
		num(o.Width), num(o.Height), num(o.Width), num(o.Height), num(o.Width/2), num(o.Height/2), esc(message))
	return err
}

func writeTooltip(w *bufio.Writer, t *Tooltip) {
	lines := strings.Split(t.Text, "\n")
	longest := 0
	for _, l := range lines {
		longest = max(longest, utf8.RuneCountInString(l))
	}
	width := float64(longest)*7 + 16
	height := float64(len(lines))*16 + 10

	fmt.Fprintf(w, `<g class="tooltip-custom" transform="translate(%s,%s)">`, num(t.X), num(t.Y))
	fmt.Fprintf(w, `<rect width="%s" height="%s" rx="4" fill="#212529" fill-opacity="0.9"/>`, num(width), num(height))
	w.WriteString(`<text fill="#fff" font-size="12">`)
	for i, l := range lines {
		fmt.Fprintf(w, `<tspan x="8" y="%d">%s</tspan>`, 18+i*16, esc(l))
	}
	w.WriteString("</text></g>\n")
}

// trim shortens the segment a->b by r at both ends so the arrow tip meets
// the target circle. Overlapping nodes keep the raw centers.
func trim(a, b layout.Point, r float64) (layout.Point, layout.Point) {
	dx, dy := b.X-a.X, b.Y-a.Y
	d := math.Hypot(dx, dy)
	if d <= 2*r {
		return a, b
	}
	ux, uy := dx/d, dy/d
	return layout.Point{X: a.X + ux*r, Y: a.Y + uy*r}, layout.Point{X: b.X - ux*r, Y: b.Y - uy*r}
}

func num(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

func esc(s string) string { return html.EscapeString(s) }
