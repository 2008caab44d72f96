// Package live pushes view frames and inspect events to browsers over
// websockets, and feeds pointer events from them back into the surface.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/ctxlog"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/interact"
	"github.com/meikuraledutech/traceflow/payload"
	"github.com/meikuraledutech/traceflow/view"
)

// Message types sent to clients.
const (
	TypeFrame       = "frame"
	TypeNodeInspect = "node_inspect"
	TypeEdgeInspect = "edge_inspect"
)

// Message is the envelope written to every client.
type Message struct {
	Type      string          `json:"type"`
	Container string          `json:"container"`
	Frame     *view.Frame     `json:"frame,omitempty"`
	Node      string          `json:"node,omitempty"`
	Source    string          `json:"source,omitempty"`
	Target    string          `json:"target,omitempty"`
	Detail    *payload.Detail `json:"detail,omitempty"`
}

// Inbound is what clients send: a pointer event for a container.
type Inbound struct {
	Container string         `json:"container"`
	Event     interact.Event `json:"event"`
}

// Dispatcher delivers client pointer events. view.Surface.Dispatch fits.
type Dispatcher func(ctx context.Context, container string, ev interact.Event) error

// Hub fans messages out to connected clients. Frames are cached per
// container so a client that connects late starts from the current picture.
type Hub struct {
	upgrader websocket.Upgrader
	dispatch Dispatcher
	logger   *slog.Logger

	clients   map[*websocket.Conn]bool
	register  chan *websocket.Conn
	remove    chan *websocket.Conn
	broadcast chan []byte

	mu     sync.RWMutex
	latest map[string][]byte

	done chan struct{}
}

// NewHub starts the hub loop; it runs until ctx is done.
func NewHub(ctx context.Context, dispatch Dispatcher) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		dispatch:  dispatch,
		logger:    ctxlog.FromContext(ctx),
		clients:   make(map[*websocket.Conn]bool),
		register:  make(chan *websocket.Conn),
		remove:    make(chan *websocket.Conn),
		broadcast: make(chan []byte, 64),
		latest:    make(map[string][]byte),
		done:      make(chan struct{}),
	}
	go h.run(ctx)
	return h
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
			}
			return
		case conn := <-h.register:
			h.clients[conn] = true
		case conn := <-h.remove:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		case msg := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.logger.Warn("failed to send to websocket client", "err", err)
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// Done is closed once the hub loop has exited.
func (h *Hub) Done() <-chan struct{} { return h.done }

// ServeHTTP upgrades the request and attaches the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	// Snapshot frames are written before registering so they cannot
	// interleave with broadcasts on the same connection.
	h.mu.RLock()
	for _, data := range h.latest {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.mu.RUnlock()
			conn.Close()
			return
		}
	}
	h.mu.RUnlock()

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	go h.read(r.Context(), conn)
}

func (h *Hub) read(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		select {
		case h.remove <- conn:
		case <-h.done:
		}
	}()
	ctx = context.WithoutCancel(ctx)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket error", "err", err)
			}
			return
		}
		if h.dispatch == nil {
			continue
		}
		var in Inbound
		if err := json.Unmarshal(message, &in); err != nil {
			h.logger.Debug("ignoring malformed client message", "err", err)
			continue
		}
		if err := h.dispatch(ctx, in.Container, in.Event); err != nil {
			h.logger.Debug("client event rejected", "container", in.Container, "err", err)
		}
	}
}

// Publish queues msg for every client. It never blocks: when the queue is
// full the message is dropped, the next frame supersedes it anyway.
func (h *Hub) Publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal live message", "type", msg.Type, "err", err)
		return
	}
	if msg.Type == TypeFrame {
		h.mu.Lock()
		h.latest[msg.Container] = data
		h.mu.Unlock()
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Debug("live queue full, dropping message", "type", msg.Type, "container", msg.Container)
	}
}

// Hooks returns surface hooks that publish through the hub.
func (h *Hub) Hooks() view.Hooks {
	return view.Hooks{
		OnFrame: func(f view.Frame) {
			h.Publish(Message{Type: TypeFrame, Container: f.Container, Frame: &f})
		},
		OnNodeInspect: func(container string, id graph.NodeID, step traceflow.StepResult) {
			d := payload.NodeDetail(id, step.Input, step.Output)
			h.Publish(Message{Type: TypeNodeInspect, Container: container, Node: id, Detail: &d})
		},
		OnEdgeInspect: func(container string, e graph.Edge) {
			d := payload.EdgeDetail(e.Source, e.Target, e.Data)
			h.Publish(Message{Type: TypeEdgeInspect, Container: container, Source: e.Source, Target: e.Target, Detail: &d})
		},
	}
}
