package host

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rwcarlsen/biorithm/step"
)

// Event types sent over WebSocket.
const (
	EventConnected = "connected"
	EventTick      = "tick"
	EventStopped   = "stopped"
	EventSkipped   = "skipped"
)

// Actions clients may send.
const (
	ActionRun   = "run"
	ActionStop  = "stop"
	ActionReset = "reset"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 4096
	sendBufSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the envelope for all WebSocket messages.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// TickData is the payload of tick, stopped and skipped events.
type TickData struct {
	Iterations int            `json:"iterations"`
	State      string         `json:"state"`
	Best       [3]float64     `json:"best"`
	BestVal    float64        `json:"best_val"`
	Paths      [][][3]float64 `json:"paths"`
}

// ClientMessage is the envelope for messages sent from the client.
type ClientMessage struct {
	Action string `json:"action"`
}

type conn struct {
	ws   *websocket.Conn
	send chan []byte
}

// Hub fans step outputs out to WebSocket clients and collects their run,
// stop and reset actions.
type Hub struct {
	mu          sync.RWMutex
	connections map[*conn]bool
	actions     chan string
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[*conn]bool),
		actions:     make(chan string, 16),
	}
}

// Actions delivers client actions in arrival order.
func (h *Hub) Actions() <-chan string { return h.actions }

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connections[c] {
		delete(h.connections, c)
		close(c.send)
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Broadcast sends an event to every connection.  Connections with a full
// send buffer miss the event.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("type", event.Type).Msg("Dropping WebSocket message, buffer full")
		}
	}
}

// Publish broadcasts a step output.  It can be used directly as a Loop sink.
func (h *Hub) Publish(out step.Output) {
	h.Broadcast(NewEvent(out))
}

// NewEvent wraps a step output in an event envelope.
func NewEvent(out step.Output) Event {
	typ := EventTick
	switch {
	case out.Skipped:
		typ = EventSkipped
	case out.State == step.Stopped:
		typ = EventStopped
	}

	data := TickData{
		Iterations: out.Iterations,
		State:      out.State.String(),
		Best:       vec(out.Best.Pos),
		BestVal:    out.Best.Val,
		Paths:      make([][][3]float64, 0, len(out.Paths)),
	}
	for _, path := range out.Paths {
		pts := make([][3]float64, len(path))
		for i, p := range path {
			pts[i] = vec(p)
		}
		data.Paths = append(data.Paths, pts)
	}
	return Event{Type: typ, Data: data}
}

func vec(p r3.Vec) [3]float64 { return [3]float64{p.X, p.Y, p.Z} }

// ServeWS upgrades the request to a WebSocket and streams events to it.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &conn{ws: ws, send: make(chan []byte, sendBufSize)}
	h.register(c)

	welcome, _ := json.Marshal(Event{Type: EventConnected, Data: map[string]any{}})
	c.send <- welcome

	go h.writePump(c)
	go h.readPump(c)

	log.Info().Int("total", h.ConnectionCount()).Msg("WebSocket client connected")
}

func (h *Hub) readPump(c *conn) {
	defer func() {
		h.unregister(c)
		c.ws.Close()
		log.Info().Msg("WebSocket client disconnected")
	}()

	c.ws.SetReadLimit(maxMsgSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("WebSocket unexpected close")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Action {
		case ActionRun, ActionStop, ActionReset:
			select {
			case h.actions <- msg.Action:
			default:
				log.Warn().Str("action", msg.Action).Msg("Dropping client action, queue full")
			}
		}
	}
}

func (h *Hub) writePump(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Inputs turns client actions into a stream of controller inputs based on
// base.  A reset is delivered once and cleared from the following inputs.
// The returned channel is closed when ctx is done or actions is closed.
func Inputs(ctx context.Context, base step.Input, actions <-chan string) <-chan step.Input {
	out := make(chan step.Input)
	go func() {
		defer close(out)
		in := base
		for {
			var action string
			var ok bool
			select {
			case <-ctx.Done():
				return
			case action, ok = <-actions:
				if !ok {
					return
				}
			}

			in.Reset = false
			switch action {
			case ActionRun:
				in.Run = true
			case ActionStop:
				in.Run = false
			case ActionReset:
				in.Reset = true
			default:
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- in:
			}
		}
	}()
	return out
}
