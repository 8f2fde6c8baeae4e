package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	diag "github.com/coreman2200/funtimes-ledcloud/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledcloud/internal/render"
)

const writeWait = 200 * time.Millisecond

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// client serializes writes; gorilla connections allow one writer at a time.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub fans engine status and diagnostics out to websocket clients.
type Hub struct {
	eng    *render.Engine
	logger zerolog.Logger

	mu          sync.RWMutex
	clients     map[*client]bool
	diagClients map[*client]bool
	lastFrame   uint64
}

func NewHub(eng *render.Engine, logger zerolog.Logger) *Hub {
	return &Hub{
		eng:         eng,
		logger:      logger,
		clients:     map[*client]bool{},
		diagClients: map[*client]bool{},
	}
}

// HandleStatusWS streams the status JSON whenever the frame changes. The
// current status is sent on connect.
func (h *Hub) HandleStatusWS(w http.ResponseWriter, r *http.Request) {
	c := h.accept(w, r, h.clients)
	if c == nil {
		return
	}
	b, _ := json.Marshal(h.eng.Snapshot())
	if err := c.send(b); err != nil {
		h.logger.Debug().Err(err).Msg("write status")
	}
}

// HandleDiagWS streams diagnostics. A DIAG.CONNECTED notice is sent first.
func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	c := h.accept(w, r, h.diagClients)
	if c == nil {
		return
	}
	b, _ := json.Marshal(diag.Diagnostic{
		Time: time.Now(), Severity: diag.Info, Code: "DIAG.CONNECTED", Summary: "Diagnostics stream connected",
	})
	_ = c.send(b)
}

func (h *Hub) accept(w http.ResponseWriter, r *http.Request, set map[*client]bool) *client {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil
	}
	c := &client{conn: conn}
	h.mu.Lock()
	set[c] = true
	n := len(set)
	h.mu.Unlock()
	h.logger.Debug().Str("path", r.URL.Path).Int("clients", n).Msg("websocket connected")

	go func() {
		defer h.drop(set, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return c
}

func (h *Hub) drop(set map[*client]bool, c *client) {
	h.mu.Lock()
	delete(set, c)
	h.mu.Unlock()
	c.conn.Close()
}

// Broadcast sends the status to every stream client if a frame was
// committed since the last call. It runs as a scheduler task.
func (h *Hub) Broadcast(context.Context) error {
	st := h.eng.Snapshot()

	h.mu.Lock()
	if st.Frame == h.lastFrame {
		h.mu.Unlock()
		return nil
	}
	h.lastFrame = st.Frame
	targets := keys(h.clients)
	h.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	for _, c := range targets {
		if err := c.send(b); err != nil {
			h.logger.Debug().Err(err).Msg("write status")
			h.drop(h.clients, c)
		}
	}
	return nil
}

// Push implements diagnostics.Sink.
func (h *Hub) Push(d diag.Diagnostic) {
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	h.mu.RLock()
	targets := keys(h.diagClients)
	h.mu.RUnlock()

	b, _ := json.Marshal(d)
	for _, c := range targets {
		if err := c.send(b); err != nil {
			h.logger.Debug().Err(err).Msg("write diag")
		}
	}
}

func keys(m map[*client]bool) []*client {
	out := make([]*client, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	return out
}
