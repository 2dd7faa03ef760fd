package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"premarketdash/internal/markethours"
	"premarketdash/internal/marketdata"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Hub tracks websocket subscribers and fans broadcast frames out to them.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu      sync.RWMutex
	clients map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[*Client]bool),
	}
}

// Run owns the client set. Exits when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("[ws] client connected (%d total)", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("[ws] client disconnected (%d total)", n)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow consumer, drop the frame
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues a frame for all clients without blocking the caller.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("[ws] broadcast queue full, dropping frame")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one websocket subscriber.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	client := &Client{hub: s.hub, conn: conn, send: make(chan []byte, 256)}
	s.hub.register <- client
	if s.deps.Metrics != nil {
		s.deps.Metrics.WSClients.Set(float64(s.hub.ClientCount() + 1))
	}

	go client.writePump()
	go client.readPump()
}

// streamFrame is one pushed dashboard snapshot.
type streamFrame struct {
	Type    string                     `json:"type"`
	At      time.Time                  `json:"at"`
	Market  markethours.Status         `json:"market"`
	Scan    marketdata.ScanResult      `json:"scan"`
	Indices []marketdata.IndexSnapshot `json:"indices,omitempty"`
}

// StartScanBroadcast pushes a scan snapshot of the focus symbols to all
// websocket clients every interval. Frames are skipped while nobody is
// connected or when the upstream fetch fails.
func (s *Server) StartScanBroadcast(ctx context.Context, interval time.Duration) {
	go s.hub.Run(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			if s.deps.Metrics != nil {
				s.deps.Metrics.WSClients.Set(float64(s.hub.ClientCount()))
			}
			if s.hub.ClientCount() == 0 || len(s.deps.FocusSymbols) == 0 {
				continue
			}

			result, err := s.scan(ctx, s.deps.FocusSymbols)
			if err != nil {
				log.Printf("[ws] scan broadcast skipped: %v", err)
				continue
			}
			frame := streamFrame{
				Type:   "scan",
				At:     time.Now(),
				Market: markethours.StatusAt(time.Now()),
				Scan:   result,
			}
			if indices, _, err := s.deps.Fetcher.Indices(ctx); err == nil {
				frame.Indices = indices
			}

			payload, err := json.Marshal(frame)
			if err != nil {
				log.Printf("[ws] frame encode failed: %v", err)
				continue
			}
			s.hub.Broadcast(payload)
		}
	}()
}
