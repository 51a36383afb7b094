package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	maxMessageSize = 1024
)

// Hub tracks connected keypads and fans tone events out to them. One slow
// client never blocks the others: a client whose queue is full is dropped.
type Hub struct {
	logger zerolog.Logger

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size.
	SendBuf int
	// BroadcastBuf is the hub inbound broadcast queue size.
	BroadcastBuf int
}

func NewHub(logger zerolog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 32
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 128
	}
	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		stopped:    make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Debug().Msg("ws_hub_start")

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug().Msg("ws_hub_stop")
			h.closeAllClients()
			close(h.stopped)
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().Str("source", c.id).Str("remote_addr", c.remoteAddr).Int("clients", n).Msg("ws_client_registered")

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.closeSend()
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.closeSend()
	h.logger.Info().Str("source", c.id).Str("reason", reason).Int("clients", n).Msg("ws_client_disconnected")
}

// BroadcastBytes enqueues a serialized frame for every client. It never
// blocks; the frame is dropped when the hub queue is full.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn().Int("bytes", len(msg)).Msg("ws_broadcast_dropped")
	}
}

// Client is one browser keypad. Its id doubles as the keypad source name.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once

	id         string
	remoteAddr string
	logger     zerolog.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, id, remoteAddr string, logger zerolog.Logger) *Client {
	sendBuf := 32
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		id:         id,
		remoteAddr: remoteAddr,
		logger:     logger.With().Str("source", id).Logger(),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// enqueue queues a frame for this client only. It reports false when the
// client cannot keep up.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

func (c *Client) logExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	if code, text, ok := closeStatus(err); ok {
		c.logger.Debug().Str("pump", pump).Int("code", code).Str("reason", text).Msg("ws_pump_exit")
		return
	}
	c.logger.Debug().Str("pump", pump).Err(err).Msg("ws_pump_exit")
}

// writePump exits on write error or when send is closed.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("write", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("ping", err)
				return
			}
		}
	}
}

// readPump hands every inbound frame to handle. It exits on read error,
// unregisters the client and then calls done.
func (c *Client) readPump(handle func(*Client, []byte), done func(*Client)) {
	defer func() {
		if c.hub != nil {
			c.hub.leave(c)
		}
		done(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.logExit("read", err)
			return
		}
		handle(c, msg)
	}
}
