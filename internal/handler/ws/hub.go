package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	xlogger "MarketPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	DefaultInterval = 5 * time.Second

	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 4096
	sendBuffer   = 16
)

// Updater produces the market-update payload.
type Updater interface {
	GetMarketUpdate(ctx context.Context) models.MarketUpdate
}

// clientMessage is a frame sent by a subscriber. Assets holds ids or symbols.
type clientMessage struct {
	Type   string        `json:"type"`
	Assets []interface{} `json:"assets"`
}

type ackMessage struct {
	Type   string   `json:"type"`
	Assets []string `json:"assets"`
}

type client struct {
	conn *websocket.Conn

	sendMu sync.Mutex
	send   chan []byte
	closed bool

	mu      sync.Mutex
	ids     map[int64]struct{}
	symbols map[string]struct{}
}

// wants reports whether the view passes the client's subscription.
// No subscription means everything.
func (c *client) wants(v models.LatestView) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ids) == 0 && len(c.symbols) == 0 {
		return true
	}
	if _, ok := c.ids[v.Asset.ID]; ok {
		return true
	}
	_, ok := c.symbols[v.Asset.Symbol]
	return ok
}

func (c *client) filtered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids) > 0 || len(c.symbols) > 0
}

// subscribe replaces the filter. Numbers are asset ids, strings are symbols.
func (c *client) subscribe(assets []interface{}) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[int64]struct{})
	c.symbols = make(map[string]struct{})
	acked := make([]string, 0, len(assets))
	for _, a := range assets {
		switch v := a.(type) {
		case float64:
			id := int64(v)
			if id >= 1 && float64(id) == v {
				c.ids[id] = struct{}{}
				acked = append(acked, strconv.FormatInt(id, 10))
			}
		case string:
			sym := strings.ToUpper(strings.TrimSpace(v))
			if sym != "" {
				c.symbols[sym] = struct{}{}
				acked = append(acked, sym)
			}
		}
	}
	return acked
}

// trySend queues b without blocking. It reports false when the buffer is
// full or the client is gone.
func (c *client) trySend(b []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub pushes a market-update frame to every websocket subscriber on a fixed
// interval.
type Hub struct {
	updater  Updater
	logger   *xlogger.Logger
	interval time.Duration
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

type Option func(*Hub)

func WithInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.interval = d
		}
	}
}

// WithAllowedOrigins restricts upgrades to the given origins. "*" allows any.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Hub) {
		allowed := make(map[string]struct{}, len(origins))
		for _, o := range origins {
			allowed[o] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			if _, wildcard := allowed["*"]; wildcard {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
}

func WithLogger(l *xlogger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHub(updater Updater, opts ...Option) *Hub {
	h := &Hub{
		updater:  updater,
		logger:   xlogger.Nop(),
		interval: DefaultInterval,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
		clients:  make(map[*client]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Start runs the broadcast loop until ctx ends or Stop is called.
func (h *Hub) Start(ctx context.Context) {
	h.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		h.mu.Lock()
		h.cancel = cancel
		h.mu.Unlock()
		go h.run(ctx)
	})
}

// Stop ends the broadcast loop and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		cancel := h.cancel
		h.mu.Unlock()
		if cancel != nil {
			cancel()
			<-h.done
		}

		h.mu.Lock()
		for c := range h.clients {
			delete(h.clients, c)
			c.close()
		}
		h.mu.Unlock()
	})
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.Clients() == 0 {
				continue
			}
			h.Broadcast(h.updater.GetMarketUpdate(ctx))
		}
	}
}

// Broadcast sends upd to every client, filtered by its subscription.
// A client whose send buffer is full is disconnected.
func (h *Hub) Broadcast(upd models.MarketUpdate) {
	full, err := json.Marshal(upd)
	if err != nil {
		h.logger.Error("ws: encode market update", xlogger.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		payload := full
		if c.filtered() {
			if payload, err = json.Marshal(filter(upd, c)); err != nil {
				continue
			}
		}
		if !c.trySend(payload) {
			h.logger.Warn("ws: slow subscriber dropped", xlogger.String("remote", c.conn.RemoteAddr().String()))
			h.remove(c)
		}
	}
}

func filter(upd models.MarketUpdate, c *client) models.MarketUpdate {
	out := models.MarketUpdate{Type: upd.Type, Data: make([]models.LatestView, 0, len(upd.Data))}
	for _, v := range upd.Data {
		if c.wants(v) {
			out.Data = append(out.Data, v)
		}
	}
	return out
}

// Serve upgrades the request and blocks until the subscriber disconnects.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Debug("ws: upgrade failed", xlogger.Error(err))
		return nil
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("ws: subscriber connected", xlogger.String("remote", conn.RemoteAddr().String()))

	go h.writePump(cl)

	// first frame so clients need not wait a full interval
	if b, err := json.Marshal(h.updater.GetMarketUpdate(c.Request().Context())); err == nil {
		cl.trySend(b)
	}

	h.readPump(cl)
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, b, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(b, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "subscribe":
			acked := c.subscribe(msg.Assets)
			h.reply(c, ackMessage{Type: "subscribed", Assets: acked})
		case "unsubscribe":
			c.subscribe(nil)
			h.reply(c, ackMessage{Type: "unsubscribed", Assets: []string{}})
		}
	}
}

func (h *Hub) reply(c *client, msg ackMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(b)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
