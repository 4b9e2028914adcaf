package editorlink

import (
	"context"
	"errors"
	"net"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeusync/engine/internal/core/events/bus"
	"github.com/zeusync/engine/internal/core/observability/log"
)

const (
	sendBufferSize = 64
	writeTimeout   = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the editor runs locally and connects from its own origin
	CheckOrigin: func(*http.Request) bool { return true },
}

// streamed lists the bus events forwarded to editors.
var streamed = []string{
	bus.EntityStateUpdated,
	bus.EntityActivated,
	bus.EntityDeactivated,
	bus.MapLoaded,
	bus.MapUnloaded,
}

// Notification is the JSON frame sent for every forwarded event. Entity is
// empty for map events.
type Notification struct {
	Entity string `json:"entity,omitempty"`
	Name   string `json:"name"`
	Map    string `json:"map"`
	Reason string `json:"reason"`
}

// Stats counts link traffic since New. Bus is a snapshot of the bus metrics,
// which the link keeps populated by observing the bus.
type Stats struct {
	Published    uint64
	Forwarded    uint64
	DroppedSlow  uint64
	SlowestDelivery time.Duration
	Bus          bus.EventBusMetrics
}

type client struct {
	conn *websocket.Conn
	send chan Notification
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Link streams entity and map notifications from the event bus to connected
// editors over websocket. Slow editors are disconnected rather than allowed to
// stall the frame that published the event.
type Link struct {
	logger log.Log
	bus    bus.EventBus
	subs   []bus.Subscription

	published   atomic.Uint64
	forwarded   atomic.Uint64
	droppedSlow atomic.Uint64
	slowest     atomic.Int64

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	server *http.Server
	addr   net.Addr
}

func New(eventBus bus.EventBus, logger log.Log) (*Link, error) {
	if logger == nil {
		logger = log.Provide()
	}
	l := &Link{
		logger:  logger.With(log.String("component", "editorlink")),
		bus:     eventBus,
		clients: make(map[*client]struct{}),
	}

	for _, eventType := range streamed {
		sub, err := eventBus.Subscribe(eventType, l.forward)
		if err != nil {
			l.unsubscribe()
			return nil, err
		}
		l.subs = append(l.subs, sub)
	}
	eventBus.AddObserver(l)
	return l, nil
}

// OnPublish implements bus.EventBusObserver.
func (l *Link) OnPublish(string, bus.Event) {}

// OnDelivered implements bus.EventBusObserver. Only streamed event types are
// counted.
func (l *Link) OnDelivered(eventType string, _ int, _ error, duration time.Duration) {
	if !slices.Contains(streamed, eventType) {
		return
	}
	l.published.Add(1)
	for {
		cur := l.slowest.Load()
		if int64(duration) <= cur || l.slowest.CompareAndSwap(cur, int64(duration)) {
			return
		}
	}
}

func (l *Link) Stats() Stats {
	return Stats{
		Published:    l.published.Load(),
		Forwarded:    l.forwarded.Load(),
		DroppedSlow:  l.droppedSlow.Load(),
		SlowestDelivery: time.Duration(l.slowest.Load()),
		Bus:          l.bus.GetMetrics(),
	}
}

// Start listens on addr and serves the websocket endpoint at /ws.
func (l *Link) Start(addr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLinkClosed
	}
	if l.server != nil {
		return ErrLinkAlreadyRunning
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", l)
	l.server = &http.Server{Handler: mux, ReadHeaderTimeout: writeTimeout}
	l.addr = ln.Addr()

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("editor link server stopped", log.Error(err))
		}
	}()
	l.logger.Info("editor link listening", log.String("addr", l.addr.String()))
	return nil
}

// Addr is the bound address after Start, nil before.
func (l *Link) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}

func (l *Link) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// ServeHTTP upgrades the request and registers the editor.
func (l *Link) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan Notification, sendBufferSize)}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = conn.Close()
		return
	}
	l.clients[c] = struct{}{}
	l.mu.Unlock()
	l.logger.Debug("editor connected", log.String("remote", conn.RemoteAddr().String()))

	go l.writeLoop(c)
	l.readLoop(c)
}

// readLoop discards inbound frames and unregisters the client once the
// connection fails.
func (l *Link) readLoop(c *client) {
	defer l.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (l *Link) writeLoop(c *client) {
	defer func() { _ = c.conn.Close() }()
	for n := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(n); err != nil {
			l.logger.Debug("editor write failed", log.Error(err))
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
}

func (l *Link) drop(c *client) {
	l.mu.Lock()
	_, ok := l.clients[c]
	delete(l.clients, c)
	l.mu.Unlock()
	if ok {
		c.close()
		l.logger.Debug("editor disconnected", log.String("remote", c.conn.RemoteAddr().String()))
	}
}

func (l *Link) forward(event bus.Event) error {
	n, ok := notificationFor(event)
	if !ok {
		return nil
	}

	l.mu.Lock()
	var slow []*client
	for c := range l.clients {
		select {
		case c.send <- n:
			l.forwarded.Add(1)
		default:
			slow = append(slow, c)
		}
	}
	l.mu.Unlock()

	l.droppedSlow.Add(uint64(len(slow)))
	for _, c := range slow {
		l.logger.Warn("editor too slow, disconnecting", log.String("remote", c.conn.RemoteAddr().String()))
		l.drop(c)
	}
	return nil
}

func notificationFor(event bus.Event) (Notification, bool) {
	switch data := event.Data().(type) {
	case bus.EntityEvent:
		return Notification{
			Entity: data.EntityID.String(),
			Name:   data.Name,
			Map:    data.MapID.String(),
			Reason: event.Type(),
		}, true
	case bus.MapEvent:
		return Notification{
			Name:   data.Name,
			Map:    data.MapID.String(),
			Reason: event.Type(),
		}, true
	default:
		return Notification{}, false
	}
}

// Close unsubscribes from the bus, disconnects every editor and stops the
// listener if one was started.
func (l *Link) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	clients := l.clients
	l.clients = make(map[*client]struct{})
	server := l.server
	l.mu.Unlock()

	l.unsubscribe()
	for c := range clients {
		c.close()
	}
	if server != nil {
		return server.Shutdown(ctx)
	}
	return nil
}

func (l *Link) unsubscribe() {
	l.bus.RemoveObserver(l)
	for _, sub := range l.subs {
		_ = sub.Cancel()
	}
	l.subs = nil
}
