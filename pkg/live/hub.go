package live

import (
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/pageactions/pkg/protocol"
	"github.com/vango-dev/pageactions/pkg/routepath"
)

// PathParam is the query parameter naming the page a client watches.
const PathParam = "path"

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
	sendBuffer          = 8
)

// Hub tracks WebSocket subscribers per page path.
type Hub struct {
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithCheckOrigin sets the upgrade origin check. Default: SameOriginCheck.
func WithCheckOrigin(fn func(*http.Request) bool) HubOption {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

// WithPingInterval sets how often idle connections are pinged.
// Default: 30 seconds.
func WithPingInterval(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithHubLogger sets the logger. Default: slog.Default().
func WithHubLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l.With("component", "live")
		}
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     SameOriginCheck,
		},
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
		logger:       slog.Default().With("component", "live"),
		subs:         make(map[string]map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SameOriginCheck accepts upgrades without an Origin header or whose
// Origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || r.Host == "" {
		return false
	}
	return u.Host == r.Host
}

// ServeHTTP upgrades the request and keeps the connection subscribed to the
// page named by the path query parameter until either side closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path, _, err := routepath.CanonicalizePath(r.URL.Query().Get(PathParam))
	if err != nil || r.URL.Query().Get(PathParam) == "" {
		http.Error(w, "missing or invalid path", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	if !h.add(path, sub) {
		conn.Close()
		return
	}
	h.logger.Debug("subscriber joined", "path", path)

	go h.writeLoop(sub)
	h.readLoop(sub)

	h.remove(path, sub)
	sub.close()
	h.logger.Debug("subscriber left", "path", path)
}

// Broadcast sends an invalidate notice to every subscriber of path.
// Subscribers whose queue is full already have a notice pending and are
// skipped.
func (h *Hub) Broadcast(path string) {
	canonical, _, err := routepath.CanonicalizePath(path)
	if err != nil {
		h.logger.Warn("broadcast to invalid path", "path", path, "error", err)
		return
	}
	msg, err := protocol.EncodeControl(protocol.Invalidate(canonical))
	if err != nil {
		h.logger.Error("encode invalidate", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[canonical] {
		select {
		case sub.send <- msg:
		default:
		}
	}
}

// Subscribers returns the number of connections watching path.
func (h *Hub) Subscribers(path string) int {
	canonical, _, err := routepath.CanonicalizePath(path)
	if err != nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[canonical])
}

// Close disconnects every subscriber. Later upgrades are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*subscriber
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		sub.close()
	}
}

func (h *Hub) add(path string, sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.subs[path]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[path] = set
	}
	set[sub] = struct{}{}
	return true
}

func (h *Hub) remove(path string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[path], sub)
	if len(h.subs[path]) == 0 {
		delete(h.subs, path)
	}
}

// readLoop discards client messages; it only notices pongs and close.
func (h *Hub) readLoop(sub *subscriber) {
	wait := 2 * h.pingInterval
	sub.conn.SetReadLimit(protocol.MaxControlSize)
	sub.conn.SetReadDeadline(time.Now().Add(wait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Warn("read error", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case msg := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("write failed", "error", err)
				return
			}

		case <-ticker.C:
			if err := sub.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				return
			}

		case <-sub.done:
			sub.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.writeTimeout),
			)
			return
		}
	}
}
