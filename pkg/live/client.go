package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/pageactions/pkg/actions"
	"github.com/vango-dev/pageactions/pkg/protocol"
)

// URL returns the WebSocket URL for watching pagePath on a hub mounted at
// hubPath of origin, e.g. URL("http://localhost:3000", "/live", "/todos").
func URL(origin, hubPath, pagePath string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("live: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + hubPath
	u.RawQuery = url.Values{PathParam: {pagePath}}.Encode()
	return u.String(), nil
}

// SubscribeOption configures Subscribe.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	dialer *websocket.Dialer
	logger *slog.Logger
	ready  func()
}

// WithDialer sets the dialer. Default: websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) SubscribeOption {
	return func(c *subscribeConfig) { c.dialer = d }
}

// WithSubscribeLogger sets the logger.
func WithSubscribeLogger(l *slog.Logger) SubscribeOption {
	return func(c *subscribeConfig) { c.logger = l }
}

// WithReady sets a function called once the connection is established.
func WithReady(fn func()) SubscribeOption {
	return func(c *subscribeConfig) { c.ready = fn }
}

// Subscribe connects to wsURL and calls inv for every invalidate notice
// until ctx is done or the server closes the connection. A failed reload is
// logged and the loop goes on. It returns nil on cancellation or a normal
// close.
func Subscribe(ctx context.Context, wsURL string, inv actions.Invalidator, opts ...SubscribeOption) error {
	cfg := subscribeConfig{
		dialer: websocket.DefaultDialer,
		logger: slog.Default().With("component", "live"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	conn, _, err := cfg.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("live: dial %s: %w", wsURL, err)
	}
	conn.SetReadLimit(protocol.MaxControlSize)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		conn.Close()
	}()

	if cfg.ready != nil {
		cfg.ready()
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("live: closed: %w", err)
			}
			return fmt.Errorf("live: read: %w", err)
		}

		ctl, err := protocol.DecodeControl(msg)
		if err != nil {
			cfg.logger.Warn("ignoring bad message", "error", err)
			continue
		}
		if ctl.Type != protocol.ControlInvalidate {
			continue
		}
		if err := inv.Invalidate(ctx); err != nil {
			cfg.logger.Warn("reload after notice failed", "path", ctl.Path, "error", err)
		}
	}
}
