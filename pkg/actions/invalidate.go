package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vango-dev/pageactions/internal/errors"
	"github.com/vango-dev/pageactions/pkg/protocol"
	"github.com/vango-dev/pageactions/pkg/store"
)

// Invalidator re-runs the current page's data loading.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func(ctx context.Context) error

// Invalidate implements Invalidator.
func (fn InvalidatorFunc) Invalidate(ctx context.Context) error { return fn(ctx) }

// Navigator follows a redirect returned by an action endpoint.
type Navigator interface {
	Navigate(ctx context.Context, location string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, location string) error

// Navigate implements Navigator.
func (fn NavigatorFunc) Navigate(ctx context.Context, location string) error { return fn(ctx, location) }

// HTTPInvalidator reloads page data with GET <url> and stores the decoded
// JSON as the page's Data, keeping recorded errors. When reloads overlap,
// a reload that finishes after a later-started one was applied is dropped.
type HTTPInvalidator[T any] struct {
	url    string
	data   *store.Store[store.PageState[T]]
	client *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	issued  uint64
	applied uint64
}

// InvalidatorOption configures an HTTPInvalidator.
type InvalidatorOption func(*invalidatorConfig)

type invalidatorConfig struct {
	client *http.Client
	logger *slog.Logger
}

// WithInvalidatorClient sets the HTTP client. Default: http.DefaultClient.
func WithInvalidatorClient(c *http.Client) InvalidatorOption {
	return func(cfg *invalidatorConfig) { cfg.client = c }
}

// WithInvalidatorLogger sets the logger.
func WithInvalidatorLogger(l *slog.Logger) InvalidatorOption {
	return func(cfg *invalidatorConfig) { cfg.logger = l }
}

// NewHTTPInvalidator creates an invalidator loading url into data.
func NewHTTPInvalidator[T any](url string, data *store.Store[store.PageState[T]], opts ...InvalidatorOption) *HTTPInvalidator[T] {
	cfg := invalidatorConfig{
		client: http.DefaultClient,
		logger: slog.Default().With("component", "actions"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.client == nil {
		cfg.client = http.DefaultClient
	}
	return &HTTPInvalidator[T]{
		url:    url,
		data:   data,
		client: cfg.client,
		logger: cfg.logger,
	}
}

// Invalidate implements Invalidator.
func (inv *HTTPInvalidator[T]) Invalidate(ctx context.Context) error {
	inv.mu.Lock()
	inv.issued++
	seq := inv.issued
	inv.mu.Unlock()

	data, err := inv.load(ctx)
	if err != nil {
		return err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if seq < inv.applied {
		inv.logger.Debug("dropping stale reload", "url", inv.url, "seq", seq)
		return nil
	}
	inv.applied = seq
	inv.data.Update(func(s store.PageState[T]) store.PageState[T] {
		return s.WithData(data)
	})
	return nil
}

func (inv *HTTPInvalidator[T]) load(ctx context.Context) (T, error) {
	var zero T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, inv.url, nil)
	if err != nil {
		return zero, errors.New("PA110").WithDetail("GET " + inv.url).Wrap(err)
	}
	req.Header.Set(protocol.HeaderAccept, protocol.ContentTypeJSON)

	resp, err := inv.client.Do(req)
	if err != nil {
		return zero, errors.New("PA110").WithDetail("GET " + inv.url).Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, protocol.MaxEnvelopeSize))
		return zero, errors.New("PA111").WithStatus(resp.StatusCode).WithDetail("GET " + inv.url)
	}

	var data T
	dec := json.NewDecoder(io.LimitReader(resp.Body, protocol.MaxEnvelopeSize))
	if err := dec.Decode(&data); err != nil {
		return zero, errors.New("PA110").WithDetail("GET " + inv.url).Wrap(fmt.Errorf("decode page data: %w", err))
	}
	return data, nil
}
