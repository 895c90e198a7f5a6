package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/pageactions/internal/config"
	"github.com/vango-dev/pageactions/internal/todos"
	"github.com/vango-dev/pageactions/pkg/live"
	"github.com/vango-dev/pageactions/pkg/middleware"
	"github.com/vango-dev/pageactions/pkg/server"
)

func serveCmd(root *rootOptions) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the todos demo page",
		Long: `Serve the todos demo page.

Routes:
  /todos      GET loads the list, POST ?action.<name>[=<uid>] runs an action
  /live       WebSocket invalidation notices (live.enabled)
  /metrics    Prometheus metrics (metrics.enabled)
  /healthz    liveness

Examples:
  pageactions serve
  pageactions serve --port=8080
  PAGEACTIONS_ADDR=0.0.0.0:8080 pageactions serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			slog.SetDefault(cfg.Logger(os.Stderr))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.Address())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			success(out, "Serving %s%s", cfg.URL(), todos.Path)
			if cfg.Live.Enabled {
				info(out, "live:    %s", cfg.Live.Path)
			}
			if cfg.Metrics.Enabled {
				info(out, "metrics: %s", cfg.Metrics.Path)
			}
			return runServe(ctx, cfg, ln, prometheus.NewRegistry())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")

	return cmd
}

// app is the assembled demo server.
type app struct {
	server *server.Server
	hub    *live.Hub
	repo   *todos.Repository
}

func newApp(cfg *config.Config, reg *prometheus.Registry) *app {
	srv := server.New(&server.Config{
		Address:         cfg.Address(),
		ShutdownTimeout: cfg.ShutdownTimeout(),
	})
	r := srv.Router()

	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := middleware.NewMetrics(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(reg),
		)
		r.Use(m.Middleware)
	}
	if cfg.Tracing.Enabled {
		r.Use(middleware.NewTracing(middleware.WithTracerName(cfg.Tracing.TracerName)).Middleware)
	}

	a := &app{server: srv, repo: todos.NewRepository()}

	pageOpts := []server.PageOption{server.WithMaxFormSize(cfg.Server.MaxFormSize)}
	if cfg.Live.Enabled {
		a.hub = live.NewHub(live.WithPingInterval(cfg.PingInterval()))
		r.Handle(cfg.Live.Path, a.hub)
		pageOpts = append(pageOpts, server.WithBroadcaster(a.hub))
	}
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv.Mount(todos.Path, todos.NewPage(a.repo, pageOpts...))
	return a
}

func runServe(ctx context.Context, cfg *config.Config, ln net.Listener, reg *prometheus.Registry) error {
	a := newApp(cfg, reg)
	if a.hub != nil {
		defer a.hub.Close()
	}
	return a.server.Serve(ctx, ln)
}
