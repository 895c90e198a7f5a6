package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pageactions/internal/errors"
	"github.com/vango-dev/pageactions/pkg/actions"
	"github.com/vango-dev/pageactions/pkg/middleware"
	"github.com/vango-dev/pageactions/pkg/store"
)

func submitCmd(root *rootOptions) *cobra.Command {
	var (
		fields  []string
		headers []string
		reload  bool
		noLoad  bool
	)

	cmd := &cobra.Command{
		Use:   "submit <page-url> <action> [key]",
		Short: "Submit one action and print the envelope",
		Long: `Submit an action to a page and print the JSON envelope it answers with.

The page URL is the page's full URL; the action path is derived from it.
With --reload (the default from client.reload) the page data is fetched
again after a successful submission and printed too.

Examples:
  pageactions submit http://localhost:3000/todos create --field text=milk
  pageactions submit http://localhost:3000/todos toggle 3f2a --field done=on`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			values, err := parsePairs(fields)
			if err != nil {
				return err
			}
			hdrs, err := parsePairs(headers)
			if err != nil {
				return err
			}
			for k, v := range cfg.Client.Headers {
				if !hdrs.Has(k) {
					hdrs.Set(k, v)
				}
			}

			key := ""
			if len(args) == 3 {
				key = args[2]
			}
			doReload := cfg.Client.Reload
			if cmd.Flags().Changed("reload") {
				doReload = reload
			}
			if noLoad {
				doReload = false
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ClientTimeout())
			defer cancel()

			var observers []actions.Observer
			if cfg.Tracing.Enabled {
				observers = append(observers, middleware.NewTracing(middleware.WithTracerName(cfg.Tracing.TracerName)))
			}

			return runSubmit(ctx, cmd.OutOrStdout(), submitRequest{
				pageURL:   args[0],
				action:    args[1],
				key:       key,
				fields:    values,
				headers:   hdrs,
				reload:    doReload,
				client:    &http.Client{Timeout: cfg.ClientTimeout()},
				logger:    cfg.Logger(cmd.ErrOrStderr()),
				observers: observers,
			})
		},
	}

	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Form field as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&headers, "header", nil, "Request header as name=value (repeatable)")
	cmd.Flags().BoolVar(&reload, "reload", true, "Reload the page data after a successful submission")
	cmd.Flags().BoolVar(&noLoad, "no-reload", false, "Do not reload the page data")

	return cmd
}

type submitRequest struct {
	pageURL string
	action  string
	key     string
	fields  url.Values
	headers url.Values
	reload  bool
	client  *http.Client
	logger  *slog.Logger

	observers []actions.Observer
}

// runSubmit submits one action. Page data is kept as a generic JSON object.
func runSubmit(ctx context.Context, out io.Writer, req submitRequest) error {
	u, err := url.Parse(req.pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid page URL %q", req.pageURL)
	}
	origin := u.Scheme + "://" + u.Host
	basePath := u.Path
	if basePath == "" {
		basePath = "/"
	}

	var failure *actions.ErrorEvent
	opts := []actions.Option{
		actions.WithOrigin(origin),
		actions.WithClient(req.client),
		actions.WithLogger(req.logger),
		actions.WithOnError(func(ev actions.ErrorEvent) { failure = &ev }),
	}
	for k, vals := range req.headers {
		for _, v := range vals {
			opts = append(opts, actions.WithHeader(k, v))
		}
	}
	if req.reload {
		opts = append(opts, actions.WithReload())
	}
	for _, o := range req.observers {
		opts = append(opts, actions.WithObserver(o))
	}

	data := store.NewPage(map[string]any{})
	f, err := actions.NewFactory(basePath, data, actions.Handlers[map[string]any]{req.action: nil}, opts...)
	if err != nil {
		return err
	}
	a := f.MustAction(req.action)
	if req.key != "" {
		a = a.WithKey(req.key)
	}

	info(out, "POST %s%s", origin, a.Path())
	outcome, err := a.Submit(ctx, req.fields)
	if err != nil {
		if failure != nil && failure.Response != nil {
			warn(out, "HTTP %d", failure.Response.StatusCode)
		}
		return err
	}

	if outcome.Response == nil || outcome.Response.Envelope == nil {
		success(out, "no response")
		return nil
	}
	env := outcome.Response.Envelope
	if env.HasErrors() {
		warn(out, "validation errors")
	} else {
		success(out, "HTTP %d", outcome.Response.StatusCode)
	}
	if err := printJSON(out, env); err != nil {
		return err
	}
	if outcome.Location != "" {
		info(out, "location: %s", outcome.Location)
	}

	if outcome.ReloadErr != nil {
		warn(out, "reload failed: %v", outcome.ReloadErr)
	} else if req.reload && !env.HasErrors() {
		info(out, "page data:")
		return printJSON(out, data.Get().Data)
	}
	return nil
}

// parsePairs parses name=value arguments.
func parsePairs(pairs []string) (url.Values, error) {
	values := url.Values{}
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, errors.New("PA401").WithDetail(fmt.Sprintf("%q is not name=value", p))
		}
		values.Add(name, value)
	}
	return values, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
