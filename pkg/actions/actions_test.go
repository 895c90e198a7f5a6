package actions_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/pageactions/internal/errors"
	"github.com/vango-dev/pageactions/pkg/actions"
	"github.com/vango-dev/pageactions/pkg/protocol"
	"github.com/vango-dev/pageactions/pkg/store"
	"github.com/vango-dev/pageactions/pkg/vtest"
)

type page struct {
	Items []string `json:"items"`
	Value string   `json:"value"`
}

func mergePage(p page, result map[string]any) page {
	if item, ok := result["item"].(string); ok {
		p.Items = append(slices.Clone(p.Items), item)
	}
	if v, ok := result["value"].(string); ok {
		p.Value = v
	}
	return p
}

func newFactory(t *testing.T, ep *vtest.Endpoint, handlers actions.Handlers[page], opts ...actions.Option) *actions.Factory[page] {
	t.Helper()
	data := store.NewPage(page{})
	opts = append([]actions.Option{
		actions.WithOrigin(ep.URL),
		actions.WithMerge(mergePage),
		actions.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	}, opts...)
	f, err := actions.NewFactory("/todos", data, handlers, opts...)
	if err != nil {
		t.Fatalf("NewFactory() error = %v", err)
	}
	return f
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestActionPaths(t *testing.T) {
	f, err := actions.NewFactory("/todos", store.NewPage(page{}), actions.Handlers[page]{
		"create": nil,
		"toggle": nil,
	})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"create", "toggle"}, f.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	toggle := f.MustAction("toggle")
	if toggle.Path() != "/todos?action.toggle" {
		t.Errorf("Path() = %q", toggle.Path())
	}

	keyed := toggle.WithKey("abc")
	if keyed.Path() != "/todos?action.toggle=abc" {
		t.Errorf("keyed Path() = %q, want /todos?action.toggle=abc", keyed.Path())
	}
	if keyed.Key() != "abc" || keyed.ID() != "toggle=abc" {
		t.Errorf("keyed Key()=%q ID()=%q", keyed.Key(), keyed.ID())
	}

	// The original action is untouched.
	if toggle.Path() != "/todos?action.toggle" || toggle.Key() != "" {
		t.Errorf("WithKey mutated the original: %q %q", toggle.Path(), toggle.Key())
	}
	if keyed == toggle {
		t.Error("WithKey returned the receiver")
	}

	rekeyed := keyed.WithKey("def")
	if rekeyed.Path() != "/todos?action.toggle=def" {
		t.Errorf("rekeyed Path() = %q", rekeyed.Path())
	}

	if _, ok := f.Action("missing"); ok {
		t.Error("Action(missing) should not exist")
	}
	if len(f.Actions()) != 2 {
		t.Errorf("len(Actions()) = %d", len(f.Actions()))
	}
}

func TestMustActionPanics(t *testing.T) {
	f, _ := actions.NewFactory("/todos", store.NewPage(page{}), actions.Handlers[page]{"create": nil})
	defer func() {
		if recover() == nil {
			t.Error("MustAction(unknown) should panic")
		}
	}()
	f.MustAction("unknown")
}

func TestNewFactoryValidation(t *testing.T) {
	data := store.NewPage(page{})
	tests := []struct {
		name     string
		base     string
		data     *store.Store[store.PageState[page]]
		handlers actions.Handlers[page]
		opts     []actions.Option
	}{
		{"relative base", "todos", data, nil, nil},
		{"base with query", "/todos?x=1", data, nil, nil},
		{"nil store", "/todos", nil, nil, nil},
		{"empty name", "/todos", data, actions.Handlers[page]{"": nil}, nil},
		{"name with equals", "/todos", data, actions.Handlers[page]{"a=b": nil}, nil},
		{"bad origin", "/todos", data, nil, []actions.Option{actions.WithOrigin("localhost")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := actions.NewFactory(tt.base, tt.data, tt.handlers, tt.opts...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSubmitPostsForm(t *testing.T) {
	ep := vtest.NewEndpoint(t, func(vtest.Request) vtest.Reply { return vtest.Reply{} })
	f := newFactory(t, ep, actions.Handlers[page]{"toggle": nil}, actions.WithHeader("X-Test", "1"))

	fields := url.Values{"done": {"on"}}
	out, err := f.MustAction("toggle").WithKey("abc").Submit(context.Background(), fields)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !out.Applied || out.Superseded || out.Seq != 1 {
		t.Errorf("outcome = %+v", out)
	}

	reqs := ep.Requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1", len(reqs))
	}
	r := reqs[0]
	if r.Method != http.MethodPost || r.Path != "/todos" || r.RawQuery != "action.toggle=abc" {
		t.Errorf("request = %s %s?%s", r.Method, r.Path, r.RawQuery)
	}
	if got := r.Header.Get("Accept"); got != protocol.ContentTypeJSON {
		t.Errorf("Accept = %q", got)
	}
	if got := r.Header.Get("Content-Type"); got != protocol.ContentTypeForm {
		t.Errorf("Content-Type = %q", got)
	}
	if r.Header.Get("X-Test") != "1" {
		t.Error("custom header not sent")
	}
	if r.Form.Get("done") != "on" {
		t.Errorf("form = %v", r.Form)
	}
}

func TestSubmitMergesResult(t *testing.T) {
	ep := vtest.NewEndpoint(t, func(r vtest.Request) vtest.Reply {
		return vtest.Result(map[string]any{"item": r.Form.Get("text")})
	})
	f := newFactory(t, ep, actions.Handlers[page]{"create": nil})
	rec := vtest.Record(t, f.Data())

	if _, err := f.MustAction("create").Submit(context.Background(), url.Values{"text": {"milk"}}); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"milk"}, f.Data().Get().Data.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if rec.Len() != 2 {
		t.Errorf("store delivered %d values, want 2 (initial + one update)", rec.Len())
	}
}

func TestValidationErrorsReplacedAndCleared(t *testing.T) {
	var mu sync.Mutex
	replies := []vtest.Reply{
		vtest.Errors(protocol.Errors{"text": "required"}),
		vtest.Errors(protocol.Errors{"text": "too long"}),
		vtest.Result(map[string]any{"item": "ok"}),
	}
	ep := vtest.NewEndpoint(t, func(vtest.Request) vtest.Reply {
		mu.Lock()
		defer mu.Unlock()
		r := replies[0]
		replies = replies[1:]
		return r
	})
	f := newFactory(t, ep, actions.Handlers[page]{"create": nil, "edit": nil})
	create := f.MustAction("create")

	// Errors recorded for another instance must survive.
	f.Data().Update(func(s store.PageState[page]) store.PageState[page] {
		return s.WithErrors("edit=1", protocol.Errors{"text": "locked"})
	})

	ctx := context.Background()
	if _, err := create.Submit(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(protocol.Errors{"text": "required"}, create.Errors()); diff != "" {
		t.Errorf("errors after first submit (-want +got):\n%s", diff)
	}

	if _, err := create.Submit(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(protocol.Errors{"text": "too long"}, create.Errors()); diff != "" {
		t.Errorf("errors were not replaced (-want +got):\n%s", diff)
	}

	if _, err := create.Submit(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if create.Errors() != nil {
		t.Errorf("errors = %v, want cleared after a successful response", create.Errors())
	}
	if f.MustAction("edit").WithKey("1").Errors() == nil {
		t.Error("errors of another instance were cleared")
	}
}

func TestLatestSubmissionWins(t *testing.T) {
	gate := make(chan struct{})
	ep := vtest.NewEndpoint(t, func(r vtest.Request) vtest.Reply {
		v := r.Form.Get("v")
		reply := vtest.Result(map[string]any{"value": v})
		if v == "first" {
			reply.Wait = gate
		}
		return reply
	})
	f := newFactory(t, ep, actions.Handlers[page]{"set": nil})
	ctx := context.Background()

	type result struct {
		out *actions.Outcome
		err error
	}
	firstDone := make(chan result, 1)
	go func() {
		out, err := f.MustAction("set").WithKey("abc").Submit(ctx, url.Values{"v": {"first"}})
		firstDone <- result{out, err}
	}()
	waitFor(t, func() bool { return len(ep.Requests()) == 1 })

	// A separately derived action value addresses the same instance.
	second, err := f.MustAction("set").WithKey("abc").Submit(ctx, url.Values{"v": {"second"}})
	if err != nil {
		t.Fatal(err)
	}
	if !second.Applied || second.Seq != 2 {
		t.Errorf("second outcome = %+v", second)
	}
	if got := f.Data().Get().Data.Value; got != "second" {
		t.Fatalf("value after second = %q", got)
	}

	close(gate)
	first := <-firstDone
	if first.err != nil {
		t.Fatal(first.err)
	}
	if !first.out.Superseded || first.out.Applied || first.out.Seq != 1 {
		t.Errorf("first outcome = %+v, want superseded", first.out)
	}
	if got := f.Data().Get().Data.Value; got != "second" {
		t.Errorf("final value = %q, want second", got)
	}
}

func TestDifferentKeysDoNotSupersede(t *testing.T) {
	gate := make(chan struct{})
	ep := vtest.NewEndpoint(t, func(r vtest.Request) vtest.Reply {
		reply := vtest.Result(map[string]any{"item": r.Query.Get("action.add")})
		if r.Query.Get("action.add") == "a" {
			reply.Wait = gate
		}
		return reply
	})
	f := newFactory(t, ep, actions.Handlers[page]{"add": nil})
	ctx := context.Background()

	done := make(chan *actions.Outcome, 1)
	go func() {
		out, _ := f.MustAction("add").WithKey("a").Submit(ctx, nil)
		done <- out
	}()
	waitFor(t, func() bool { return len(ep.Requests()) == 1 })

	if _, err := f.MustAction("add").WithKey("b").Submit(ctx, nil); err != nil {
		t.Fatal(err)
	}
	close(gate)
	if out := <-done; !out.Applied {
		t.Errorf("outcome for key a = %+v, want applied", out)
	}

	items := slices.Clone(f.Data().Get().Data.Items)
	slices.Sort(items)
	if diff := cmp.Diff([]string{"a", "b"}, items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestNonOKResponseWithCallback(t *testing.T) {
	ep := vtest.NewEndpoint(t, func(vtest.Request) vtest.Reply { return vtest.Status(http.StatusInternalServerError) })

	var events []actions.ErrorEvent
	f := newFactory(t, ep, actions.Handlers[page]{"create": nil},
		actions.WithOnError(func(ev actions.ErrorEvent) { events = append(events, ev) }))
	rec := vtest.Record(t, f.Data())

	out, err := f.MustAction("create").Submit(context.Background(), nil)
	if !errors.HasCode(err, "PA102") {
		t.Fatalf("error = %v, want PA102", err)
	}
	if out.Applied {
		t.Error("non-OK response must not be applied")
	}
	if len(events) != 1 {
		t.Fatalf("got %d error events, want 1", len(events))
	}
	ev := events[0]
	if ev.Error != nil || ev.Response == nil || ev.Response.StatusCode != 500 {
		t.Errorf("event = %+v, want response set and error nil", ev)
	}
	if ev.Action != "create" || ev.Path != "/todos?action.create" {
		t.Errorf("event action/path = %q %q", ev.Action, ev.Path)
	}
	if rec.Len() != 1 {
		t.Errorf("store changed %d times, want untouched", rec.Len()-1)
	}
}

func TestNonOKResponseIsLoggedWithoutCallback(t *testing.T) {
	ep := vtest.NewEndpoint(t, func(vtest.Request) vtest.Reply { return vtest.Status(http.StatusBadGateway) })

	var buf bytes.Buffer
	f := newFactory(t, ep, actions.Handlers[page]{"create": nil},
		actions.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	before := f.Data().Get()

	if _, err := f.MustAction("create").Submit(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}

	log := buf.String()
	if !strings.Contains(log, "action failed") || !strings.Contains(log, "status=502") {
		t.Errorf("log = %q, want the failure logged", log)
	}
	if diff := cmp.Diff(before, f.Data().Get()); diff != "" {
		t.Errorf("store changed (-before +after):\n%s", diff)
	}
}

func TestTransportFailure(t *testing.T) {
	ep := vtest.NewEndpoint(t, nil)
	origin := ep.URL
	ep.Close()

	var events []actions.ErrorEvent
	f, err := actions.NewFactory("/todos", store.NewPage(page{}), actions.Handlers[page]{"create": nil},
		actions.WithOrigin(origin),
		actions.WithOnError(func(ev actions.ErrorEvent) { events = append(events, ev) }))
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.MustAction("create").Submit(context.Background(), nil)
	if !errors.HasCode(err, "PA101") {
		t.Fatalf("error = %v, want PA101", err)
	}
	if len(events) != 1 || events[0].Error == nil || events[0].Response != nil {
		t.Errorf("events = %+v, want error set and response nil", events)
	}
}

func TestInvalidEnvelope(t *testing.T) {
	ep := vtest.NewEndpoint(t, func(vtest.Request) vtest.Reply { return vtest.Reply{Body: "<html>oops</html>"} })

	var events []actions.ErrorEvent
	f := newFactory(t, ep, actions.Handlers[page]{"create": nil},
		actions.WithOnError(func(ev actions.ErrorEvent) { events = append(events, ev) }))

	_, err := f.MustAction("create").Submit(context.Background(), nil)
	if !errors.HasCode(err, "PA103") {
		t.Fatalf("error = %v, want PA103", err)
	}
	if len(events) != 1 || events[0].Error == nil || events[0].Response == nil {
		t.Errorf("events = %+v", events)
	}
}

func TestHandlerOptimisticUpdate(t *testing.T) {
	gate := make(chan struct{})
	ep := vtest.NewEndpoint(t, func(vtest.Request) vtest.Reply { return vtest.Reply{Wait: gate} })

	f := newFactory(t, ep, actions.Handlers[page]{
		"set": func(ctx context.Context, s *actions.Submission[page]) (*actions.Response, error) {
			s.Data.Update(func(p store.PageState[page]) store.PageState[page] {
				next := p.Data
				next.Value = "optimistic:" + s.Key
				return p.WithData(next)
			})
			s.Fields.Set("extra", "1")
			return s.Post(ctx, s.Fields)
		},
	})

	fields := url.Values{"v": {"x"}}
	done := make(chan error, 1)
	go func() {
		_, err := f.MustAction("set").WithKey("k").Submit(context.Background(), fields)
		done <- err
	}()

	waitFor(t, func() bool { return f.Data().Get().Data.Value == "optimistic:k" })
	close(gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if fields.Has("extra") {
		t.Error("handler modified the caller's fields")
	}
	if got := ep.Requests()[0].Form.Get("extra"); got != "1" {
		t.Errorf("posted extra = %q", got)
	}
}

func TestHandlerSkip(t *testing.T) {
	ep := vtest.NewEndpoint(t, nil)
	f := newFactory(t, ep, actions.Handlers[page]{
		"noop": func(context.Context, *actions.Submission[page]) (*actions.Response, error) {
			return nil, nil
		},
	})

	out, err := f.MustAction("noop").Submit(context.Background(), nil)
	if err != nil || out.Applied || out.Superseded {
		t.Errorf("Submit() = %+v, %v", out, err)
	}
	if len(ep.Requests()) != 0 {
		t.Error("skipped submission sent a request")
	}
}

func TestReloadAfterSuccess(t *testing.T) {
	var mu sync.Mutex
	items := []string{"server"}
	ep := vtest.NewEndpoint(t, func(r vtest.Request) vtest.Reply {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodGet {
			body, _ := json.Marshal(page{Items: items})
			return vtest.Reply{Body: string(body)}
		}
		if r.Form.Get("text") == "" {
			return vtest.Errors(protocol.Errors{"text": "required"})
		}
		items = append(items, r.Form.Get("text"))
		return vtest.Reply{}
	})
	f := newFactory(t, ep, actions.Handlers[page]{"create": nil}, actions.WithReload())
	ctx := context.Background()

	out, err := f.MustAction("create").Submit(ctx, url.Values{"text": {"eggs"}})
	if err != nil || out.ReloadErr != nil {
		t.Fatalf("Submit() = %+v, %v", out, err)
	}
	if diff := cmp.Diff([]string{"server", "eggs"}, f.Data().Get().Data.Items); diff != "" {
		t.Errorf("items after reload (-want +got):\n%s", diff)
	}

	before := len(ep.Requests())
	if _, err := f.MustAction("create").Submit(ctx, url.Values{}); err != nil {
		t.Fatal(err)
	}
	if got := len(ep.Requests()) - before; got != 1 {
		t.Errorf("sent %d requests, want 1 (no reload after validation errors)", got)
	}
}

func TestLocationIsNavigated(t *testing.T) {
	ep := vtest.NewEndpoint(t, func(r vtest.Request) vtest.Reply {
		return vtest.Reply{Envelope: &protocol.Envelope{Location: r.Form.Get("to")}}
	})

	var visited []string
	reloads := 0
	f := newFactory(t, ep, actions.Handlers[page]{"go": nil},
		actions.WithNavigator(actions.NavigatorFunc(func(_ context.Context, loc string) error {
			visited = append(visited, loc)
			return nil
		})),
		actions.WithInvalidator(actions.InvalidatorFunc(func(context.Context) error {
			reloads++
			return nil
		})))
	ctx := context.Background()

	out, err := f.MustAction("go").Submit(ctx, url.Values{"to": {"/todos//done"}})
	if err != nil {
		t.Fatal(err)
	}
	if out.Location != "/todos/done" {
		t.Errorf("Location = %q", out.Location)
	}

	if _, err := f.MustAction("go").Submit(ctx, url.Values{"to": {"https://evil.example"}}); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"/todos/done"}, visited); diff != "" {
		t.Errorf("visited mismatch (-want +got):\n%s", diff)
	}
	if reloads != 0 {
		t.Errorf("reloads = %d, want 0 when a location is returned", reloads)
	}
}

func TestObserverReports(t *testing.T) {
	ep := vtest.NewEndpoint(t, func(r vtest.Request) vtest.Reply {
		if r.Form.Get("fail") != "" {
			return vtest.Status(http.StatusForbidden)
		}
		return vtest.Reply{}
	})

	var mu sync.Mutex
	var infos []actions.SubmitInfo
	var reports []actions.Report
	obs := actions.ObserverFunc(func(ctx context.Context, info actions.SubmitInfo) (context.Context, func(actions.Report)) {
		mu.Lock()
		infos = append(infos, info)
		mu.Unlock()
		return ctx, func(r actions.Report) {
			mu.Lock()
			reports = append(reports, r)
			mu.Unlock()
		}
	})
	f := newFactory(t, ep, actions.Handlers[page]{"del": nil}, actions.WithObserver(obs),
		actions.WithOnError(func(actions.ErrorEvent) {}))
	ctx := context.Background()

	_, _ = f.MustAction("del").WithKey("9").Submit(ctx, nil)
	_, _ = f.MustAction("del").WithKey("9").Submit(ctx, url.Values{"fail": {"1"}})

	if len(infos) != 2 || infos[0].ID != "del=9" || infos[1].Seq != 2 {
		t.Errorf("infos = %+v", infos)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports", len(reports))
	}
	if reports[0].Result != actions.ResultApplied || reports[0].Status != 200 {
		t.Errorf("first report = %+v", reports[0])
	}
	if reports[1].Result != actions.ResultHTTPError || reports[1].Status != 403 || reports[1].Err == nil {
		t.Errorf("second report = %+v", reports[1])
	}
}

func TestFactoryInvalidate(t *testing.T) {
	f, err := actions.NewFactory("/todos", store.NewPage(page{}), actions.Handlers[page]{})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Invalidate(context.Background()); err != nil {
		t.Errorf("Invalidate without invalidator = %v", err)
	}
}
