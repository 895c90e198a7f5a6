package actions

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vango-dev/pageactions/internal/errors"
	"github.com/vango-dev/pageactions/pkg/protocol"
	"github.com/vango-dev/pageactions/pkg/routepath"
	"github.com/vango-dev/pageactions/pkg/store"
)

// Submission is what a Handler receives.
type Submission[T any] struct {
	// Name and Key identify the action instance.
	Name string
	Key  string

	// Fields is this submission's private copy of the submitted form.
	Fields url.Values

	// Data is the page store, for optimistic updates.
	Data *store.Store[store.PageState[T]]

	// Seq is the submission's number in its instance's sequence.
	Seq uint64

	action *Action[T]
}

// Post sends fields to the action's endpoint. A non-OK status is not an
// error here; it is returned in the Response and reconciled by Submit.
func (s *Submission[T]) Post(ctx context.Context, fields url.Values) (*Response, error) {
	return s.action.factory.post(ctx, s.action, fields)
}

// Path returns the path the submission posts to.
func (s *Submission[T]) Path() string { return s.action.path }

// Response is an action endpoint's answer.
type Response struct {
	StatusCode int
	Header     http.Header

	// Envelope is the decoded body of an OK response, nil otherwise.
	Envelope *protocol.Envelope
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// ErrorEvent describes a failed submission. Exactly one of Error and
// Response is set for transport failures and non-OK responses; both are set
// when an OK response had an unreadable body.
type ErrorEvent struct {
	Action   string
	Path     string
	Error    error
	Response *Response
}

// Outcome reports what Submit did with a submission's result.
type Outcome struct {
	// Seq is the submission's number in its instance's sequence.
	Seq uint64

	// Applied is true when the response was reconciled with the store.
	Applied bool

	// Superseded is true when a later submission of the same instance was
	// started before this one finished; its result was dropped.
	Superseded bool

	// Response is the handler's response, if any.
	Response *Response

	// Location is the validated redirect target that was followed, if any.
	Location string

	// ReloadErr is the error of the post-submission reload, if one failed.
	ReloadErr error
}

func (f *Factory[T]) submit(ctx context.Context, a *Action[T], fields url.Values) (*Outcome, error) {
	id := a.ID()
	seq := f.seq.next(id)
	out := &Outcome{Seq: seq}

	info := SubmitInfo{Name: a.name, Key: a.key, ID: id, Path: a.path, Seq: seq}
	ctx, finish := f.observe(ctx, info)
	start := time.Now()
	report := func(result string, status int, err error) {
		finish(Report{Result: result, Status: status, Err: err, Duration: time.Since(start)})
	}

	sub := &Submission[T]{
		Name:   a.name,
		Key:    a.key,
		Fields: cloneValues(fields),
		Data:   f.data,
		Seq:    seq,
		action: a,
	}

	handler := f.handlers[a.name]
	if handler == nil {
		handler = func(ctx context.Context, s *Submission[T]) (*Response, error) {
			return s.Post(ctx, s.Fields)
		}
	}

	resp, err := handler(ctx, sub)
	out.Response = resp

	f.applyMu.Lock()
	if !f.seq.isLatest(id, seq) {
		f.applyMu.Unlock()
		out.Superseded = true
		f.logger.Debug("dropping superseded result", "action", id, "seq", seq, "error", err)
		report(ResultSuperseded, statusOf(resp), err)
		return out, nil
	}

	switch {
	case err != nil:
		f.applyMu.Unlock()
		if resp == nil && errors.CodeOf(err) == "" {
			err = errors.New("PA101").WithDetail("POST " + a.path).Wrap(err)
		}
		f.fail(ErrorEvent{Action: id, Path: a.path, Error: err, Response: resp})
		report(ResultTransportError, statusOf(resp), err)
		return out, err

	case resp == nil:
		f.applyMu.Unlock()
		report(ResultSkipped, 0, nil)
		return out, nil

	case !resp.OK():
		f.applyMu.Unlock()
		f.fail(ErrorEvent{Action: id, Path: a.path, Response: resp})
		perr := errors.New("PA102").WithStatus(resp.StatusCode).WithDetail("POST " + a.path)
		report(ResultHTTPError, resp.StatusCode, perr)
		return out, perr
	}

	env := resp.Envelope
	if env == nil {
		env = &protocol.Envelope{}
	}
	f.apply(id, env)
	f.applyMu.Unlock()
	out.Applied = true

	result := ResultApplied
	if env.HasErrors() {
		result = ResultInvalid
	}

	switch {
	case env.Location != "" && f.navigator != nil && !env.HasErrors():
		loc, lerr := routepath.ValidateLocation(env.Location)
		if lerr != nil {
			f.logger.Warn("ignoring invalid location", "action", id, "location", env.Location, "error", lerr)
			break
		}
		out.Location = loc
		if nerr := f.navigator.Navigate(ctx, loc); nerr != nil {
			f.logger.Warn("navigation failed", "action", id, "location", loc, "error", nerr)
		}

	case f.invalidator != nil && !env.HasErrors():
		if rerr := f.invalidator.Invalidate(ctx); rerr != nil {
			out.ReloadErr = rerr
			f.logger.Warn("reload after action failed", "action", id, "error", rerr)
		}
	}

	report(result, resp.StatusCode, nil)
	return out, nil
}

// apply reconciles an OK envelope with the store in one update.
func (f *Factory[T]) apply(id string, env *protocol.Envelope) {
	f.data.Update(func(s store.PageState[T]) store.PageState[T] {
		s = s.WithErrors(id, env.Errors)
		if env.Result != nil && f.merge != nil {
			s = s.WithData(f.merge(s.Data, env.Result))
		}
		return s
	})
}

func (f *Factory[T]) fail(ev ErrorEvent) {
	if f.onError != nil {
		f.onError(ev)
		return
	}
	attrs := []any{"action", ev.Action, "path", ev.Path}
	if ev.Response != nil {
		attrs = append(attrs, "status", ev.Response.StatusCode)
	}
	if ev.Error != nil {
		attrs = append(attrs, "error", ev.Error)
	}
	f.logger.Error("action failed", attrs...)
}

func (f *Factory[T]) post(ctx context.Context, a *Action[T], fields url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.origin+a.path, strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, errors.New("PA104").WithDetail("POST " + a.path).Wrap(err)
	}
	for k, vals := range f.header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set(protocol.HeaderAccept, protocol.ContentTypeJSON)
	req.Header.Set(protocol.HeaderContentType, protocol.ContentTypeForm)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.New("PA101").WithDetail("POST " + a.path).Wrap(err)
	}
	defer resp.Body.Close()

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header}
	if !out.OK() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, protocol.MaxEnvelopeSize))
		return out, nil
	}

	env, err := protocol.DecodeEnvelope(resp.Body)
	if err != nil {
		return out, errors.New("PA103").WithStatus(resp.StatusCode).WithDetail("POST " + a.path).Wrap(err)
	}
	out.Envelope = env
	return out, nil
}

func statusOf(r *Response) int {
	if r == nil {
		return 0
	}
	return r.StatusCode
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
