package actions

import (
	"context"
	"time"
)

// Submission results reported to observers.
const (
	ResultApplied        = "applied"
	ResultInvalid        = "invalid"
	ResultSuperseded     = "superseded"
	ResultSkipped        = "skipped"
	ResultHTTPError      = "http_error"
	ResultTransportError = "transport_error"
)

// SubmitInfo identifies a submission to observers.
type SubmitInfo struct {
	Name string
	Key  string
	ID   string
	Path string
	Seq  uint64
}

// Report is what an observer learns when a submission finishes.
type Report struct {
	Result   string
	Status   int
	Err      error
	Duration time.Duration
}

// Observer watches submissions, e.g. for metrics or tracing. Start is
// called before the handler runs; the returned context is passed to the
// handler, and the returned function is called exactly once with the
// report.
type Observer interface {
	Start(ctx context.Context, info SubmitInfo) (context.Context, func(Report))
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, info SubmitInfo) (context.Context, func(Report))

// Start implements Observer.
func (fn ObserverFunc) Start(ctx context.Context, info SubmitInfo) (context.Context, func(Report)) {
	return fn(ctx, info)
}

func (f *Factory[T]) observe(ctx context.Context, info SubmitInfo) (context.Context, func(Report)) {
	if len(f.observers) == 0 {
		return ctx, func(Report) {}
	}
	finishers := make([]func(Report), 0, len(f.observers))
	for _, o := range f.observers {
		var done func(Report)
		ctx, done = o.Start(ctx, info)
		if done != nil {
			finishers = append(finishers, done)
		}
	}
	return ctx, func(r Report) {
		for i := len(finishers) - 1; i >= 0; i-- {
			finishers[i](r)
		}
	}
}
