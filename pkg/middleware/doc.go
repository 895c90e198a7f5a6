// Package middleware provides observability for page actions.
//
// Both Metrics and Tracing work on the two sides of an action:
//   - as an actions.Observer, passed to actions.NewFactory with
//     actions.WithObserver, they see every client submission;
//   - as HTTP middleware, wrapped around a server.Page or the whole router,
//     they see every dispatch.
//
// # Prometheus Metrics
//
//	m := middleware.NewMetrics(middleware.WithNamespace("todos"))
//	r.Use(m.Middleware)
//	r.Handle("/metrics", promhttp.Handler())
//
// Metrics collected (namespace "pageactions" by default):
//   - submissions_total{action,result}: client submissions by result
//   - submission_duration_seconds{action}: submission latency
//   - submission_errors_total{action,code}: failed submissions by error code
//   - dispatch_total{action,status}: server dispatches by HTTP status
//   - dispatch_duration_seconds{action}: server dispatch latency
//
// Labels carry the action name, never the key, to keep cardinality bounded.
//
// # OpenTelemetry
//
//	t := middleware.NewTracing(middleware.WithTracerName("todos"))
//	r.Use(t.Middleware)
//
// The tracer comes from the global provider; configure it with
// otel.SetTracerProvider before creating the Tracing.
package middleware
