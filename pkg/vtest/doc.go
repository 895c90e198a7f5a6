// Package vtest provides testing helpers for page actions.
//
// # Scripted Endpoints
//
// NewEndpoint starts an httptest server whose answers are scripted per
// request, and records every request it receives:
//
//	ep := vtest.NewEndpoint(t, func(r vtest.Request) vtest.Reply {
//	    if r.Form.Get("text") == "" {
//	        return vtest.Errors(protocol.Errors{"text": "required"})
//	    }
//	    return vtest.Result(map[string]any{"uid": "1"})
//	})
//
// A Reply can hold its answer until a channel is closed, which lets tests
// finish requests in any order:
//
//	gate := make(chan struct{})
//	... return vtest.Reply{Envelope: env, Wait: gate}
//	close(gate)
//
// # Store Recordings
//
// Record subscribes to a store and keeps every delivered value:
//
//	rec := vtest.Record(t, data)
//	rec.Last()
package vtest
