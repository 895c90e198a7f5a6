// Package protocol defines the wire formats exchanged between a page and its
// action endpoints.
//
// # Action Requests
//
// A page submits an action by POSTing its form fields to
//
//	<base-path>?action.<name>[=<key>]
//
// with the header "Accept: application/json" and a body encoded as
// application/x-www-form-urlencoded.
//
// # Envelope
//
// The endpoint answers with a JSON envelope:
//
//	{
//	    "result":   { ... },   // optional data to merge into the page
//	    "errors":   { ... },   // optional validation errors by field
//	    "location": "/path"    // optional redirect target
//	}
//
// All three members are optional; "{}" is a valid success envelope.
//
// # Control Messages
//
// Live connections carry small JSON control messages from server to client:
//
//	{"type":"invalidate","path":"/todos"}
//	{"type":"ping"}
//
// # Limits
//
// Decoders read at most MaxEnvelopeSize / MaxControlSize bytes and reject
// anything larger.
package protocol
