// Package errors provides structured, coded errors for page actions.
//
// Every failure the action layer reports to callers carries a code from a
// fixed registry, so logs, metrics labels and CLI output can classify it
// without parsing messages.
//
// # Error Categories
//
//   - transport: the request never produced an HTTP response
//   - response: the server answered with a non-OK status or a bad body
//   - dispatch: server-side action lookup and form parsing
//   - config: configuration file loading and validation
//   - cli: command-line usage errors
//
// # Usage
//
//	err := errors.New("PA101").
//	    WithDetail("POST /todos?action.toggle=abc").
//	    Wrap(netErr)
//
//	if errors.HasCode(err, "PA101") {
//	    // transport failure
//	}
package errors
