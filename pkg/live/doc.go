// Package live pushes invalidation notices to clients over WebSocket.
//
// A Hub is mounted on the server (usually at /live) and passed to pages as
// their server.Broadcaster. Clients connect with ?path=<page path> and get
// a {"type":"invalidate","path":...} message after every successful
// mutation of that page. Subscribe is the client loop: it feeds those
// messages to an actions.Invalidator, so a page open in several places
// reloads when any of them submits.
package live
