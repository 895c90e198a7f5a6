// Package todos is the demo page: an in-memory todo list per user with
// create, toggle, edit and delete actions, and the client handlers that go
// with them. Toggle and delete update the page data optimistically before
// posting.
package todos
