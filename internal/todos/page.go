package todos

import (
	"context"
	"errors"
	"net/http"

	"github.com/vango-dev/pageactions/pkg/protocol"
	"github.com/vango-dev/pageactions/pkg/server"
)

// Path is where the todos page is mounted.
const Path = "/todos"

// UserCookie names the cookie identifying the list owner.
const UserCookie = "userid"

// DefaultUser owns the list of requests without a user cookie.
const DefaultUser = "guest"

// UserFromRequest returns the list owner of r.
func UserFromRequest(r *http.Request) string {
	if c, err := r.Cookie(UserCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return DefaultUser
}

// NewPage creates the server side of the todos page.
func NewPage(repo *Repository, opts ...server.PageOption) *server.Page {
	h := &pageHandlers{repo: repo}
	return server.NewPage(h.load, map[string]server.ServerAction{
		"create": h.create,
		"toggle": h.toggle,
		"edit":   h.edit,
		"delete": h.delete,
	}, opts...)
}

type pageHandlers struct {
	repo *Repository
}

func (h *pageHandlers) load(_ context.Context, r *http.Request) (any, error) {
	return PageData{Todos: h.repo.List(UserFromRequest(r))}, nil
}

func (h *pageHandlers) create(_ context.Context, ev *server.Event) (*protocol.Envelope, error) {
	text := h.repo.Sanitize(ev.Fields.Get("text"))
	if text == "" {
		return invalid("text", "required"), nil
	}
	t := h.repo.Create(UserFromRequest(ev.Request), text)
	return &protocol.Envelope{Result: map[string]any{"todo": t}}, nil
}

func (h *pageHandlers) toggle(_ context.Context, ev *server.Event) (*protocol.Envelope, error) {
	if ev.Key == "" {
		return invalid("key", "required"), nil
	}
	// Unchecked boxes are not submitted.
	done := ev.Fields.Get("done") != ""
	return h.update(ev, Patch{Done: &done})
}

func (h *pageHandlers) edit(_ context.Context, ev *server.Event) (*protocol.Envelope, error) {
	if ev.Key == "" {
		return invalid("key", "required"), nil
	}
	var p Patch
	if ev.Fields.Has("text") {
		text := h.repo.Sanitize(ev.Fields.Get("text"))
		if text == "" {
			return invalid("text", "required"), nil
		}
		p.Text = &text
	}
	return h.update(ev, p)
}

func (h *pageHandlers) delete(_ context.Context, ev *server.Event) (*protocol.Envelope, error) {
	if ev.Key == "" {
		return invalid("key", "required"), nil
	}
	err := h.repo.Delete(UserFromRequest(ev.Request), ev.Key)
	if errors.Is(err, ErrNotFound) {
		return invalid("key", "not found"), nil
	}
	return nil, err
}

func (h *pageHandlers) update(ev *server.Event, p Patch) (*protocol.Envelope, error) {
	t, err := h.repo.Update(UserFromRequest(ev.Request), ev.Key, p)
	if errors.Is(err, ErrNotFound) {
		return invalid("key", "not found"), nil
	}
	if err != nil {
		return nil, err
	}
	return &protocol.Envelope{Result: map[string]any{"todo": t}}, nil
}

func invalid(field, msg string) *protocol.Envelope {
	return &protocol.Envelope{Errors: protocol.Errors{field: msg}}
}
