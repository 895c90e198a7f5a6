package todos

import (
	"context"
	"slices"

	"github.com/vango-dev/pageactions/pkg/actions"
	"github.com/vango-dev/pageactions/pkg/store"
)

// Handlers returns the client handlers of the todos page.
func Handlers() actions.Handlers[PageData] {
	return actions.Handlers[PageData]{
		"create": nil,
		"edit":   nil,
		"toggle": toggle,
		"delete": remove,
	}
}

// Merge folds a returned todo into the page data: it replaces the todo with
// the same UID or appends a new one.
func Merge(data PageData, result map[string]any) PageData {
	t, ok := todoFromResult(result)
	if !ok {
		return data
	}
	todos := slices.Clone(data.Todos)
	if i := data.Find(t.UID); i >= 0 {
		todos[i] = t
	} else {
		todos = append(todos, t)
	}
	return PageData{Todos: todos}
}

// NewClient creates the client side of the todos page submitting to origin.
func NewClient(origin string, opts ...actions.Option) (*actions.Factory[PageData], error) {
	base := []actions.Option{
		actions.WithOrigin(origin),
		actions.WithMerge(Merge),
	}
	return actions.NewFactory(Path, store.NewPage(PageData{}), Handlers(), append(base, opts...)...)
}

func toggle(ctx context.Context, s *actions.Submission[PageData]) (*actions.Response, error) {
	done := s.Fields.Get("done") != ""
	updateTodo(s.Data, s.Key, func(t *Todo) { t.Done = done })
	return s.Post(ctx, s.Fields)
}

func remove(ctx context.Context, s *actions.Submission[PageData]) (*actions.Response, error) {
	updateTodo(s.Data, s.Key, func(t *Todo) { t.PendingDelete = true })
	return s.Post(ctx, s.Fields)
}

// updateTodo changes the todo with uid in a fresh copy of the list.
func updateTodo(data *store.Store[store.PageState[PageData]], uid string, fn func(*Todo)) {
	data.Update(func(s store.PageState[PageData]) store.PageState[PageData] {
		i := s.Data.Find(uid)
		if i < 0 {
			return s
		}
		todos := slices.Clone(s.Data.Todos)
		fn(&todos[i])
		return s.WithData(PageData{Todos: todos})
	})
}
