package store

import (
	"maps"

	"github.com/vango-dev/pageactions/pkg/protocol"
)

// PageState is the value a page keeps in its store: the data its load
// function produced and the validation errors of each action instance,
// keyed by action ID ("name" or "name=key").
type PageState[T any] struct {
	Data   T
	Errors map[string]protocol.Errors
}

// NewPage returns a store holding data and no errors.
func NewPage[T any](data T) *Store[PageState[T]] {
	return New(PageState[T]{Data: data})
}

// WithData returns a copy of p holding data.
func (p PageState[T]) WithData(data T) PageState[T] {
	p.Data = data
	return p
}

// WithErrors returns a copy of p whose errors for id are replaced by errs.
// An empty errs clears the entry. The receiver's map is never modified.
func (p PageState[T]) WithErrors(id string, errs protocol.Errors) PageState[T] {
	if len(errs) == 0 {
		return p.WithoutErrors(id)
	}
	next := make(map[string]protocol.Errors, len(p.Errors)+1)
	maps.Copy(next, p.Errors)
	next[id] = errs.Clone()
	p.Errors = next
	return p
}

// WithoutErrors returns a copy of p with no errors recorded for id.
func (p PageState[T]) WithoutErrors(id string) PageState[T] {
	if _, ok := p.Errors[id]; !ok {
		return p
	}
	next := maps.Clone(p.Errors)
	delete(next, id)
	if len(next) == 0 {
		next = nil
	}
	p.Errors = next
	return p
}

// ErrorsFor returns the errors recorded for id, or nil.
func (p PageState[T]) ErrorsFor(id string) protocol.Errors {
	return p.Errors[id]
}
