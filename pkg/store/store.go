package store

import "sync"

// Listener receives store values.
type Listener[T any] func(T)

type subscriber[T any] struct {
	id uint64
	fn Listener[T]
}

// Store is a concurrency-safe reactive value.
type Store[T any] struct {
	// mu protects value, subs, nextID and issued.
	mu     sync.Mutex
	value  T
	subs   []subscriber[T]
	nextID uint64
	equal  func(T, T) bool

	// Every write or subscription takes a ticket under mu and delivers only
	// after all earlier tickets were delivered, so listeners observe writes
	// in the order they happened while mu stays free for Get.
	issued    uint64
	deliverMu sync.Mutex
	delivered uint64
	turn      *sync.Cond
}

// New creates a store holding initial.
func New[T any](initial T) *Store[T] {
	s := &Store[T]{value: initial}
	s.turn = sync.NewCond(&s.deliverMu)
	return s
}

// WithEquals configures an equality function. Writes of a value equal to
// the current one are then not delivered to subscribers.
func (s *Store[T]) WithEquals(fn func(T, T) bool) *Store[T] {
	s.mu.Lock()
	s.equal = fn
	s.mu.Unlock()
	return s
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value and notifies subscribers.
func (s *Store[T]) Set(value T) {
	s.Update(func(T) T { return value })
}

// Update replaces the value with fn(current) and notifies subscribers.
// fn runs while the store is locked and must not access the store.
func (s *Store[T]) Update(fn func(T) T) {
	s.mu.Lock()
	old := s.value
	next := fn(old)
	if s.equal != nil && s.equal(old, next) {
		s.mu.Unlock()
		return
	}
	s.value = next
	subs := make([]subscriber[T], len(s.subs))
	copy(subs, s.subs)
	ticket := s.takeTicket()
	s.mu.Unlock()

	s.deliver(ticket, func() {
		for _, sub := range subs {
			sub.fn(next)
		}
	})
}

// Subscribe registers fn, calls it with the current value, and returns a
// function that removes the subscription. Calling the returned function
// more than once is a no-op.
func (s *Store[T]) Subscribe(fn Listener[T]) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})
	current := s.value
	ticket := s.takeTicket()
	s.mu.Unlock()

	s.deliver(ticket, func() { fn(current) })

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Store[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// takeTicket must be called with mu held.
func (s *Store[T]) takeTicket() uint64 {
	s.issued++
	return s.issued
}

func (s *Store[T]) deliver(ticket uint64, fn func()) {
	s.deliverMu.Lock()
	for s.delivered != ticket-1 {
		s.turn.Wait()
	}
	s.deliverMu.Unlock()

	defer func() {
		s.deliverMu.Lock()
		s.delivered = ticket
		s.turn.Broadcast()
		s.deliverMu.Unlock()
	}()
	fn()
}

func (s *Store[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}
