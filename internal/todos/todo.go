package todos

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// ErrNotFound is returned for an unknown todo UID.
var ErrNotFound = errors.New("todos: not found")

// Todo is one item of a list.
type Todo struct {
	UID           string    `json:"uid"`
	CreatedAt     time.Time `json:"created_at"`
	Text          string    `json:"text"`
	Done          bool      `json:"done"`
	PendingDelete bool      `json:"pending_delete"`
}

// PageData is what the todos page loads.
type PageData struct {
	Todos []Todo `json:"todos"`
}

// Find returns the index of the todo with uid, or -1.
func (d PageData) Find(uid string) int {
	for i, t := range d.Todos {
		if t.UID == uid {
			return i
		}
	}
	return -1
}

// Patch changes some fields of a todo. Nil fields are left alone.
type Patch struct {
	Text *string
	Done *bool
}

// Repository keeps every user's list in memory.
type Repository struct {
	mu     sync.RWMutex
	lists  map[string][]Todo
	policy *bluemonday.Policy
	now    func() time.Time
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		lists:  make(map[string][]Todo),
		policy: bluemonday.StrictPolicy(),
		now:    time.Now,
	}
}

// Sanitize strips markup from text and trims surrounding space.
func (r *Repository) Sanitize(text string) string {
	return strings.TrimSpace(r.policy.Sanitize(text))
}

// List returns a copy of user's todos, oldest first. A user without a list
// gets an empty one.
func (r *Repository) List(user string) []Todo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Todo, len(r.lists[user]))
	copy(out, r.lists[user])
	return out
}

// Create adds a todo with already sanitized text.
func (r *Repository) Create(user, text string) Todo {
	t := Todo{
		UID:       uuid.NewString(),
		CreatedAt: r.now().UTC(),
		Text:      text,
	}
	r.mu.Lock()
	r.lists[user] = append(r.lists[user], t)
	r.mu.Unlock()
	return t
}

// Update applies p to the todo with uid.
func (r *Repository) Update(user, uid string, p Patch) (Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.lists[user]
	for i := range list {
		if list[i].UID != uid {
			continue
		}
		if p.Text != nil {
			list[i].Text = *p.Text
		}
		if p.Done != nil {
			list[i].Done = *p.Done
		}
		return list[i], nil
	}
	return Todo{}, ErrNotFound
}

// Delete removes the todo with uid.
func (r *Repository) Delete(user, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.lists[user]
	for i := range list {
		if list[i].UID == uid {
			r.lists[user] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// todoFromResult decodes the todo an action returned in its result.
func todoFromResult(result map[string]any) (Todo, bool) {
	raw, ok := result["todo"]
	if !ok {
		return Todo{}, false
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return Todo{}, false
	}
	var t Todo
	if err := json.Unmarshal(data, &t); err != nil || t.UID == "" {
		return Todo{}, false
	}
	return t, true
}
