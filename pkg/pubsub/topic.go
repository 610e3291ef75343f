package pubsub

import (
	"sync"

	"github.com/google/uuid"
)

type topic[T any] struct {
	subscribers map[string]func(msg T)
	history     []T
	limit       int

	lock sync.Mutex
}

func newTopic[T any](limit int) *topic[T] {
	return &topic[T]{
		subscribers: make(map[string]func(msg T)),
		limit:       limit,
	}
}

func (t *topic[T]) publish(msg T) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.limit > 0 {
		if len(t.history) == t.limit {
			t.history = t.history[1:]
		}
		t.history = append(t.history, msg)
	}

	for _, fn := range t.subscribers {
		fn(msg)
	}
}

func (t *topic[T]) subscribe(fn func(msg T)) (unsub func()) {
	t.lock.Lock()
	defer t.lock.Unlock()

	for _, msg := range t.history {
		fn(msg)
	}

	id := uuid.NewString()
	t.subscribers[id] = fn

	return func() {
		t.lock.Lock()
		defer t.lock.Unlock()

		delete(t.subscribers, id)
	}
}
