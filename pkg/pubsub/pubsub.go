package pubsub

import "sync"

// PubSub fans messages out to topic subscribers. Each topic remembers its last
// backlog messages and replays them to new subscribers, so a late listener
// still sees how a run started.
type PubSub[T any] struct {
	topics  map[string]*topic[T]
	backlog int

	lock sync.Mutex
}

func New[T any](backlog int) *PubSub[T] {
	return &PubSub[T]{
		topics:  make(map[string]*topic[T]),
		backlog: backlog,
	}
}

func (p *PubSub[T]) getTopic(name string) *topic[T] {
	t, ok := p.topics[name]
	if !ok {
		t = newTopic[T](p.backlog)
		p.topics[name] = t
	}
	return t
}

func (p *PubSub[T]) Publish(topic string, message T) {
	p.lock.Lock()
	t := p.getTopic(topic)
	p.lock.Unlock()

	t.publish(message)
}

func (p *PubSub[T]) Subscribe(topic string, handler func(message T)) (unsub func()) {
	p.lock.Lock()
	t := p.getTopic(topic)
	p.lock.Unlock()

	return t.subscribe(handler)
}

// Drop forgets a topic and its backlog. Existing subscriptions stop receiving.
func (p *PubSub[T]) Drop(topic string) {
	p.lock.Lock()
	defer p.lock.Unlock()

	delete(p.topics, topic)
}
