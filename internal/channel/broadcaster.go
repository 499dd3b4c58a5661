package channel

import "sync"

// Broadcaster fans each published value out to every subscriber.
// Publish never blocks: a subscriber whose channel is full misses that value
// and picks up the next one.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]Channel[T]
	last   *T
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[int]Channel[T])}
}

// Subscribe registers a subscriber with a buffer of size. The most recently
// published value, if any, is delivered immediately. cancel removes the
// subscriber and closes its channel; it is safe to call more than once.
func (b *Broadcaster[T]) Subscribe(size int) (Receiver[T], func()) {
	if size < 1 {
		size = 1
	}
	ch := NewBuffered[T](size)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch.Close()
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	if b.last != nil {
		ch.TrySend(*b.last)
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				sub.Close()
			}
		})
	}
}

// Publish delivers v to every subscriber that has room and returns how many
// received it.
func (b *Broadcaster[T]) Publish(v T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}
	b.last = &v

	delivered := 0
	for _, sub := range b.subs {
		if sub.TrySend(v) {
			delivered++
		}
	}
	return delivered
}

// Subscribers returns the current subscriber count.
func (b *Broadcaster[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are discarded.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		sub.Close()
	}
}
