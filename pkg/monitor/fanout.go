package monitor

import "sync"

// fanout delivers values to subscribers without ever blocking the publisher.
// A slow subscriber loses its oldest undelivered value.
type fanout[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
	buffer int
	closed bool
}

func newFanout[T any](buffer int) *fanout[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &fanout[T]{subs: make(map[int]chan T), buffer: buffer}
}

func (f *fanout[T]) subscribe() (<-chan T, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan T, f.buffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if c, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

func (f *fanout[T]) publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// Full: drop the oldest and retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

func (f *fanout[T]) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// close ends every subscription.
func (f *fanout[T]) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
