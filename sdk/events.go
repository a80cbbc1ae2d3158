package sdk

import "sync"

// subscriberBuffer is the per-subscriber channel capacity. Emission never
// blocks: a subscriber that falls this far behind starts losing events.
const subscriberBuffer = 16

// eventChannel is a multi-subscriber broadcast channel with an optional
// replay buffer. A replayDepth of N delivers the last N emissions to every
// new subscriber (the reinstall channel uses depth 1 so a subscriber that
// attaches after bootstrap still observes the event).
type eventChannel[T any] struct {
	mu          sync.Mutex
	subs        map[int]chan T
	next        int
	replay      []T
	replayDepth int
	closed      bool
}

func newEventChannel[T any](replayDepth int) *eventChannel[T] {
	return &eventChannel[T]{
		subs:        make(map[int]chan T),
		replayDepth: replayDepth,
	}
}

// subscribe registers a new receiver and returns it with an idempotent
// cancel func. Replayed values are queued before any new emission.
func (e *eventChannel[T]) subscribe() (<-chan T, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan T, subscriberBuffer+len(e.replay))
	for _, v := range e.replay {
		ch <- v
	}
	if e.closed {
		close(ch)
		return ch, func() {}
	}

	id := e.next
	e.next++
	e.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// emit broadcasts v to all subscribers without blocking.
func (e *eventChannel[T]) emit(v T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.replayDepth > 0 {
		e.replay = append(e.replay, v)
		if len(e.replay) > e.replayDepth {
			e.replay = e.replay[len(e.replay)-e.replayDepth:]
		}
	}
	for _, ch := range e.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// close terminates all subscriptions. Further emits are dropped and further
// subscribes receive a closed channel (after replay).
func (e *eventChannel[T]) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}
