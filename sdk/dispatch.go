package sdk

import "fmt"

type dispatchResult struct {
	value any
	err   error
}

// dispatcher serializes SDK work onto a single goroutine.
//
// Host apps can invoke SDK methods from multiple threads; keeping session
// transitions and event handling serialized prevents two lifecycle events
// from racing into contradictory states.
type dispatcher struct {
	q    chan func()
	quit chan struct{}
}

func newDispatcher(queueSize int) *dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	d := &dispatcher{
		q:    make(chan func(), queueSize),
		quit: make(chan struct{}),
	}
	go func() {
		for {
			select {
			case fn := <-d.q:
				if fn != nil {
					fn()
				}
			case <-d.quit:
				return
			}
		}
	}()
	return d
}

// do enqueues fn without waiting for it to run.
func (d *dispatcher) do(fn func()) error {
	if d == nil {
		return fmt.Errorf("dispatcher not initialized")
	}
	if fn == nil {
		return nil
	}
	select {
	case d.q <- fn:
		return nil
	case <-d.quit:
		return fmt.Errorf("dispatcher stopped")
	}
}

// call enqueues fn and waits for its result.
func (d *dispatcher) call(fn func() (any, error)) (any, error) {
	if d == nil {
		return nil, fmt.Errorf("dispatcher not initialized")
	}
	if fn == nil {
		return nil, nil
	}
	done := make(chan dispatchResult, 1)
	if err := d.do(func() {
		value, err := fn()
		done <- dispatchResult{value: value, err: err}
	}); err != nil {
		return nil, err
	}
	select {
	case res := <-done:
		return res.value, res.err
	case <-d.quit:
		return nil, fmt.Errorf("dispatcher stopped")
	}
}

// stop terminates the worker goroutine. Queued work that has not started is
// dropped.
func (d *dispatcher) stop() {
	select {
	case <-d.quit:
	default:
		close(d.quit)
	}
}
