package imports

import (
	"context"
	"time"

	"github.com/hostwire/wasm-bridge/closure"
)

// Timer delivers one-shot scheduled callbacks into the module. A call
// to SetTimeout registers a closure and returns immediately; the
// closure fires later, from Poll, on the bridge's own thread of
// control. This is cooperative suspension at the boundary, not
// host-driven concurrency.
type Timer struct {
	env     Env
	pending map[uint32]*pendingTimer
	nextID  uint32
}

type pendingTimer struct {
	cl       *closure.Closure
	deadline time.Time
}

func NewTimer(env Env) *Timer {
	return &Timer{
		env:     env,
		pending: make(map[uint32]*pendingTimer),
	}
}

func (t *Timer) Namespace() string {
	return "hostwire:timer"
}

// SetTimeout schedules the closure (fnPtr, envPtr) to fire after
// delayMillis and returns the timer id.
func (t *Timer) SetTimeout(_ context.Context, fnPtr, envPtr, delayMillis uint32) uint32 {
	t.nextID++
	id := t.nextID
	t.pending[id] = &pendingTimer{
		cl:       t.env.WrapClosure(fnPtr, envPtr),
		deadline: time.Now().Add(time.Duration(delayMillis) * time.Millisecond),
	}
	return id
}

// ClearTimeout cancels a pending timer. The closure's host reference is
// dropped, which disposes its environment unless the module holds one.
func (t *Timer) ClearTimeout(ctx context.Context, id uint32) {
	p, ok := t.pending[id]
	if !ok {
		return
	}
	delete(t.pending, id)
	_, _ = p.cl.Drop(ctx)
}

// Poll fires every due timer, invoking each closure with its timer id,
// and returns how many fired. Must be called from the bridge's thread.
func (t *Timer) Poll(ctx context.Context) (uint32, error) {
	now := time.Now()
	var fired uint32
	for id, p := range t.pending {
		if p.deadline.After(now) {
			continue
		}
		delete(t.pending, id)
		if _, err := p.cl.Invoke(ctx, uint64(id)); err != nil {
			_, _ = p.cl.Drop(ctx)
			return fired, err
		}
		_, _ = p.cl.Drop(ctx)
		fired++
	}
	return fired, nil
}

// PendingCount returns the number of timers not yet fired.
func (t *Timer) PendingCount() int {
	return len(t.pending)
}
