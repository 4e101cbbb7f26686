package heap

import (
	"github.com/hostwire/wasm-bridge/errors"
)

// DefaultBorrowSlots is the size of the call-scoped borrow region when
// none is configured.
const DefaultBorrowSlots = 124

// noFree marks an empty free list. Handle 0 is reserved, so it can
// never be a real free-list link.
const noFree Handle = 0

type slot struct {
	value any
	next  Handle // next free slot, meaningful only when free
	free  bool
}

// Table maps small integer handles to host-side values.
//
// The slot array has three regions: reserved singletons at [0,4), a
// stack-disciplined borrow region of fixed size above them, and a
// growable general region. Freed general slots thread a free list
// through the array itself; allocation pops the head before appending.
//
// A Table is owned by a single logical thread of control and does not
// lock.
type Table struct {
	slots     []slot
	observers []Observer
	freeHead  Handle
	sp        Handle // borrow stack pointer, decreasing
	borrowTop Handle // first general slot; top of the borrow region
}

// New creates a table with DefaultBorrowSlots of borrow capacity.
func New() *Table {
	return NewWithBorrowSlots(DefaultBorrowSlots)
}

// NewWithBorrowSlots creates a table with n call-scoped borrow slots.
func NewWithBorrowSlots(n int) *Table {
	if n < 0 {
		n = 0
	}
	borrowTop := Handle(reservedSlots + n)
	t := &Table{
		slots:     make([]slot, borrowTop, borrowTop+64),
		freeHead:  noFree,
		sp:        borrowTop,
		borrowTop: borrowTop,
	}
	t.slots[Undefined] = slot{value: UndefinedValue}
	t.slots[Null] = slot{value: nil}
	t.slots[True] = slot{value: true}
	t.slots[False] = slot{value: false}
	// Unused borrow slots are freed in the stack sense, not the
	// free-list sense; mark them so Resolve rejects them.
	for i := Handle(reservedSlots); i < borrowTop; i++ {
		t.slots[i].free = true
	}
	return t
}

// Allocate stores a value and returns its handle, reusing a freed slot
// when one is available.
func (t *Table) Allocate(value any) Handle {
	var h Handle
	if t.freeHead != noFree {
		h = t.freeHead
		t.freeHead = t.slots[h].next
		t.slots[h] = slot{value: value}
	} else {
		h = Handle(len(t.slots))
		t.slots = append(t.slots, slot{value: value})
	}

	t.notify(Event{Type: EventAllocated, Handle: h, Value: value})
	return h
}

// Resolve returns the value a handle refers to.
func (t *Table) Resolve(h Handle) (any, error) {
	if int(h) >= len(t.slots) {
		return nil, errors.InvalidHandle(errors.PhaseRuntime, uint32(h), "out of range")
	}
	s := t.slots[h]
	if s.free {
		return nil, errors.InvalidHandle(errors.PhaseRuntime, uint32(h), "slot freed")
	}
	return s.value, nil
}

// Release frees a handle's slot and links it into the free list.
// Releasing a reserved handle is rejected; releasing an already freed
// slot fails with a double-release error.
func (t *Table) Release(h Handle) error {
	_, err := t.release(h, true)
	return err
}

// Take resolves a handle and releases it in one step, transferring
// ownership of the value to the caller.
func (t *Table) Take(h Handle) (any, error) {
	return t.release(h, false)
}

func (t *Table) release(h Handle, runDrop bool) (any, error) {
	if h < reservedSlots {
		return nil, errors.InvalidHandle(errors.PhaseRuntime, uint32(h), "reserved handle cannot be released")
	}
	if h < t.borrowTop {
		return nil, errors.InvalidHandle(errors.PhaseRuntime, uint32(h), "borrowed handle, use PopBorrowed")
	}
	if int(h) >= len(t.slots) {
		return nil, errors.InvalidHandle(errors.PhaseRuntime, uint32(h), "out of range")
	}
	s := &t.slots[h]
	if s.free {
		return nil, errors.DoubleRelease(uint32(h))
	}

	value := s.value
	s.value = nil
	s.free = true
	s.next = t.freeHead
	t.freeHead = h

	if runDrop {
		if d, ok := value.(Dropper); ok {
			d.Drop()
		}
	}

	t.notify(Event{Type: EventReleased, Handle: h, Value: value})
	return value, nil
}

// Len returns the number of live general handles, excluding reserved
// singletons and borrowed slots. A growing Len across a workload that
// should be balanced means releases are missing.
func (t *Table) Len() int {
	n := 0
	for i := t.borrowTop; int(i) < len(t.slots); i++ {
		if !t.slots[i].free {
			n++
		}
	}
	return n
}

// Clear releases every live general handle. Borrowed slots are left
// alone; they belong to in-flight calls.
func (t *Table) Clear() {
	for i := t.borrowTop; int(i) < len(t.slots); i++ {
		if !t.slots[i].free {
			_ = t.Release(i)
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table) notify(e Event) {
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}
