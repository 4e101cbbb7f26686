package heap

import (
	"github.com/hostwire/wasm-bridge/errors"
)

// PushBorrowed places a value in the call-scoped borrow region and
// returns its handle. Borrowed handles live below the general region
// and must be returned in strict LIFO order via PopBorrowed.
func (t *Table) PushBorrowed(value any) (Handle, error) {
	if t.sp == reservedSlots {
		return 0, errors.New(errors.PhaseRuntime, errors.KindBorrowExhaust).
			Detail("borrow region full (%d slots)", t.borrowTop-reservedSlots).
			Build()
	}
	t.sp--
	t.slots[t.sp] = slot{value: value}
	t.notify(Event{Type: EventBorrowed, Handle: t.sp, Value: value})
	return t.sp, nil
}

// PopBorrowed returns a borrowed slot. The handle must be the most
// recently pushed one; anything else is a discipline violation.
func (t *Table) PopBorrowed(h Handle) error {
	if t.sp == t.borrowTop {
		return errors.InvalidHandle(errors.PhaseRuntime, uint32(h), "borrow region empty")
	}
	if h != t.sp {
		return errors.BorrowOrder(uint32(h), uint32(t.sp))
	}
	value := t.slots[h].value
	t.slots[h] = slot{free: true}
	t.sp++
	t.notify(Event{Type: EventBorrowReturned, Handle: h, Value: value})
	return nil
}

// WithBorrowed runs fn with a borrowed handle for value, returning the
// slot when fn finishes. The handle must not be retained beyond fn.
func (t *Table) WithBorrowed(value any, fn func(Handle) error) error {
	h, err := t.PushBorrowed(value)
	if err != nil {
		return err
	}
	defer func() {
		_ = t.PopBorrowed(h)
	}()
	return fn(h)
}

// LiveBorrows returns the number of borrowed slots currently in use.
func (t *Table) LiveBorrows() int {
	return int(t.borrowTop - t.sp)
}
