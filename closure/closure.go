package closure

import (
	"context"

	"github.com/hostwire/wasm-bridge/errors"
)

// CallFunc invokes a module-side function table entry. fnPtr selects
// the entry, envPtr is the closure environment passed as its first
// argument.
type CallFunc func(ctx context.Context, fnPtr, envPtr uint32, args ...uint64) ([]uint64, error)

// DisposeFunc frees a closure environment inside the module. It runs at
// most once per closure.
type DisposeFunc func(ctx context.Context, fnPtr, envPtr uint32) error

// Adapter wraps (function pointer, environment pointer) pairs from one
// loaded module as callable host-side closures.
type Adapter struct {
	call    CallFunc
	dispose DisposeFunc
}

// NewAdapter creates an adapter bound to a module's call and dispose
// entry points.
func NewAdapter(call CallFunc, dispose DisposeFunc) *Adapter {
	return &Adapter{call: call, dispose: dispose}
}

// Closure is a host-callable wrapper around a module-side function
// pointer and environment, with manual reference counting. The host
// wrapper and the module jointly own it; whichever side releases the
// last reference triggers the disposer.
type Closure struct {
	adapter  *Adapter
	fn       uint32
	env      uint32
	refs     int
	disposed bool
}

// Wrap produces a closure with a reference count of one.
func (a *Adapter) Wrap(fnPtr, envPtr uint32) *Closure {
	return &Closure{
		adapter: a,
		fn:      fnPtr,
		env:     envPtr,
		refs:    1,
	}
}

// Invoke calls the underlying module function.
//
// The environment pointer is cleared from the closure for the duration
// of the call so that a drop issued from within the invocation cannot
// free the environment a second time. On every return path the
// reference count is decremented; at zero the disposer runs with the
// saved pointer, otherwise the pointer is restored for future calls.
func (c *Closure) Invoke(ctx context.Context, args ...uint64) ([]uint64, error) {
	if c.disposed {
		return nil, errors.ClosureReuse("invoke after disposal")
	}

	c.refs++
	env := c.env
	c.env = 0

	var (
		results []uint64
		callErr error
	)
	defer func() {
		c.refs--
		if c.refs <= 0 {
			c.disposeWith(ctx, env)
		} else {
			c.env = env
		}
	}()

	results, callErr = c.adapter.call(ctx, c.fn, env, args...)
	return results, callErr
}

// Drop releases one reference and reports whether the disposer ran.
func (c *Closure) Drop(ctx context.Context) (bool, error) {
	if c.disposed {
		return false, errors.ClosureReuse("drop after disposal")
	}
	if c.refs == 0 {
		return false, errors.ClosureReuse("drop with no references held")
	}

	c.refs--
	if c.refs > 0 {
		return false, nil
	}

	// Inside an invocation the environment pointer is stashed by
	// Invoke; its cleanup owns disposal. Mark the closure dead and let
	// the invocation's deferred step run the disposer exactly once.
	if c.env == 0 {
		return false, nil
	}

	env := c.env
	c.env = 0
	c.disposeWith(ctx, env)
	return true, nil
}

// Forget detaches the host wrapper without running the disposer. The
// module side becomes the sole owner of the environment.
func (c *Closure) Forget() {
	c.refs = 0
	c.env = 0
	c.disposed = true
}

// Disposed reports whether the disposer has run or the closure was
// forgotten.
func (c *Closure) Disposed() bool {
	return c.disposed
}

// RefCount returns the current reference count.
func (c *Closure) RefCount() int {
	return c.refs
}

func (c *Closure) disposeWith(ctx context.Context, env uint32) {
	if c.disposed {
		return
	}
	c.disposed = true
	if c.adapter.dispose != nil {
		_ = c.adapter.dispose(ctx, c.fn, env)
	}
}
