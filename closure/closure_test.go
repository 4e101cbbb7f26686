package closure

import (
	"context"
	"testing"
)

// fakeModule records calls and disposals the way a module's function
// table and destructor export would see them.
type fakeModule struct {
	calls     []uint32 // env pointer seen by each call
	disposals []uint32 // env pointer seen by each disposal
	onCall    func(env uint32) error
}

func (m *fakeModule) adapter() *Adapter {
	return NewAdapter(
		func(ctx context.Context, fn, env uint32, args ...uint64) ([]uint64, error) {
			m.calls = append(m.calls, env)
			if m.onCall != nil {
				if err := m.onCall(env); err != nil {
					return nil, err
				}
			}
			return []uint64{uint64(len(args))}, nil
		},
		func(ctx context.Context, fn, env uint32) error {
			m.disposals = append(m.disposals, env)
			return nil
		},
	)
}

func TestClosure_InvokeRestoresEnv(t *testing.T) {
	ctx := context.Background()
	mod := &fakeModule{}
	c := mod.adapter().Wrap(1, 0x100)

	results, err := c.Invoke(ctx, 7, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0] != 2 {
		t.Fatalf("results = %v", results)
	}
	if len(mod.calls) != 1 || mod.calls[0] != 0x100 {
		t.Fatalf("calls = %v, want [256]", mod.calls)
	}
	if len(mod.disposals) != 0 {
		t.Fatal("disposer ran during a plain invocation")
	}

	// The closure is callable again: the environment was restored.
	if _, err := c.Invoke(ctx); err != nil {
		t.Fatal(err)
	}
	if c.RefCount() != 1 {
		t.Fatalf("refs = %d after invocations, want 1", c.RefCount())
	}
}

func TestClosure_DropDisposesOnce(t *testing.T) {
	ctx := context.Background()
	mod := &fakeModule{}
	c := mod.adapter().Wrap(1, 0x200)

	disposed, err := c.Drop(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !disposed {
		t.Fatal("dropping the last reference should dispose")
	}
	if len(mod.disposals) != 1 || mod.disposals[0] != 0x200 {
		t.Fatalf("disposals = %v, want [512]", mod.disposals)
	}

	if _, err := c.Drop(ctx); err == nil {
		t.Fatal("drop after disposal should fail")
	}
	if _, err := c.Invoke(ctx); err == nil {
		t.Fatal("invoke after disposal should fail")
	}
	if len(mod.disposals) != 1 {
		t.Fatal("disposer ran more than once")
	}
}

func TestClosure_SelfDropDuringInvoke(t *testing.T) {
	ctx := context.Background()
	mod := &fakeModule{}
	c := mod.adapter().Wrap(1, 0x300)

	// The closure drops itself from inside its own invocation.
	mod.onCall = func(env uint32) error {
		disposed, err := c.Drop(ctx)
		if err != nil {
			return err
		}
		if disposed {
			t.Error("disposal must wait for the invocation to unwind")
		}
		return nil
	}

	if _, err := c.Invoke(ctx); err != nil {
		t.Fatal(err)
	}

	if len(mod.disposals) != 1 {
		t.Fatalf("disposer ran %d times after self-drop, want 1", len(mod.disposals))
	}
	if mod.disposals[0] != 0x300 {
		t.Fatalf("disposer saw env %#x, want 0x300", mod.disposals[0])
	}
	if !c.Disposed() {
		t.Fatal("closure should be disposed after self-drop unwinds")
	}
}

func TestClosure_DoubleSelfDropDuringInvoke(t *testing.T) {
	ctx := context.Background()
	mod := &fakeModule{}
	c := mod.adapter().Wrap(1, 0x400)

	mod.onCall = func(env uint32) error {
		_, _ = c.Drop(ctx)
		_, _ = c.Drop(ctx)
		return nil
	}

	_, _ = c.Invoke(ctx)

	if len(mod.disposals) != 1 {
		t.Fatalf("disposer ran %d times, want 1", len(mod.disposals))
	}
}

func TestClosure_ReentrantInvoke(t *testing.T) {
	ctx := context.Background()
	mod := &fakeModule{}
	c := mod.adapter().Wrap(1, 0x500)

	depth := 0
	mod.onCall = func(env uint32) error {
		if depth == 0 {
			depth++
			// A reentrant call sees the cleared environment; the module
			// passes its own saved pointer, the wrapper passes zero.
			if _, err := c.Invoke(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	if _, err := c.Invoke(ctx); err != nil {
		t.Fatal(err)
	}
	if len(mod.disposals) != 0 {
		t.Fatal("reentrant invocation must not dispose")
	}
	if c.RefCount() != 1 {
		t.Fatalf("refs = %d, want 1", c.RefCount())
	}
}

func TestClosure_ForgetSkipsDisposer(t *testing.T) {
	ctx := context.Background()
	mod := &fakeModule{}
	c := mod.adapter().Wrap(1, 0x600)

	c.Forget()

	if len(mod.disposals) != 0 {
		t.Fatal("forget must not run the disposer")
	}
	if !c.Disposed() {
		t.Fatal("forgotten closure should read as disposed host-side")
	}
	if _, err := c.Invoke(ctx); err == nil {
		t.Fatal("invoke after forget should fail")
	}
}

func TestClosure_CallErrorStillRestores(t *testing.T) {
	ctx := context.Background()
	mod := &fakeModule{}
	c := mod.adapter().Wrap(1, 0x700)

	fail := true
	mod.onCall = func(env uint32) error {
		if fail {
			return context.Canceled
		}
		return nil
	}

	if _, err := c.Invoke(ctx); err == nil {
		t.Fatal("expected call error")
	}
	if len(mod.disposals) != 0 {
		t.Fatal("error path must not dispose a closure with references")
	}

	fail = false
	if _, err := c.Invoke(ctx); err != nil {
		t.Fatalf("closure unusable after failed call: %v", err)
	}
}
