package bridge

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/hostwire/wasm-bridge/errors"
)

// testModule is a hand-assembled binary exporting a one-page memory,
// answer() -> 42, and a _start that stores 1 at address 0.
func testModule() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, // magic, version
		// type: () -> i32, () -> ()
		0x01, 0x08, 0x02, 0x60, 0x00, 0x01, 0x7F, 0x60, 0x00, 0x00,
		// funcs: answer:0, _start:1
		0x03, 0x03, 0x02, 0x00, 0x01,
		// memory: min 1 page
		0x05, 0x03, 0x01, 0x00, 0x01,
		// exports
		0x07, 0x1C, 0x03,
		0x06, 'a', 'n', 's', 'w', 'e', 'r', 0x00, 0x00,
		0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x01,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		// code: answer = i32.const 42; _start = i32.store 1 at 0
		0x0A, 0x10, 0x02,
		0x04, 0x00, 0x41, 0x2A, 0x0B,
		0x09, 0x00, 0x41, 0x00, 0x41, 0x01, 0x36, 0x02, 0x00, 0x0B,
	}
}

// emptyModule is the smallest valid binary: no memory, no exports.
func emptyModule() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
}

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	ctx := context.Background()
	b, err := New(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close(ctx) })
	return b
}

func TestLoadRunsStartAndWiresMemory(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	inst, err := b.Load(ctx, FromBytes(testModule()))
	if err != nil {
		t.Fatal(err)
	}

	if b.Memory() == nil {
		t.Fatal("memory not wired")
	}
	if b.Views() == nil {
		t.Fatal("views not wired")
	}

	// _start stored 1 at address 0.
	v, err := b.Memory().ReadU8(0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Fatalf("memory[0] = %d, start export did not run", v)
	}

	results, err := inst.Call(ctx, "answer")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0] != 42 {
		t.Fatalf("answer() = %v, want [42]", results)
	}
}

func TestLoadDisabledStart(t *testing.T) {
	ctx := context.Background()
	b, err := New(ctx, WithStartExport(""))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close(ctx)

	if _, err := b.Load(ctx, FromBytes(testModule())); err != nil {
		t.Fatal(err)
	}

	v, _ := b.Memory().ReadU8(0)
	if v != 0 {
		t.Fatal("start ran despite being disabled")
	}
}

func TestLoadModuleWithoutMemory(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	inst, err := b.Load(ctx, FromBytes(emptyModule()))
	if err != nil {
		t.Fatal(err)
	}
	if b.Memory() != nil {
		t.Fatal("no memory export, Memory() should be nil")
	}
	if len(inst.Exports()) != 0 {
		t.Fatalf("exports = %v, want none", inst.Exports())
	}

	// String traffic needs memory and an allocator.
	if _, _, err := b.EncodeString("x"); err == nil {
		t.Fatal("EncodeString without memory should fail")
	}
}

func TestLoadTwiceRejected(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	if _, err := b.Load(ctx, FromBytes(emptyModule())); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Load(ctx, FromBytes(emptyModule())); err == nil {
		t.Fatal("second load on one bridge must fail")
	}
}

func TestLoadInvalidBinary(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	_, err := b.Load(ctx, FromBytes([]byte("definitely not wasm")))
	if err == nil {
		t.Fatal("garbage should not compile")
	}
	target := &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindLoadFailed}
	if !stderrors.Is(err, target) {
		t.Fatalf("err = %v, want load_failed", err)
	}
}

func TestTakeLastError(t *testing.T) {
	b := newTestBridge(t)

	if b.TakeLastError() != nil {
		t.Fatal("fresh bridge has no last error")
	}

	first := stderrors.New("first")
	second := stderrors.New("second")
	b.CaptureHostError("ns", "fn", first)
	b.CaptureHostError("ns", "fn", second)

	if got := b.TakeLastError(); got != second {
		t.Fatalf("TakeLastError = %v, want the most recent capture", got)
	}
	if b.TakeLastError() != nil {
		t.Fatal("take must clear the slot")
	}
}

func TestBuiltinTrampolinesRegistered(t *testing.T) {
	b := newTestBridge(t)

	found := false
	for _, ns := range b.Registry().Namespaces() {
		if ns == builtinNamespace {
			found = true
		}
	}
	if !found {
		t.Fatalf("namespaces = %v, missing %s", b.Registry().Namespaces(), builtinNamespace)
	}
	if b.Registry().Len() < 2 {
		t.Fatal("drop-handle and take-last-error should be registered")
	}
}

func TestInstanceCloseClearsHandles(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	inst, err := b.Load(ctx, FromBytes(emptyModule()))
	if err != nil {
		t.Fatal(err)
	}

	h := b.Heap().Allocate("pinned")
	if _, err := b.Heap().Resolve(h); err != nil {
		t.Fatal(err)
	}

	if err := inst.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if b.Heap().Len() != 0 {
		t.Fatalf("heap has %d live handles after close", b.Heap().Len())
	}
	if b.Memory() != nil || b.Views() != nil {
		t.Fatal("instance wiring should be cleared on close")
	}

	// The bridge can load again after the instance is gone.
	if _, err := b.Load(ctx, FromBytes(testModule())); err != nil {
		t.Fatal(err)
	}
}

func TestWrapClosureWithoutDispatcher(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	if _, err := b.Load(ctx, FromBytes(emptyModule())); err != nil {
		t.Fatal(err)
	}

	cl := b.WrapClosure(7, 0x100)
	if _, err := cl.Invoke(ctx); err == nil {
		t.Fatal("invoking without an invoke-closure export must fail")
	}
	// Dropping is a no-op without a drop-closure export.
	if _, err := cl.Drop(ctx); err != nil {
		t.Fatal(err)
	}
}
