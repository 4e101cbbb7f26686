package imports

import (
	wasmbridge "github.com/hostwire/wasm-bridge"
	"github.com/hostwire/wasm-bridge/closure"
	"github.com/hostwire/wasm-bridge/heap"
)

// ErrorSink receives host-call errors captured at a trampoline
// boundary. The bridge stores them in its last-error slot for the
// module to collect.
type ErrorSink interface {
	CaptureHostError(namespace, name string, err error)
}

// Env is what capability modules see of the bridge that owns them:
// the handle table, the instance's memory and allocator, and closure
// wrapping for continuation-style callbacks.
type Env interface {
	ErrorSink

	Heap() *heap.Table
	Memory() wasmbridge.Memory
	Alloc() wasmbridge.Reallocator
	WrapClosure(fnPtr, envPtr uint32) *closure.Closure
}
