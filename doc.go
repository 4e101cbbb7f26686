// Package wasmbridge provides a host-side bridge for compiled WebAssembly
// modules: opaque handle tables, linear-memory marshalling, and a named
// table of host trampolines.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmbridge/          Root package with core Memory and Allocator interfaces
//	├── bridge/          High-level API for loading and talking to a module
//	├── engine/          Low-level wazero integration
//	├── heap/            Handle table with reserved slots and a borrow stack
//	├── memview/         Identity-checked cached typed views over linear memory
//	├── codec/           UTF-8 string marshalling across the memory boundary
//	├── closure/         Ref-counted adapters for module-side closures
//	├── imports/         Trampoline registry and built-in host capabilities
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Load a module and call an export:
//
//	br, err := bridge.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer br.Close(ctx)
//
//	inst, err := br.Load(ctx, bridge.FromFile("app.wasm"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	results, err := inst.Call(ctx, "update", 16)
//
// # Handles
//
// Every non-primitive value crossing the boundary is represented module-side
// as a small integer handle into a host-owned table. Handles 0 through 3 are
// the permanent singletons undefined, null, true and false. Call-scoped
// arguments use a separate stack-disciplined borrow region released in LIFO
// order as calls return.
//
// # Thread Safety
//
// A Bridge and everything it owns follow the module's single logical thread
// of control. Nothing in this library locks; do not share a Bridge between
// goroutines without external synchronization.
//
// # Memory Model
//
// WASM linear memory can only grow, never shrink. Growth may replace the
// backing buffer, so typed views over it are cached per buffer identity and
// rebuilt whenever the identity changes. See package memview.
package wasmbridge
