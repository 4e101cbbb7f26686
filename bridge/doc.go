// Package bridge ties the boundary mechanisms together for one loaded
// module: the handle table, the typed memory views, the string codec,
// the closure adapter and the import trampolines, plus the loader that
// produces a running instance.
//
// A Bridge is created empty, capability modules are registered on it,
// and Load then compiles the binary, binds the import table,
// instantiates and runs the start export:
//
//	b, err := bridge.New(ctx)
//	b.RegisterModule(imports.NewConsole(b, nil))
//	inst, err := b.Load(ctx, bridge.FromFile("app.wasm"))
//	results, err := inst.Call(ctx, "render", uint64(width))
//
// Exported functions and linear memory are the only channel to the
// module. Values that cannot cross as numbers cross as handles into
// the bridge's table or as (ptr, len) pairs through the codec.
//
// Host-call failures inside trampolines land in the bridge's
// last-error slot; the module collects them through the built-in
// take-last-error import, and Go callers through TakeLastError.
// Protocol corruption (bad handles, malformed text, out-of-bounds
// access) does not land there: it traps the calling export instead.
//
// A Bridge is single-threaded. Everything it owns must be touched from
// one goroutine; capability modules that do background work deliver
// results only through their Poll methods on that same goroutine.
package bridge
