// Package imports holds the trampoline table: the fixed, string-keyed
// set of host functions a loaded module may call.
//
// A trampoline is a thin forwarding function. It receives primitives
// and handles under the boundary calling convention, performs one real
// host operation, and marshals the result back as a primitive, handle
// or memory write. Registry collects trampolines per namespace and
// binds them into the engine; every bound entry runs inside a guard
// that captures host failures into the bridge's last-error slot
// instead of letting them tear across the boundary.
//
// The built-in capability modules (Console, Random, Clock, Timer,
// Fetch) cover the ambient host surface a typical module expects.
// Timer and Fetch bridge asynchronous work as continuations: the call
// returns a pending id immediately and a later Poll, on the bridge's
// thread, resumes the module through a registered closure.
package imports
