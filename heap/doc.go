// Package heap implements the handle table that backs every host-side
// value referenced by a loaded module.
//
// Module code never sees raw host references; it sees small integers
// indexing into a Table. Handles 0-3 are the permanent singletons
// undefined, null, true and false. General handles are allocated from a
// growable region with free-list reuse and released explicitly. A
// separate fixed-size borrow region serves call-scoped arguments with
// strict stack discipline: pushed before a call into the module, popped
// in LIFO order when the call returns.
//
// A handle is valid only between allocation and release. The table
// reports double release as an error rather than corrupting the free
// list; preventing it is the owning layer's job.
package heap
