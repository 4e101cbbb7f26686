// Package memview provides cached typed views over a module's linear
// memory.
//
// Linear memory can be reallocated when it grows, which invalidates
// every slice taken over the old buffer. Cache keys its views on buffer
// identity (base pointer and length) and rebuilds them whenever the
// identity changes, so the check runs on every access rather than only
// at startup. All views alias the same buffer at different strides;
// none of them copy.
package memview
