// Package engine wraps wazero: runtime construction, module
// compilation and instantiation, and adapters exposing an instance's
// memory and allocator exports through the bridge interfaces.
package engine
