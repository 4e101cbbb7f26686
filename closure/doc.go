// Package closure adapts module-side function/environment pointer
// pairs into callable host-side values with manual reference counting.
//
// A closure starts with one reference. Invocation temporarily takes a
// second one and clears the environment pointer so a drop issued from
// inside the call cannot free the environment twice; the guaranteed
// cleanup step either restores the pointer or, on the last reference,
// calls the module's disposer exactly once. Forget abandons the host
// wrapper without disposing, handing ownership to the module for good.
package closure
