package bridge

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// Instance is a loaded module. Exported functions and linear memory
// are the only channel to it; all richer values cross as handles,
// (ptr, len) pairs or numbers.
type Instance struct {
	bridge *Bridge
	inner  caller
}

// caller is the slice of engine.Instance the bridge instance uses.
type caller interface {
	Call(ctx context.Context, name string, args ...uint64) ([]uint64, error)
	ExportNames() []string
	Definitions() map[string]api.FunctionDefinition
	Close(ctx context.Context) error
}

// Call invokes an exported function by name.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	return i.inner.Call(ctx, name, args...)
}

// CallString encodes s into module memory and invokes name with the
// resulting (ptr, len) pair.
func (i *Instance) CallString(ctx context.Context, name, s string) ([]uint64, error) {
	ptr, length, err := i.bridge.EncodeString(s)
	if err != nil {
		return nil, err
	}
	return i.inner.Call(ctx, name, uint64(ptr), uint64(length))
}

// Exports lists the module's exported function names.
func (i *Instance) Exports() []string {
	return i.inner.ExportNames()
}

// Definitions returns the exported function definitions keyed by name.
func (i *Instance) Definitions() map[string]api.FunctionDefinition {
	return i.inner.Definitions()
}

// Bridge returns the owning bridge.
func (i *Instance) Bridge() *Bridge {
	return i.bridge
}

// Close releases the instance and clears the bridge's handle table.
func (i *Instance) Close(ctx context.Context) error {
	i.bridge.table.Clear()
	i.bridge.instance = nil
	i.bridge.memory = nil
	i.bridge.views = nil
	i.bridge.alloc = nil
	return i.inner.Close(ctx)
}
