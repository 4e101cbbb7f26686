package engine

import (
	"context"
	"reflect"

	"github.com/tetratelabs/wazero/api"

	"github.com/hostwire/wasm-bridge/errors"
)

// Instance is an instantiated module: the export table and memory the
// rest of the bridge talks through.
type Instance struct {
	module api.Module
}

// Module returns the raw wazero module.
func (i *Instance) Module() api.Module {
	return i.module
}

// Memory returns the instance's exported linear memory wrapped for
// bridge use, or nil if the module exports none.
func (i *Instance) Memory() *WazeroMemory {
	mem := i.module.Memory()
	// wazero returns a typed-nil *wasm.MemoryInstance inside the
	// interface when the module has no memory, so a plain nil
	// comparison is not enough.
	if mem == nil || reflect.ValueOf(mem).Kind() == reflect.Ptr && reflect.ValueOf(mem).IsNil() {
		return nil
	}
	return WrapMemory(mem)
}

// Function looks up an exported function.
func (i *Instance) Function(name string) (api.Function, error) {
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseCall, "export", name)
	}
	return fn, nil
}

// Call invokes an exported function by name.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	fn, err := i.Function(name)
	if err != nil {
		return nil, err
	}
	results, err := fn.Call(ctx, args...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCall, errors.KindHostCall, err, "call "+name)
	}
	return results, nil
}

// Definitions returns the exported function definitions keyed by name.
func (i *Instance) Definitions() map[string]api.FunctionDefinition {
	return i.module.ExportedFunctionDefinitions()
}

// ExportNames lists the instance's exported functions.
func (i *Instance) ExportNames() []string {
	defs := i.module.ExportedFunctionDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	return names
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.module.Close(ctx)
}
