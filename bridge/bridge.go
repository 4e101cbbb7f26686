package bridge

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	wasmbridge "github.com/hostwire/wasm-bridge"
	"github.com/hostwire/wasm-bridge/closure"
	"github.com/hostwire/wasm-bridge/codec"
	"github.com/hostwire/wasm-bridge/engine"
	"github.com/hostwire/wasm-bridge/errors"
	"github.com/hostwire/wasm-bridge/heap"
	"github.com/hostwire/wasm-bridge/imports"
	"github.com/hostwire/wasm-bridge/memview"
)

// Expected module exports. Allocation exports and the closure
// dispatchers are optional; start runs only when present.
const (
	ExportStart   = "_start"
	ExportMalloc  = "malloc"
	ExportRealloc = "realloc"
	ExportFree    = "free"

	// invoke-closure(fn, env, a0, a1, a2): the module's closure
	// dispatcher. Host-side callbacks with fewer arguments are padded
	// with zeros.
	ExportInvokeClosure = "invoke-closure"
	// drop-closure(fn, env): destructor for a closure environment.
	ExportDropClosure = "drop-closure"
)

// closureArgs is the fixed arity of the invoke-closure dispatcher.
const closureArgs = 3

// builtinNamespace holds the trampolines every loaded module gets.
const builtinNamespace = "hostwire:bridge"

// Bridge owns the cross-boundary state for one loaded module: the
// handle table, the typed memory views, the closure adapter, the
// import registry and the last-error slot. A Bridge and everything it
// loads belong to a single goroutine.
type Bridge struct {
	engine   *engine.Engine
	registry *imports.Registry
	client   *http.Client
	log      *zap.Logger

	table   *heap.Table
	adapter *closure.Adapter

	instance *engine.Instance
	memory   *engine.WazeroMemory
	views    *memview.Cache
	alloc    *engine.ExportAllocator
	invoke   bool
	drop     bool
	bound    bool

	startExport string
	lastErr     error
}

var _ imports.Env = (*Bridge)(nil)

// Option configures a Bridge.
type Option func(*Bridge)

// WithStartExport overrides the start entry point name. An empty name
// disables the start call.
func WithStartExport(name string) Option {
	return func(b *Bridge) { b.startExport = name }
}

// WithHTTPClient sets the client used for URL sources.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bridge) { b.client = c }
}

// WithLogger sets the bridge's logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithEngine replaces the default engine, for sharing a runtime or
// limiting memory.
func WithEngine(e *engine.Engine) Option {
	return func(b *Bridge) { b.engine = e }
}

// New creates a bridge with an empty handle table and the built-in
// trampolines registered. Register further capability modules before
// calling Load.
func New(ctx context.Context, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		client:      http.DefaultClient,
		log:         Logger(),
		table:       heap.New(),
		startExport: ExportStart,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.engine == nil {
		eng, err := engine.New(ctx, nil)
		if err != nil {
			return nil, errors.Load("create engine", err)
		}
		b.engine = eng
	}

	b.adapter = closure.NewAdapter(b.callClosure, b.dropClosure)
	b.registry = imports.NewRegistry(b)
	if err := b.registerBuiltins(); err != nil {
		return nil, err
	}
	return b, nil
}

// Registry exposes the import registry for capability registration.
func (b *Bridge) Registry() *imports.Registry {
	return b.registry
}

// RegisterModule registers a capability module's methods as import
// trampolines.
func (b *Bridge) RegisterModule(m imports.Module) error {
	return b.registry.RegisterModule(m)
}

// Load resolves the source, compiles it, binds the import table,
// instantiates, and runs the start export when the module has one.
func (b *Bridge) Load(ctx context.Context, src Source) (*Instance, error) {
	if b.instance != nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "bridge already has a loaded module")
	}

	data, err := src.resolve(ctx, b.client)
	if err != nil {
		return nil, err
	}

	compiled, err := b.engine.Compile(ctx, data)
	if err != nil {
		return nil, err
	}

	// Host modules persist in the runtime, so the import table binds
	// once even when the bridge loads again after a close.
	if !b.bound {
		if err := b.registry.Bind(ctx, b.engine.Runtime()); err != nil {
			return nil, errors.Load("bind imports", err)
		}
		b.bound = true
	}

	inst, err := b.engine.Instantiate(ctx, compiled, src.String())
	if err != nil {
		return nil, errors.Load("instantiate", err)
	}

	if err := b.wire(ctx, inst); err != nil {
		_ = inst.Close(ctx)
		return nil, err
	}

	b.log.Info("module loaded",
		zap.String("source", src.String()),
		zap.Int("exports", len(inst.ExportNames())),
		zap.Uint32("memory_size", b.memorySize()))

	return &Instance{bridge: b, inner: inst}, nil
}

// wire connects the bridge's table, views, allocator and closure
// dispatchers to the instance's exports.
func (b *Bridge) wire(ctx context.Context, inst *engine.Instance) error {
	b.instance = inst
	if mem := inst.Memory(); mem != nil {
		b.memory = mem
		b.views = memview.New(b.memory)
	}

	malloc, _ := inst.Function(ExportMalloc)
	realloc, _ := inst.Function(ExportRealloc)
	free, _ := inst.Function(ExportFree)
	if malloc != nil {
		b.alloc = engine.NewExportAllocator(malloc, realloc, free).WithContext(ctx)
	}

	_, err := inst.Function(ExportInvokeClosure)
	b.invoke = err == nil
	_, err = inst.Function(ExportDropClosure)
	b.drop = err == nil

	if b.startExport != "" {
		if _, err := inst.Function(b.startExport); err == nil {
			if _, err := inst.Call(ctx, b.startExport); err != nil {
				return errors.Load("run "+b.startExport, err)
			}
		}
	}
	return nil
}

func (b *Bridge) memorySize() uint32 {
	if b.memory == nil {
		return 0
	}
	return b.memory.Size()
}

// Heap returns the bridge's handle table.
func (b *Bridge) Heap() *heap.Table {
	return b.table
}

// Memory returns the loaded module's linear memory, nil before Load.
func (b *Bridge) Memory() wasmbridge.Memory {
	if b.memory == nil {
		return nil
	}
	return b.memory
}

// Views returns the cached typed windows over module memory, nil
// before Load.
func (b *Bridge) Views() *memview.Cache {
	return b.views
}

// Alloc returns the module's exported allocator, nil when the module
// exports none.
func (b *Bridge) Alloc() wasmbridge.Reallocator {
	if b.alloc == nil {
		return nil
	}
	return b.alloc
}

// WrapClosure adopts a module-side (fn, env) pair as a host-held
// closure with one reference.
func (b *Bridge) WrapClosure(fnPtr, envPtr uint32) *closure.Closure {
	return b.adapter.Wrap(fnPtr, envPtr)
}

// CaptureHostError stores err in the last-error slot, replacing any
// earlier one.
func (b *Bridge) CaptureHostError(namespace, name string, err error) {
	b.log.Warn("host call failed",
		zap.String("namespace", namespace),
		zap.String("function", name),
		zap.Error(err))
	b.lastErr = err
}

// TakeLastError returns and clears the last captured host error.
func (b *Bridge) TakeLastError() error {
	err := b.lastErr
	b.lastErr = nil
	return err
}

// EncodeString writes s into module memory through the exported
// allocator and returns its (ptr, len).
func (b *Bridge) EncodeString(s string) (uint32, uint32, error) {
	if b.memory == nil || b.alloc == nil {
		return 0, 0, errors.NotInitialized(errors.PhaseEncode, "module memory")
	}
	return codec.EncodeInto(s, b.memory, b.alloc)
}

// DecodeString reads the string at (ptr, length) from module memory.
func (b *Bridge) DecodeString(ptr, length uint32) (string, error) {
	if b.memory == nil {
		return "", errors.NotInitialized(errors.PhaseDecode, "module memory")
	}
	return codec.Decode(b.memory, ptr, length)
}

// Close releases the engine, every live handle and the loaded module.
func (b *Bridge) Close(ctx context.Context) error {
	b.table.Clear()
	return b.engine.Close(ctx)
}

func (b *Bridge) callClosure(ctx context.Context, fnPtr, envPtr uint32, args ...uint64) ([]uint64, error) {
	if b.instance == nil || !b.invoke {
		return nil, errors.NotInitialized(errors.PhaseCall, ExportInvokeClosure)
	}
	if len(args) > closureArgs {
		return nil, errors.InvalidInput(errors.PhaseCall, "too many closure arguments")
	}
	call := make([]uint64, 2+closureArgs)
	call[0] = uint64(fnPtr)
	call[1] = uint64(envPtr)
	copy(call[2:], args)
	return b.instance.Call(ctx, ExportInvokeClosure, call...)
}

func (b *Bridge) dropClosure(ctx context.Context, fnPtr, envPtr uint32) error {
	if b.instance == nil || !b.drop {
		return nil
	}
	_, err := b.instance.Call(ctx, ExportDropClosure, uint64(fnPtr), uint64(envPtr))
	return err
}

// registerBuiltins installs the trampolines every module imports:
// handle release and last-error retrieval.
func (b *Bridge) registerBuiltins() error {
	if err := b.registry.RegisterFunc(builtinNamespace, "drop-handle", func(_ context.Context, h uint32) error {
		return b.table.Release(heap.Handle(h))
	}); err != nil {
		return err
	}
	return b.registry.RegisterFunc(builtinNamespace, "take-last-error", func(_ context.Context) uint64 {
		err := b.TakeLastError()
		if err == nil {
			return uint64(heap.Null)
		}
		return uint64(b.table.Allocate(err.Error()))
	})
}
