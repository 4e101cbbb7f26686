package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	wasmbridge "github.com/hostwire/wasm-bridge"
	"github.com/hostwire/wasm-bridge/errors"
)

// WazeroMemory adapts wazero api.Memory to the bridge's Memory, Buffer
// and MemorySizer interfaces.
type WazeroMemory struct {
	mem api.Memory
}

// WrapMemory wraps a wazero api.Memory.
func WrapMemory(mem api.Memory) *WazeroMemory {
	if mem == nil {
		return nil
	}
	return &WazeroMemory{mem: mem}
}

// Read reads bytes from memory.
func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseDecode, offset, length)
	}
	return data, nil
}

// Write writes bytes to memory.
func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseEncode, offset, uint32(len(data)))
	}
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *WazeroMemory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, offset, 1)
	}
	return v, nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *WazeroMemory) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.mem.ReadUint16Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, offset, 2)
	}
	return v, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, offset, 4)
	}
	return v, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *WazeroMemory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, offset, 8)
	}
	return v, nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *WazeroMemory) WriteU8(offset uint32, value uint8) error {
	if !m.mem.WriteByte(offset, value) {
		return errors.OutOfBounds(errors.PhaseEncode, offset, 1)
	}
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *WazeroMemory) WriteU16(offset uint32, value uint16) error {
	if !m.mem.WriteUint16Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseEncode, offset, 2)
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseEncode, offset, 4)
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *WazeroMemory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseEncode, offset, 8)
	}
	return nil
}

// Size returns the current memory size in bytes.
func (m *WazeroMemory) Size() uint32 {
	return m.mem.Size()
}

// Raw returns the whole linear memory as one slice. The slice aliases
// the module's memory; growth replaces it, so callers must re-check
// identity per access (package memview does).
func (m *WazeroMemory) Raw() ([]byte, error) {
	size := m.mem.Size()
	if size == 0 {
		return nil, nil
	}
	data, ok := m.mem.Read(0, size)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseDecode, 0, size)
	}
	return data, nil
}

var _ wasmbridge.Memory = (*WazeroMemory)(nil)
var _ wasmbridge.Buffer = (*WazeroMemory)(nil)
var _ wasmbridge.MemorySizer = (*WazeroMemory)(nil)

// ExportAllocator drives the module's exported allocation entry points.
// The expected export signatures follow the usual glue convention:
//
//	malloc(size, align) -> ptr
//	realloc(ptr, old_size, new_size, align) -> ptr
//	free(ptr, size, align)
type ExportAllocator struct {
	ctx     context.Context
	malloc  api.Function
	realloc api.Function
	free    api.Function
}

// NewExportAllocator wraps the three allocation exports. realloc and
// free may be nil when the module does not export them; Realloc then
// reports not_initialized and Free is a no-op.
func NewExportAllocator(malloc, realloc, free api.Function) *ExportAllocator {
	return &ExportAllocator{
		ctx:     context.Background(),
		malloc:  malloc,
		realloc: realloc,
		free:    free,
	}
}

// WithContext binds the context used for allocation calls.
func (a *ExportAllocator) WithContext(ctx context.Context) *ExportAllocator {
	a.ctx = ctx
	return a
}

// Alloc allocates size bytes in module memory.
func (a *ExportAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.malloc == nil {
		return 0, errors.NotInitialized(errors.PhaseEncode, "malloc export")
	}
	results, err := a.malloc.Call(a.ctx, uint64(size), uint64(align))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseEncode, errors.KindAllocation, err, "malloc")
	}
	if len(results) == 0 || uint32(results[0]) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseEncode, size, align)
	}
	return uint32(results[0]), nil
}

// Realloc grows a region previously returned by Alloc or Realloc.
func (a *ExportAllocator) Realloc(ptr, oldSize, align, newSize uint32) (uint32, error) {
	if a.realloc == nil {
		return 0, errors.NotInitialized(errors.PhaseEncode, "realloc export")
	}
	results, err := a.realloc.Call(a.ctx, uint64(ptr), uint64(oldSize), uint64(newSize), uint64(align))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseEncode, errors.KindAllocation, err, "realloc")
	}
	if len(results) == 0 || uint32(results[0]) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseEncode, newSize, align)
	}
	return uint32(results[0]), nil
}

// Free returns a region to the module allocator.
func (a *ExportAllocator) Free(ptr, size, align uint32) {
	if a.free == nil || ptr == 0 {
		return
	}
	_, _ = a.free.Call(a.ctx, uint64(ptr), uint64(size), uint64(align))
}

var _ wasmbridge.Reallocator = (*ExportAllocator)(nil)
