package wasmbridge

// Memory represents WASM linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of WASM linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Buffer exposes the whole linear memory as a single byte slice.
// The returned slice aliases the module's memory directly; its identity
// (base pointer and length) changes whenever the memory grows, so callers
// caching derived views must re-check identity on every access.
type Buffer interface {
	Raw() ([]byte, error)
}

// Allocator allocates memory in WASM linear memory
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}

// Reallocator grows a previously allocated region in WASM linear memory.
// Implementations typically forward to the module's exported realloc.
type Reallocator interface {
	Allocator
	Realloc(ptr, oldSize, align, newSize uint32) (uint32, error)
}
