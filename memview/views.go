package memview

import (
	"unsafe"

	wasmbridge "github.com/hostwire/wasm-bridge"
	"github.com/hostwire/wasm-bridge/errors"
)

// Cache holds typed windows over a module's linear memory, rebuilt
// whenever the backing buffer's identity changes. Linear memory growth
// may replace the buffer entirely, so every accessor re-checks identity
// before returning a view; a stale view would alias freed memory.
type Cache struct {
	src wasmbridge.Buffer
	raw []byte
	i32 []int32
	f32 []float32
	f64 []float64
}

// New creates a view cache over src. No memory is touched until the
// first accessor call.
func New(src wasmbridge.Buffer) *Cache {
	return &Cache{src: src}
}

// Bytes returns the byte view of the current buffer.
func (c *Cache) Bytes() ([]byte, error) {
	if err := c.refresh(); err != nil {
		return nil, err
	}
	return c.raw, nil
}

// Int32s returns the 32-bit signed integer view. The trailing bytes of
// a buffer whose length is not a multiple of 4 are not addressable
// through this view.
func (c *Cache) Int32s() ([]int32, error) {
	if err := c.refresh(); err != nil {
		return nil, err
	}
	if c.i32 == nil && len(c.raw) >= 4 {
		c.i32 = unsafe.Slice((*int32)(unsafe.Pointer(unsafe.SliceData(c.raw))), len(c.raw)/4)
	}
	return c.i32, nil
}

// Float32s returns the 32-bit float view.
func (c *Cache) Float32s() ([]float32, error) {
	if err := c.refresh(); err != nil {
		return nil, err
	}
	if c.f32 == nil && len(c.raw) >= 4 {
		c.f32 = unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(c.raw))), len(c.raw)/4)
	}
	return c.f32, nil
}

// Float64s returns the 64-bit float view.
func (c *Cache) Float64s() ([]float64, error) {
	if err := c.refresh(); err != nil {
		return nil, err
	}
	if c.f64 == nil && len(c.raw) >= 8 {
		c.f64 = unsafe.Slice((*float64)(unsafe.Pointer(unsafe.SliceData(c.raw))), len(c.raw)/8)
	}
	return c.f64, nil
}

// refresh re-fetches the backing buffer and drops every cached view if
// its identity (base pointer or length) changed.
func (c *Cache) refresh() error {
	cur, err := c.src.Raw()
	if err != nil {
		return errors.Wrap(errors.PhaseRuntime, errors.KindOutOfBounds, err, "fetch linear memory buffer")
	}
	if c.raw != nil &&
		len(cur) == len(c.raw) &&
		unsafe.SliceData(cur) == unsafe.SliceData(c.raw) {
		return nil
	}
	c.raw = cur
	c.i32 = nil
	c.f32 = nil
	c.f64 = nil
	return nil
}
