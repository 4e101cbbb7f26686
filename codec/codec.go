package codec

import (
	"unicode/utf8"

	wasmbridge "github.com/hostwire/wasm-bridge"
	"github.com/hostwire/wasm-bridge/errors"
)

// Decode interprets length bytes at ptr as UTF-8 text. Malformed input
// fails; nothing is silently replaced with U+FFFD.
func Decode(mem wasmbridge.Memory, ptr, length uint32) (string, error) {
	if length == 0 {
		return "", nil
	}
	data, err := mem.Read(ptr, length)
	if err != nil {
		return "", errors.Wrap(errors.PhaseDecode, errors.KindOutOfBounds, err, "read string bytes")
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, data)
	}
	return string(data), nil
}

// Encode writes s into a freshly allocated buffer sized to its exact
// encoded byte length and returns the pointer and length.
func Encode(s string, mem wasmbridge.Memory, alloc wasmbridge.Allocator) (uint32, uint32, error) {
	if !utf8.ValidString(s) {
		return 0, 0, errors.InvalidUTF8(errors.PhaseEncode, []byte(s))
	}

	n := uint32(len(s))
	if n == 0 {
		return 0, 0, nil
	}

	ptr, err := alloc.Alloc(n, 1)
	if err != nil {
		return 0, 0, errors.AllocationFailed(errors.PhaseEncode, n, 1)
	}
	if err := mem.Write(ptr, []byte(s)); err != nil {
		alloc.Free(ptr, n, 1)
		return 0, 0, errors.Wrap(errors.PhaseEncode, errors.KindOutOfBounds, err, "write string bytes")
	}
	return ptr, n, nil
}

// EncodeInto writes s using the two-phase path: the ASCII prefix is
// written byte by byte into a buffer sized to the text's code unit
// count, and only when a non-ASCII unit appears is the buffer grown to
// a safe upper bound and the remainder bulk-encoded. All-ASCII text
// never pays for a bulk encode. The final allocation is trimmed to the
// true encoded length, which is returned alongside the pointer.
func EncodeInto(s string, mem wasmbridge.Memory, realloc wasmbridge.Reallocator) (uint32, uint32, error) {
	if !utf8.ValidString(s) {
		return 0, 0, errors.InvalidUTF8(errors.PhaseEncode, []byte(s))
	}
	if len(s) == 0 {
		return 0, 0, nil
	}

	units := codeUnits(s)
	ptr, err := realloc.Alloc(units, 1)
	if err != nil {
		return 0, 0, errors.AllocationFailed(errors.PhaseEncode, units, 1)
	}
	size := units

	var offset uint32
	i := 0
	for ; i < len(s); i++ {
		c := s[i]
		if c >= 0x80 {
			break
		}
		if err := mem.WriteU8(ptr+offset, c); err != nil {
			realloc.Free(ptr, size, 1)
			return 0, 0, errors.Wrap(errors.PhaseEncode, errors.KindOutOfBounds, err, "write ascii prefix")
		}
		offset++
	}

	if i < len(s) {
		rest := s[i:]
		// Three bytes per remaining code unit bounds the encoding:
		// codepoints above the BMP count as two units and need four
		// bytes.
		need := offset + 3*codeUnits(rest)
		if need > size {
			ptr, err = realloc.Realloc(ptr, size, 1, need)
			if err != nil {
				return 0, 0, errors.AllocationFailed(errors.PhaseEncode, need, 1)
			}
			size = need
		}
		if err := mem.Write(ptr+offset, []byte(rest)); err != nil {
			realloc.Free(ptr, size, 1)
			return 0, 0, errors.Wrap(errors.PhaseEncode, errors.KindOutOfBounds, err, "write string remainder")
		}
		offset += uint32(len(rest))
	}

	if offset != size {
		ptr, err = realloc.Realloc(ptr, size, 1, offset)
		if err != nil {
			return 0, 0, errors.AllocationFailed(errors.PhaseEncode, offset, 1)
		}
	}
	return ptr, offset, nil
}

// codeUnits counts UTF-16 code units, the unit the two-phase sizing is
// defined over.
func codeUnits(s string) uint32 {
	var n uint32
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
