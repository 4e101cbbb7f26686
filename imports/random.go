package imports

import (
	"context"
	"crypto/rand"
	"encoding/binary"

	"github.com/hostwire/wasm-bridge/errors"
)

// MaxRandomBytes limits single-call fills to prevent DoS (1MB).
const MaxRandomBytes = 1 << 20

// Random fills module memory with cryptographically secure bytes.
type Random struct {
	env Env
}

func NewRandom(env Env) *Random {
	return &Random{env: env}
}

func (r *Random) Namespace() string {
	return "hostwire:random"
}

// FillRandom writes length random bytes at ptr.
func (r *Random) FillRandom(_ context.Context, ptr, length uint32) error {
	if length > MaxRandomBytes {
		length = MaxRandomBytes
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return errors.Wrap(errors.PhaseHost, errors.KindHostCall, err, "read entropy")
	}
	return r.env.Memory().Write(ptr, buf)
}

// NextU64 returns a random 64-bit value.
func (r *Random) NextU64(_ context.Context) uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read should never fail on a properly configured
		// system; return 0 rather than panic.
		return 0
	}
	return binary.LittleEndian.Uint64(buf[:])
}
