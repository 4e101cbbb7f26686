package imports

import (
	"context"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/hostwire/wasm-bridge/codec"
)

// Console routes module-side logging to the host's structured logger,
// the stand-in for a console object. String arguments arrive as
// (ptr, len) pairs into linear memory.
type Console struct {
	env Env
	log *zap.Logger
}

// NewConsole creates the console capability. logger may be nil, in
// which case the package logger is used.
func NewConsole(env Env, logger *zap.Logger) *Console {
	if logger == nil {
		logger = Logger()
	}
	return &Console{env: env, log: logger}
}

func (c *Console) Namespace() string {
	return "hostwire:console"
}

// Log emits an info-level message from module memory.
func (c *Console) Log(_ context.Context, ptr, length uint32) error {
	msg, err := codec.Decode(c.env.Memory(), ptr, length)
	if err != nil {
		return err
	}
	c.log.Info(msg, zap.String("source", "module"))
	return nil
}

// Warn emits a warn-level message from module memory.
func (c *Console) Warn(_ context.Context, ptr, length uint32) error {
	msg, err := codec.Decode(c.env.Memory(), ptr, length)
	if err != nil {
		return err
	}
	c.log.Warn(msg, zap.String("source", "module"))
	return nil
}

// Error emits an error-level message from module memory.
func (c *Console) Error(_ context.Context, ptr, length uint32) error {
	msg, err := codec.Decode(c.env.Memory(), ptr, length)
	if err != nil {
		return err
	}
	c.log.Error(msg, zap.String("source", "module"))
	return nil
}

// IsTerminal reports whether host stdout is an interactive terminal.
func (c *Console) IsTerminal(_ context.Context) uint32 {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return 1
	}
	return 0
}
