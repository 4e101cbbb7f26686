package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseHost,
				Kind:   KindHostCall,
				Path:   []string{"env", "fetch-begin"},
				Detail: "connection refused",
			},
			contains: []string{"[host]", "host_call", "env.fetch-begin", "connection refused"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[decode]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindLoadFailed,
				Detail: "fetch module",
				Cause:  errors.New("unexpected EOF"),
			},
			contains: []string{"[load]", "load_failed", "fetch module", "caused by", "unexpected EOF"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindLoadFailed,
		Cause: cause,
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestError_Is(t *testing.T) {
	err := DoubleRelease(7)
	target := &Error{Phase: PhaseRuntime, Kind: KindDoubleRelease}
	if !errors.Is(err, target) {
		t.Error("errors with matching phase and kind should match")
	}

	other := &Error{Phase: PhaseRuntime, Kind: KindInvalidHandle}
	if errors.Is(err, other) {
		t.Error("errors with different kinds should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("boom")
	err := New(PhaseBind, KindRegistration).
		Path("env", "now").
		Value(42).
		Cause(cause).
		Detail("failed after %d tries", 3).
		Build()

	if err.Phase != PhaseBind || err.Kind != KindRegistration {
		t.Errorf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Detail != "failed after 3 tries" {
		t.Errorf("unexpected detail: %q", err.Detail)
	}
	if err.Value != 42 {
		t.Errorf("unexpected value: %v", err.Value)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not chained")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		kind     Kind
		contains string
	}{
		{"invalid handle", InvalidHandle(PhaseCall, 99, "out of range"), KindInvalidHandle, "handle 99"},
		{"double release", DoubleRelease(5), KindDoubleRelease, "already released"},
		{"borrow order", BorrowOrder(10, 12), KindBorrowOrder, "LIFO"},
		{"invalid utf8", InvalidUTF8(PhaseDecode, []byte{0xff, 0xfe}), KindInvalidUTF8, "fffe"},
		{"out of bounds", OutOfBounds(PhaseDecode, 1024, 16), KindOutOfBounds, "offset 1024"},
		{"arity mismatch", ArityMismatch("env", "log", 2, 3), KindArityMismatch, "2 arguments"},
		{"not found", NotFound(PhaseCall, "export", "main"), KindNotFound, `"main"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", tt.err.Kind, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("message %q does not contain %q", tt.err.Error(), tt.contains)
			}
		})
	}
}

func TestInvalidUTF8_TruncatesPreview(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = 0xff
	}
	err := InvalidUTF8(PhaseDecode, data)
	// 32 bytes hex-encoded is 64 chars; the detail should not balloon
	if len(err.Detail) > 120 {
		t.Errorf("detail too long: %d chars", len(err.Detail))
	}
}
