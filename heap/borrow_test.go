package heap

import (
	"errors"
	"testing"

	bridgeerrors "github.com/hostwire/wasm-bridge/errors"
)

func TestBorrow_PushPop(t *testing.T) {
	table := New()

	h, err := table.PushBorrowed("arg")
	if err != nil {
		t.Fatal(err)
	}
	if h < reservedSlots || h >= table.borrowTop {
		t.Fatalf("borrowed handle %d outside borrow region", h)
	}

	v, err := table.Resolve(h)
	if err != nil {
		t.Fatal(err)
	}
	if v != "arg" {
		t.Fatalf("Resolve = %v, want arg", v)
	}

	if err := table.PopBorrowed(h); err != nil {
		t.Fatal(err)
	}
	if _, err := table.Resolve(h); err == nil {
		t.Fatal("borrowed slot should be invalid after pop")
	}
	if table.LiveBorrows() != 0 {
		t.Fatalf("LiveBorrows = %d, want 0", table.LiveBorrows())
	}
}

func TestBorrow_LIFOEnforced(t *testing.T) {
	table := New()

	h1, _ := table.PushBorrowed(1)
	h2, _ := table.PushBorrowed(2)

	err := table.PopBorrowed(h1)
	if err == nil {
		t.Fatal("out-of-order pop should fail")
	}
	target := &bridgeerrors.Error{Phase: bridgeerrors.PhaseRuntime, Kind: bridgeerrors.KindBorrowOrder}
	if !errors.Is(err, target) {
		t.Fatalf("out-of-order pop = %v, want borrow_order", err)
	}

	if err := table.PopBorrowed(h2); err != nil {
		t.Fatal(err)
	}
	if err := table.PopBorrowed(h1); err != nil {
		t.Fatal(err)
	}
}

func TestBorrow_PopEmpty(t *testing.T) {
	table := New()
	if err := table.PopBorrowed(reservedSlots); err == nil {
		t.Fatal("pop on empty borrow region should fail")
	}
}

func TestBorrow_Exhaustion(t *testing.T) {
	table := NewWithBorrowSlots(2)

	if _, err := table.PushBorrowed(1); err != nil {
		t.Fatal(err)
	}
	if _, err := table.PushBorrowed(2); err != nil {
		t.Fatal(err)
	}
	if _, err := table.PushBorrowed(3); err == nil {
		t.Fatal("push beyond capacity should fail")
	}
}

func TestBorrow_SeparateFromGeneralRegion(t *testing.T) {
	table := New()

	general := table.Allocate("general")
	borrowed, _ := table.PushBorrowed("borrowed")

	if borrowed >= table.borrowTop {
		t.Fatal("borrowed handle landed in general region")
	}
	if general < table.borrowTop {
		t.Fatal("general handle landed in borrow region")
	}

	// Release only works on general handles, PopBorrowed only on
	// borrowed ones.
	if err := table.Release(borrowed); err == nil {
		t.Fatal("Release of borrowed handle should fail")
	}
	if err := table.PopBorrowed(general); err == nil {
		t.Fatal("PopBorrowed of general handle should fail")
	}

	if err := table.PopBorrowed(borrowed); err != nil {
		t.Fatal(err)
	}
	if err := table.Release(general); err != nil {
		t.Fatal(err)
	}
}

func TestBorrow_WithBorrowedScoped(t *testing.T) {
	table := New()

	var seen Handle
	err := table.WithBorrowed("scoped", func(h Handle) error {
		seen = h
		v, err := table.Resolve(h)
		if err != nil {
			return err
		}
		if v != "scoped" {
			t.Fatalf("Resolve inside scope = %v", v)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := table.Resolve(seen); err == nil {
		t.Fatal("borrowed handle should be released when scope exits")
	}
}

func TestBorrow_WithBorrowedNested(t *testing.T) {
	table := New()

	err := table.WithBorrowed("outer", func(outer Handle) error {
		return table.WithBorrowed("inner", func(inner Handle) error {
			if inner >= outer {
				t.Fatalf("inner handle %d not below outer %d", inner, outer)
			}
			return nil
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if table.LiveBorrows() != 0 {
		t.Fatalf("LiveBorrows = %d after nested scopes, want 0", table.LiveBorrows())
	}
}
