package heap

// Handle is an opaque reference to a host-side value held in a Table.
// Handles 0 through 3 are reserved singletons and are always valid.
type Handle uint32

// Reserved handles. These are permanent: they are never allocated,
// never released and never reused.
const (
	Undefined Handle = 0
	Null      Handle = 1
	True      Handle = 2
	False     Handle = 3

	reservedSlots = 4
)

type undefinedValue struct{}

// UndefinedValue is the host-side representation of the undefined singleton.
// Resolve(Undefined) returns it; Null resolves to nil.
var UndefinedValue any = undefinedValue{}

// Event types for handle lifecycle notifications.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventReleased
	EventBorrowed
	EventBorrowReturned
)

// Event represents a handle lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// Dropper is optionally implemented by values that need cleanup when
// their handle is released.
type Dropper interface {
	Drop()
}
