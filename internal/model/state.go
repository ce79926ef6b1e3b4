package model

// OrderState is the canonical order lifecycle state. The numeric values of
// Placed..Cancelled are the wire codes used by the remote order service;
// Draft and Completed are local notions (no remote record yet / paid and
// cart cleared).
type OrderState int

const (
	StateDraft     OrderState = 0
	StatePlaced    OrderState = 1
	StateInService OrderState = 2
	StateReserved  OrderState = 3
	StateCancelled OrderState = 4
	StateCompleted OrderState = 5
)

func (s OrderState) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StatePlaced:
		return "placed"
	case StateInService:
		return "in_service"
	case StateReserved:
		return "reserved"
	case StateCancelled:
		return "cancelled"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

func (s OrderState) Terminal() bool {
	return s == StateCancelled || s == StateCompleted
}

// CanTransition reports whether from → to is a legal lifecycle transition.
func CanTransition(from, to OrderState) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatePlaced:
		return from == StateDraft
	case StateInService:
		// payment completion, instant or confirmed asynchronous
		return from == StatePlaced || from == StateReserved
	case StateCancelled:
		// explicit cancel from any non-terminal state, or lazy
		// reservation expiry
		return true
	case StateCompleted:
		return from == StateInService
	default:
		return false
	}
}
