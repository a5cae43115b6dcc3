package order

import (
	"slices"
	"time"

	"github.com/xenking/orderdesk/internal/domain/failure"
)

// Status represents the lifecycle state of an order.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusPlaced    Status = "PLACED"
	StatusDone      Status = "DONE"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusCreated, StatusPlaced, StatusDone, StatusCancelled, StatusExpired}

var transitions = map[Status][]Status{
	StatusCreated:   {StatusPlaced, StatusExpired},
	StatusPlaced:    {StatusDone, StatusCancelled},
	StatusDone:      {},
	StatusCancelled: {},
	StatusExpired:   {},
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether the table allows s -> target.
func (s Status) CanTransitionTo(target Status) bool {
	return slices.Contains(transitions[s], target)
}

func (s Status) String() string {
	return string(s)
}

// Expirable reports whether o matches the expiration predicate: CREATED,
// without items, and older than window at now.
func Expirable(o *Order, now time.Time, window time.Duration) bool {
	return o.Status == StatusCreated && len(o.Items) == 0 && now.Sub(o.CreatedAt) > window
}

// CheckTransition validates moving o to target. It checks the transition
// table and the data preconditions of the target state; recipient checks
// that need other aggregates are left to the caller.
func CheckTransition(o *Order, target Status, now time.Time, window time.Duration) error {
	switch target {
	case StatusPlaced:
		if o.Status != StatusCreated {
			return failure.New(failure.ReasonOrderNotOpen, o.ID, o.Status)
		}
		if len(o.Items) == 0 {
			return failure.New(failure.ReasonOrderHasNoItems, o.ID)
		}
	case StatusDone:
		if o.Status != StatusPlaced {
			return failure.New(failure.ReasonOrderNotPlaced, o.ID, o.Status)
		}
	case StatusCancelled:
		if o.Status != StatusPlaced {
			return failure.New(failure.ReasonOrderNotPlaced, o.ID, o.Status)
		}
	case StatusExpired:
		if !Expirable(o, now, window) {
			return failure.New(failure.ReasonIllegalTransition, o.ID, o.Status, target)
		}
	default:
		return failure.New(failure.ReasonIllegalTransition, o.ID, o.Status, target)
	}
	return nil
}
