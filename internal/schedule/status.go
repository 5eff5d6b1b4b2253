package schedule

// Status is a reservation lifecycle state.
type Status string

const (
	StatusRequested Status = "requested"
	StatusConfirmed Status = "confirmed"
	StatusSeated    Status = "seated"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusRequested: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusSeated, StatusCancelled},
	StatusSeated:    {StatusCompleted, StatusCancelled},
	StatusCompleted: {StatusCancelled},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// HoldsTables reports whether a reservation in this state claims its tables.
// Only cancellation releases a claim.
func (s Status) HoldsTables() bool {
	return s != StatusCancelled
}

// Reassignable reports whether the table linkage may still be swapped.
func (s Status) Reassignable() bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusSeated:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusSeated, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
