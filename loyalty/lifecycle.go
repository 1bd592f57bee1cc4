package loyalty

// =============================================================================
// LIFECYCLE - Derived campaign status, never persisted
// =============================================================================

type Status string

const (
	StatusInactive Status = "inactive" // kill switch off
	StatusOpen     Status = "open"     // open-ended, dates ignored
	StatusActive   Status = "active"   // within its date window
	StatusUpcoming Status = "upcoming" // starts after today
	StatusEnded    Status = "ended"    // ended before today
)

// AcceptsTransactions reports whether new purchases may be recorded against
// a campaign in this status.
func (s Status) AcceptsTransactions() bool {
	return s == StatusActive || s == StatusOpen
}

// EvaluateLifecycle returns the status of c on today.
//
// Rules are checked in order and the first match wins. The order matters:
// a campaign switched off is inactive even when open-ended or in range.
//
//  1. !Active            -> inactive
//  2. OpenEnded          -> open
//  3. EndDate < today    -> ended
//  4. StartDate > today  -> upcoming
//  5. otherwise          -> active
//
// Both window bounds are inclusive.
func EvaluateLifecycle(c Campaign, today Day) Status {
	switch {
	case !c.Active:
		return StatusInactive
	case c.OpenEnded:
		return StatusOpen
	case !c.EndDate.IsZero() && c.EndDate.Before(today):
		return StatusEnded
	case !c.StartDate.IsZero() && c.StartDate.After(today):
		return StatusUpcoming
	default:
		return StatusActive
	}
}
