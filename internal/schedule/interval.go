// Package schedule holds the service-interval arithmetic and reservation
// lifecycle used by the booking transaction.
package schedule

import "time"

// Interval is a half-open time window [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// ServiceInterval is the window during which a table is occupied by a
// reservation starting at t.
func ServiceInterval(t time.Time, d time.Duration) Interval {
	return Interval{Start: t, End: t.Add(d)}
}

// Overlaps reports whether a and b share any instant.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Window is the range of reservation start times that can possibly collide
// with a reservation at t; it extends d on either side.
func Window(t time.Time, d time.Duration) Interval {
	return Interval{Start: t.Add(-d), End: t.Add(d)}
}

// Conflicts reports whether reservations starting at a and b collide on one
// table. A non-positive duration degrades to an exact-timestamp check.
func Conflicts(a, b time.Time, d time.Duration) bool {
	if d <= 0 {
		return a.Equal(b)
	}
	return ServiceInterval(a, d).Overlaps(ServiceInterval(b, d))
}
