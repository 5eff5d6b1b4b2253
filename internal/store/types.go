package store

import "seating-backend/internal/geometry"

// TableInput carries the editable attributes of a table.
type TableInput struct {
	Label    string
	Corners  geometry.Corners
	Capacity geometry.Capacity
}

// TableSelection names the tables a reservation should occupy, directly or
// through table sets.
type TableSelection struct {
	TableIDs    []int64 `json:"table_ids"`
	TableSetIDs []int64 `json:"table_set_ids"`
}

// Empty reports whether nothing was selected.
func (s TableSelection) Empty() bool {
	return len(s.TableIDs) == 0 && len(s.TableSetIDs) == 0
}

// BookingRequest is the input of BookReservation.
type BookingRequest struct {
	CustomerID int64
	PartySize  int
	Highchairs int
	// Datetime is validated and canonicalised before any lookup.
	Datetime string
	Notes    string
	Tables   TableSelection
}

// ReservationQuery selects reservations in the inclusive range [Start, End],
// optionally limited to party sizes within [PartyMin, PartyMax].
type ReservationQuery struct {
	Start    string
	End      string
	PartyMin *int
	PartyMax *int
}
