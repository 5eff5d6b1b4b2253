// Package geometry holds the static shape and seating bounds of tables and the
// capacity arithmetic for groups of tables.
package geometry

import "seating-backend/internal/apperr"

// Point is an (x, y) floor-plan coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Corners are the four corners of a table's footprint. They do not have to
// form a perfect rectangle, only respect left/right and top/bottom ordering.
type Corners struct {
	TopLeft     Point `json:"top_left"`
	TopRight    Point `json:"top_right"`
	BottomLeft  Point `json:"bottom_left"`
	BottomRight Point `json:"bottom_right"`
}

// Capacity is a chair range, for a single table or the sum over a group.
type Capacity struct {
	DefaultChairs int `json:"default_chairs"`
	MaxChairs     int `json:"max_chairs"`
}

// ValidateTableGeometry checks the four ordering inequalities.
func ValidateTableGeometry(c Corners) error {
	switch {
	case !(c.TopLeft.X < c.TopRight.X):
		return apperr.Field(apperr.ErrDegenerateGeometry, "top_left.x",
			"top-left x (%g) must be less than top-right x (%g)", c.TopLeft.X, c.TopRight.X)
	case !(c.BottomLeft.X < c.BottomRight.X):
		return apperr.Field(apperr.ErrDegenerateGeometry, "bottom_left.x",
			"bottom-left x (%g) must be less than bottom-right x (%g)", c.BottomLeft.X, c.BottomRight.X)
	case !(c.TopLeft.Y > c.BottomLeft.Y):
		return apperr.Field(apperr.ErrDegenerateGeometry, "top_left.y",
			"top-left y (%g) must be greater than bottom-left y (%g)", c.TopLeft.Y, c.BottomLeft.Y)
	case !(c.TopRight.Y > c.BottomRight.Y):
		return apperr.Field(apperr.ErrDegenerateGeometry, "top_right.y",
			"top-right y (%g) must be greater than bottom-right y (%g)", c.TopRight.Y, c.BottomRight.Y)
	}
	return nil
}

// ValidateChairs checks 1 <= default <= max.
func ValidateChairs(c Capacity) error {
	if c.DefaultChairs < 1 {
		return apperr.Field(apperr.ErrInvalidChairCount, "default_chairs",
			"default chairs must be at least 1, got %d", c.DefaultChairs)
	}
	if c.MaxChairs < c.DefaultChairs {
		return apperr.Field(apperr.ErrInvalidChairCount, "max_chairs",
			"max chairs (%d) must not be below default chairs (%d)", c.MaxChairs, c.DefaultChairs)
	}
	return nil
}

// ChairRange returns the default and maximum chair counts.
func ChairRange(c Capacity) (int, int) {
	return c.DefaultChairs, c.MaxChairs
}

// Combine sums the capacities of tables pushed together.
func Combine(members ...Capacity) Capacity {
	var total Capacity
	for _, m := range members {
		total.DefaultChairs += m.DefaultChairs
		total.MaxChairs += m.MaxChairs
	}
	return total
}

// CanAccommodate reports whether partySize fits within the maximum chairs.
func CanAccommodate(c Capacity, partySize int) bool {
	return partySize <= c.MaxChairs
}
