package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"seating-backend/internal/apperr"
)

func TestParseDateTime(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  time.Time
		expectErr bool
	}{
		{
			name:     "T separator",
			raw:      "2024-06-01T18:00:00",
			expected: time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC),
		},
		{
			name:     "Space separator",
			raw:      "2024-06-01 20:15:00",
			expected: time.Date(2024, 6, 1, 20, 15, 0, 0, time.UTC),
		},
		{
			name:     "Leap day",
			raw:      "2024-02-29 12:45:00",
			expected: time.Date(2024, 2, 29, 12, 45, 0, 0, time.UTC),
		},
		{name: "February 30", raw: "2024-02-30T12:00:00", expectErr: true},
		{name: "Non-leap February 29", raw: "2023-02-29T12:00:00", expectErr: true},
		{name: "April 31", raw: "2024-04-31T12:00:00", expectErr: true},
		{name: "Day zero", raw: "2024-04-00T12:00:00", expectErr: true},
		{name: "Month 13", raw: "2024-13-01T12:00:00", expectErr: true},
		{name: "Hour 24", raw: "2024-06-01T24:00:00", expectErr: true},
		{name: "Minute not a quarter", raw: "2024-06-01T18:10:00", expectErr: true},
		{name: "Non-zero seconds", raw: "2024-06-01T18:00:30", expectErr: true},
		{name: "Short year", raw: "24-06-01T18:00:00", expectErr: true},
		{name: "Trailing zone", raw: "2024-06-01T18:00:00Z", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := ParseDateTime("reservation_datetime", tc.raw)
			if tc.expectErr {
				assert.ErrorIs(t, err, apperr.ErrInvalidDateTime)
				e, ok := apperr.As(err)
				if assert.True(t, ok) {
					assert.Equal(t, "reservation_datetime", e.Field)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, parsed)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("date", "2024-06-01")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("date", "2024-02-30")
	assert.ErrorIs(t, err, apperr.ErrInvalidDateTime)
}

func TestFormatDateTime(t *testing.T) {
	assert.Equal(t, "2024-06-01 18:00:00", FormatDateTime(time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)))
}

func TestValidatePhone(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  string
		expectErr bool
	}{
		{name: "Canonical", raw: "(555) 123-4567", expected: "(555) 123-4567"},
		{name: "Surrounding spaces", raw: " (555) 123-4567 ", expectErr: true},
		{name: "Trailing newline", raw: "(555) 123-4567\n", expectErr: true},
		{name: "Bare digits", raw: "5551234567", expectErr: true},
		{name: "Missing space", raw: "(555)123-4567", expectErr: true},
		{name: "Letters", raw: "(555) ABC-4567", expectErr: true},
		{name: "Too long", raw: "(555) 123-45678", expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidatePhone(tc.raw)
			if tc.expectErr {
				assert.ErrorIs(t, err, apperr.ErrInvalidPhoneFormat)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, got)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  string
		expectErr bool
	}{
		{name: "Ten digits", raw: "5551234567", expected: "(555) 123-4567"},
		{name: "Dashed", raw: "555-123-4567", expected: "(555) 123-4567"},
		{name: "Country code", raw: "+1 (555) 123-4567", expected: "(555) 123-4567"},
		{name: "Already canonical", raw: "(555) 123-4567", expected: "(555) 123-4567"},
		{name: "Padded", raw: " (555) 123-4567 ", expected: "(555) 123-4567"},
		{name: "Eleven digits without 1", raw: "25551234567", expectErr: true},
		{name: "Too short", raw: "555-1234", expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.raw)
			if tc.expectErr {
				assert.ErrorIs(t, err, apperr.ErrInvalidPhoneFormat)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, got)
			}
		})
	}
}
