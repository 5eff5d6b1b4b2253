package parse

import (
	"fmt"
	"regexp"
	"strings"

	"seating-backend/internal/apperr"
)

var (
	phoneRe   = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)
	nonDigits = regexp.MustCompile(`\D`)
)

// ValidatePhone checks that raw is exactly in (XXX) XXX-XXXX form. Nothing
// is trimmed; lenient input goes through NormalizePhone first.
func ValidatePhone(raw string) (string, error) {
	if len(raw) != 14 || !phoneRe.MatchString(raw) {
		return "", apperr.Field(apperr.ErrInvalidPhoneFormat, "phone_number",
			"%q must be formatted as (XXX) XXX-XXXX", raw)
	}
	return raw, nil
}

// NormalizePhone rewrites a loosely formatted North American number into
// (XXX) XXX-XXXX. Ten digits, or eleven starting with the country code 1, are
// accepted once all non-digits are stripped.
func NormalizePhone(raw string) (string, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", apperr.Field(apperr.ErrInvalidPhoneFormat, "phone_number",
			"%q does not contain a 10-digit phone number", raw)
	}
	return fmt.Sprintf("(%s) %s-%s", digits[0:3], digits[3:6], digits[6:10]), nil
}
