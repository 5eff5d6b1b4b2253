// Package apperr defines the typed failures returned by the seating store and
// mapped to HTTP responses by the API layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups failures by how a caller should react to them.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindConflict    Kind = "conflict"
	KindConsistency Kind = "consistency"
	KindNotFound    Kind = "not_found"
	KindOutOfRange  Kind = "out_of_range"
	KindTransient   Kind = "transient"
	KindUnavailable Kind = "unavailable"
	KindInternal    Kind = "internal"
)

// Code identifies a specific failure.
type Code string

const (
	CodeDegenerateGeometry      Code = "DegenerateGeometry"
	CodeInvalidChairCount       Code = "InvalidChairCount"
	CodeInvalidDateTime         Code = "InvalidDateTime"
	CodeInvalidPhoneFormat      Code = "InvalidPhoneFormat"
	CodeInvalidPartyComposition Code = "InvalidPartyComposition"
	CodeInvalidRange            Code = "InvalidRange"
	CodeInvalidPartyFilter      Code = "InvalidPartyFilter"
	CodeInvalidArgument         Code = "InvalidArgument"

	CodeTableConflict          Code = "TableConflict"
	CodeDuplicateSectionNumber Code = "DuplicateSectionNumber"
	CodeSectionAlreadyInLayout Code = "SectionAlreadyInLayout"
	CodeDuplicateBookingSlot   Code = "DuplicateBookingSlot"
	CodeTableAlreadyPlaced     Code = "TableAlreadyPlaced"
	CodeInsufficientCapacity   Code = "InsufficientCapacity"
	CodeAlreadyCancelled       Code = "AlreadyCancelled"
	CodeInvalidTransition      Code = "InvalidTransition"

	CodeOverlappingPlacement Code = "OverlappingPlacement"
	CodeEmptyTableSet        Code = "EmptyTableSet"
	CodeTableInUse           Code = "TableInUse"
	CodeSlotNotEmpty         Code = "SlotNotEmpty"

	CodeNotFound      Code = "NotFound"
	CodeTableNotFound Code = "TableNotFound"

	CodeOutOfRange Code = "OutOfRange"

	CodeSerializationFailure Code = "SerializationFailure"
	CodeStoreUnavailable     Code = "StoreUnavailable"
	CodeInternal             Code = "Internal"
)

// Error is the single failure type surfaced by store commands and queries.
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    Code   `json:"code"`
	Field   string `json:"field,omitempty"`
	TableID int64  `json:"table_id,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code, so the sentinels below work with errors.Is regardless of
// message, field or table.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrDegenerateGeometry      = &Error{Kind: KindValidation, Code: CodeDegenerateGeometry}
	ErrInvalidChairCount       = &Error{Kind: KindValidation, Code: CodeInvalidChairCount}
	ErrInvalidDateTime         = &Error{Kind: KindValidation, Code: CodeInvalidDateTime}
	ErrInvalidPhoneFormat      = &Error{Kind: KindValidation, Code: CodeInvalidPhoneFormat}
	ErrInvalidPartyComposition = &Error{Kind: KindValidation, Code: CodeInvalidPartyComposition}
	ErrInvalidRange            = &Error{Kind: KindValidation, Code: CodeInvalidRange}
	ErrInvalidPartyFilter      = &Error{Kind: KindValidation, Code: CodeInvalidPartyFilter}
	ErrInvalidArgument         = &Error{Kind: KindValidation, Code: CodeInvalidArgument}

	ErrTableConflict          = &Error{Kind: KindConflict, Code: CodeTableConflict}
	ErrDuplicateSectionNumber = &Error{Kind: KindConflict, Code: CodeDuplicateSectionNumber}
	ErrSectionAlreadyInLayout = &Error{Kind: KindConflict, Code: CodeSectionAlreadyInLayout}
	ErrDuplicateBookingSlot   = &Error{Kind: KindConflict, Code: CodeDuplicateBookingSlot}
	ErrTableAlreadyPlaced     = &Error{Kind: KindConflict, Code: CodeTableAlreadyPlaced}
	ErrInsufficientCapacity   = &Error{Kind: KindConflict, Code: CodeInsufficientCapacity}
	ErrAlreadyCancelled       = &Error{Kind: KindConflict, Code: CodeAlreadyCancelled}
	ErrInvalidTransition      = &Error{Kind: KindConflict, Code: CodeInvalidTransition}

	ErrOverlappingPlacement = &Error{Kind: KindConsistency, Code: CodeOverlappingPlacement}
	ErrEmptyTableSet        = &Error{Kind: KindConsistency, Code: CodeEmptyTableSet}
	ErrTableInUse           = &Error{Kind: KindConsistency, Code: CodeTableInUse}
	ErrSlotNotEmpty         = &Error{Kind: KindConsistency, Code: CodeSlotNotEmpty}

	ErrNotFound      = &Error{Kind: KindNotFound, Code: CodeNotFound}
	ErrTableNotFound = &Error{Kind: KindNotFound, Code: CodeTableNotFound}

	ErrOutOfRange = &Error{Kind: KindOutOfRange, Code: CodeOutOfRange}

	ErrSerializationFailure = &Error{Kind: KindTransient, Code: CodeSerializationFailure}
	ErrStoreUnavailable     = &Error{Kind: KindUnavailable, Code: CodeStoreUnavailable}
	ErrInternal             = &Error{Kind: KindInternal, Code: CodeInternal}
)

// New builds an error of the sentinel's kind and code with a message.
func New(sentinel *Error, format string, args ...any) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: fmt.Sprintf(format, args...)}
}

// Field builds an error that names the offending input field.
func Field(sentinel *Error, field, format string, args ...any) *Error {
	e := New(sentinel, format, args...)
	e.Field = field
	return e
}

// Wrap builds an error of the sentinel's kind that keeps cause in the chain.
func Wrap(sentinel *Error, cause error, format string, args ...any) *Error {
	e := New(sentinel, format, args...)
	e.Err = cause
	return e
}

// TableConflict reports the table whose service interval is already claimed.
func TableConflict(tableID int64, at string) *Error {
	e := New(ErrTableConflict, "table %d already has a reservation overlapping %s", tableID, at)
	e.TableID = tableID
	return e
}

// NotFound reports a missing entity of the named resource type.
func NotFound(resource string, id any) *Error {
	return New(ErrNotFound, "%s %v not found", resource, id)
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal when err is not typed.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Retryable reports whether the identical operation may be retried.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindUnavailable:
		return true
	}
	return false
}

// HTTPStatus maps a kind to the response status used by the API.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindConsistency:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindOutOfRange:
		return http.StatusUnprocessableEntity
	case KindTransient:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
