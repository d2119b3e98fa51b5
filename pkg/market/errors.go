package market

import "errors"

var (
	// ErrUnknownColumn is returned when a pair names a column the table does not have
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidPair is returned for malformed pairs (empty or identical legs)
	ErrInvalidPair = errors.New("invalid pair")

	// ErrDuplicateColumn is returned when two series share a name
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrLengthMismatch is returned when dates and values disagree in length or alignment
	ErrLengthMismatch = errors.New("length mismatch")
)
