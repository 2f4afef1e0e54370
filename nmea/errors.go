package nmea

import "errors"

var (
	// ErrTagNotFound is returned when the sentence tag does not occur in
	// the buffer.
	ErrTagNotFound = errors.New("sentence tag not found")

	// ErrIncomplete is returned when the sentence has not been terminated
	// yet. More bytes may complete it.
	ErrIncomplete = errors.New("sentence incomplete")

	// ErrFieldOutOfRange is returned when the sentence carries fewer
	// fields than requested.
	ErrFieldOutOfRange = errors.New("field index out of range")

	// ErrInvalidIndex is returned for a field index outside 1..maxFields.
	// It indicates a caller bug, not a device condition.
	ErrInvalidIndex = errors.New("invalid field index")

	// ErrChecksum is returned when a sentence's checksum does not match
	// its contents.
	ErrChecksum = errors.New("checksum mismatch")
)
