// Package nmea extracts positional fields from comma-delimited sentences
// such as the GGA fix reports of GNSS receivers.
package nmea

import (
	"bytes"
	"fmt"
)

const (
	delimiter      = ','
	checksumMarker = '*'
	sentenceStart  = '$'

	// A sentence ends at its checksum, at the line end or where the next
	// sentence starts.
	sentenceEndChars = "*\r\n$"
)

// Extract returns a copy of the field at the 1-based index of the first
// sentence in buf that carries tag. maxFields bounds the index and is
// checked before buf is looked at.
//
// A field ends at the next delimiter, at the checksum marker or at the
// end of the sentence. Empty fields are valid and returned as an empty,
// non-nil slice.
func Extract(buf, tag []byte, index, maxFields int) ([]byte, error) {
	if index < 1 || index > maxFields {
		return nil, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidIndex, index, maxFields)
	}

	body, err := sentenceBody(buf, tag)
	if err != nil {
		return nil, err
	}

	for i := 0; i < index; i++ {
		j := bytes.IndexByte(body, delimiter)
		if j < 0 {
			return nil, fmt.Errorf("%w: field %d of %q", ErrFieldOutOfRange, index, tag)
		}
		body = body[j+1:]
	}

	if j := bytes.IndexByte(body, delimiter); j >= 0 {
		body = body[:j]
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

// sentenceBody returns the bytes between the end of tag and the sentence
// terminator.
func sentenceBody(buf, tag []byte) ([]byte, error) {
	if len(tag) == 0 {
		return nil, ErrTagNotFound
	}
	start := bytes.Index(buf, tag)
	if start < 0 {
		return nil, fmt.Errorf("%w: %q", ErrTagNotFound, tag)
	}
	rest := buf[start+len(tag):]
	end := bytes.IndexAny(rest, sentenceEndChars)
	if end < 0 {
		return nil, fmt.Errorf("%w: %q", ErrIncomplete, tag)
	}
	return rest[:end], nil
}
