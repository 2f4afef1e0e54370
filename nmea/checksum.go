package nmea

import (
	"bytes"
	"fmt"
	"strconv"
)

// Checksum returns the XOR of all bytes between the leading '$' and the
// '*' of sentence. Bytes before the '$' are ignored.
func Checksum(sentence []byte) byte {
	if i := bytes.IndexByte(sentence, sentenceStart); i >= 0 {
		sentence = sentence[i+1:]
	}
	if i := bytes.IndexByte(sentence, checksumMarker); i >= 0 {
		sentence = sentence[:i]
	}
	var sum byte
	for _, c := range sentence {
		sum ^= c
	}
	return sum
}

// VerifyChecksum checks the two hex digits after the '*' of the first
// sentence in buf carrying tag.
func VerifyChecksum(buf, tag []byte) error {
	start := bytes.Index(buf, tag)
	if start < 0 {
		return fmt.Errorf("%w: %q", ErrTagNotFound, tag)
	}
	// Include the '$' that precedes a tag given without it.
	if start > 0 && tag[0] != sentenceStart {
		if j := bytes.LastIndexByte(buf[:start], sentenceStart); j >= 0 {
			start = j
		}
	}
	sentence := buf[start:]
	star := bytes.IndexByte(sentence, checksumMarker)
	if star < 0 || len(sentence) < star+3 {
		return fmt.Errorf("%w: %q", ErrIncomplete, tag)
	}
	want, err := strconv.ParseUint(string(sentence[star+1:star+3]), 16, 8)
	if err != nil {
		return fmt.Errorf("%w: bad checksum digits %q", ErrChecksum, sentence[star+1:star+3])
	}
	if got := Checksum(sentence[:star]); got != byte(want) {
		return fmt.Errorf("%w: got %02X, want %02X", ErrChecksum, got, byte(want))
	}
	return nil
}
