package at

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter is used for tokenizing AT command responses. It uses
// the signature of bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// It splits the input by CRLF line endings and also
// recognizes the SMS input prompt ("> ").
//
// A command echo ("AT\r") arrives with a bare CR in front of the CRLF; the
// CR stays in the token and is removed by Lines.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. Match SMS Prompt
	if bytes.HasPrefix(data, []byte(Prompt)) {
		return len(Prompt), data[0:len(Prompt)], nil
	}

	// 2. Match standard line ending with CRLF
	if i := bytes.Index(data, []byte(CRLF)); i >= 0 {
		return i + len(CRLF), data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// Classify identifies the nature of the peripheral output
func Classify(line string) ResponseType {
	if line == Prompt {
		return TypePrompt
	}

	// Direct matches for final results
	switch line {
	case OK, ERROR, SendOK, SendFail, NoCarrier, NoDialtone, Busy, NoAnswer:
		return TypeFinal
	}

	// Prefix matches
	switch {
	case strings.HasPrefix(line, CmeError), strings.HasPrefix(line, CmsError):
		return TypeFinal
	case strings.HasPrefix(line, UrcNewMsg), strings.HasPrefix(line, UrcMessageReport), line == UrcCall:
		return TypeURC
	case strings.HasPrefix(line, PeerConnected), strings.HasPrefix(line, PeerDisconnected):
		return TypeURC
	default:
		return TypeData
	}
}

// Lines splits a raw response into trimmed, non-empty lines.
func Lines(resp []byte) []string {
	scanner := bufio.NewScanner(bytes.NewReader(resp))
	scanner.Buffer(make([]byte, 0, 256), len(resp)+len(CRLF))
	scanner.Split(Splitter)

	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		// We don't TrimSpace on the Prompt because "> " has a trailing space
		if line != Prompt {
			line = strings.TrimSpace(line)
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Payload returns the data lines of a response: the echo of cmd, final
// result codes, prompts and URCs are dropped.
func Payload(resp []byte, cmd string) []string {
	echo := strings.TrimSpace(cmd)

	var out []string
	for _, line := range Lines(resp) {
		if echo != "" && line == echo {
			continue
		}
		if Classify(line) == TypeData {
			out = append(out, line)
		}
	}
	return out
}
