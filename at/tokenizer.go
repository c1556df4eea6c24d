package at

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter is used for tokenizing modem output. It uses the signature of
// bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// Lines are terminated by LF and the token keeps the terminator (and any CR in
// front of it), which is how the line assembler hands lines to Classify. A
// bare data prompt ("> ") has no terminator and is returned on its own.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// A prompt is not followed by a newline; the modem waits for payload.
	if len(data) >= 2 && data[0] == Prompt && data[1] == ' ' {
		return 2, data[0:2], nil
	}

	if i := bytes.IndexByte(data, LF); i >= 0 {
		return i + 1, data[0 : i+1], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// Classify identifies the nature of a modem line. The checks run in a fixed
// precedence: completion tokens are searched anywhere in the line, the prompt
// and status markers only at its first character.
func Classify(line string) Category {
	switch {
	case strings.Contains(line, OK):
		return CategoryOK
	case strings.Contains(line, ERROR):
		return CategoryError
	case strings.Contains(line, Ready):
		return CategoryReady
	}

	if line == "" {
		return CategoryIgnored
	}

	switch line[0] {
	case Prompt:
		return CategoryPrompt
	case Status:
		return CategoryStatus
	default:
		return CategoryIgnored
	}
}

// Strip removes every CR and LF from s.
func Strip(s string) string {
	return strings.Map(func(r rune) rune {
		if r == CR || r == LF {
			return -1
		}
		return r
	}, s)
}
