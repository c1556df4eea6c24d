package modem

import (
	"context"

	"i4.energy/across/watchible/at"
	"i4.energy/across/watchible/queue"
)

// LineReader assembles LF-terminated lines from a byte queue. The data
// prompt "> " is never followed by LF and is returned as a line of its own.
//
// A partially assembled line survives a cancelled ReadLine, so callers may
// read with short deadlines without losing data.
type LineReader struct {
	q        *queue.Queue
	buf      []byte
	max      int
	overflow bool
}

// NewLineReader creates a LineReader that accepts lines of at most max bytes,
// terminator included.
func NewLineReader(q *queue.Queue, max int) *LineReader {
	return &LineReader{
		q:   q,
		buf: make([]byte, 0, max),
		max: max,
	}
}

// ReadLine returns the next complete line including its terminator. A line
// longer than the limit is discarded up to its LF and reported as
// ErrLineTooLong.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	for {
		if err := r.q.Wait(ctx); err != nil {
			return "", err
		}
		for {
			b, ok := r.q.Read()
			if !ok {
				break
			}
			if r.overflow {
				if b == at.LF {
					r.overflow = false
					return "", ErrLineTooLong
				}
				continue
			}
			if len(r.buf) == r.max {
				r.buf = r.buf[:0]
				if b == at.LF {
					return "", ErrLineTooLong
				}
				r.overflow = true
				continue
			}
			r.buf = append(r.buf, b)
			if b == at.LF || isPrompt(r.buf) {
				line := string(r.buf)
				r.buf = r.buf[:0]
				return line, nil
			}
		}
	}
}

// Pending returns the number of bytes of the line being assembled.
func (r *LineReader) Pending() int {
	return len(r.buf)
}

func isPrompt(buf []byte) bool {
	return len(buf) == 2 && buf[0] == at.Prompt && buf[1] == ' '
}
