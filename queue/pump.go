package queue

import (
	"context"
	"errors"
	"io"
)

// Pump copies everything read from r into q until r fails or ctx is done.
// It is the receive-side producer and must be the only goroutine writing to q.
//
// Bytes arriving while q is full are dropped and counted; the line protocol
// upstream sees a garbled line and ignores it.
func Pump(ctx context.Context, r io.Reader, q *Queue) (dropped int, err error) {
	buf := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return dropped, err
		}
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			if errors.Is(q.Write(b), ErrFull) {
				dropped++
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return dropped, ctx.Err()
			}
			return dropped, err
		}
	}
}
