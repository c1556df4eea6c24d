// Package journal keeps an append-only CBOR log of completed reporting
// cycles, written when the modem enters power-save mode.
package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Record summarises one reporting cycle.
type Record struct {
	Cycle      uint64    `cbor:"1,keyasint"`
	Clock      time.Time `cbor:"2,keyasint"`
	NetClock   string    `cbor:"3,keyasint,omitempty"`
	CCID       string    `cbor:"4,keyasint,omitempty"`
	Battery    string    `cbor:"5,keyasint,omitempty"`
	Registered bool      `cbor:"6,keyasint"`
	Published  bool      `cbor:"7,keyasint"`
	Steps      int       `cbor:"8,keyasint"`
	SleepUntil time.Time `cbor:"9,keyasint"`
}

// Journal appends records to a file. It is safe for concurrent use.
type Journal struct {
	mu  sync.Mutex
	f   *os.File
	enc *cbor.Encoder
}

// Open opens (creating if needed) the journal at path for appending.
func Open(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &Journal{f: f, enc: cbor.NewEncoder(f)}, nil
}

// Append writes r and syncs the file.
func (j *Journal) Append(r Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(r); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return j.f.Sync()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

// ReadAll decodes every record in the journal at path. A truncated final
// record is reported as an error along with the records read before it.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	defer f.Close()

	var records []Record
	dec := cbor.NewDecoder(f)
	for {
		var r Record
		if err := dec.Decode(&r); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, fmt.Errorf("decode record %d: %w", len(records), err)
		}
		records = append(records, r)
	}
}
