package modem

import "errors"

// Sentinel errors returned by the modem package. Wrapped errors keep these
// reachable through errors.Is.
var (
	// ErrNoDialer means Build was called without WithDialer.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized means the Dialer handed back a nil Transport, or the
	// Modem was built as a zero value instead of through New.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned by a second Close and by RunCycle after
	// Close.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrCycleRunning is returned when RunCycle is called while another cycle
	// is in progress. Only one command may ever be in flight.
	ErrCycleRunning = errors.New("cycle already running")

	// ErrLineTooLong reports a received line longer than the line buffer,
	// usually noise on the UART. The line is dropped and reading goes on.
	ErrLineTooLong = errors.New("response line too long")

	// ErrCommandFailed is returned when the modem answered ERROR and the
	// configured ErrorPolicy does not allow the cycle to carry on.
	ErrCommandFailed = errors.New("command failed")

	// ErrEmptyScript is returned by Build when the command script has no
	// steps.
	ErrEmptyScript = errors.New("empty command script")
)
