package at

const (
	// Terminal Control
	CRLF   = "\r\n"
	LF     = '\n'
	CR     = '\r'
	CtrlZ  = byte(26)
	Prompt = '>'
	Status = '+'

	// CommandPrefix is prepended to every command of the script.
	CommandPrefix = "at+"

	// Completion tokens
	OK    = "OK"
	ERROR = "ERROR"
	// Ready is printed by the BC66 boot ROM after a reset.
	Ready = "BROM"

	// Power-save markers carried by +QNBIOTEVENT
	EnterPSM = "ENTER PSM"
	ExitPSM  = "EXIT PSM"
)

// Registration status codes reported by +CEREG.
const (
	RegisteredHome    = '1'
	RegisteredRoaming = '5'
)

// Category is the structural class of a single response line.
type Category int

const (
	CategoryIgnored Category = iota // noise, echoes, garbled lines
	CategoryOK                      // OK
	CategoryError                   // ERROR, +CME ERROR
	CategoryReady                   // boot marker after reset
	CategoryPrompt                  // data prompt, payload expected
	CategoryStatus                  // +TOPIC: ... solicited or unsolicited
)

func (c Category) String() string {
	switch c {
	case CategoryIgnored:
		return "ignored"
	case CategoryOK:
		return "ok"
	case CategoryError:
		return "error"
	case CategoryReady:
		return "ready"
	case CategoryPrompt:
		return "prompt"
	case CategoryStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Completes reports whether a line of this category ends the command in flight.
// ERROR completes a command exactly like OK does.
func (c Category) Completes() bool {
	return c == CategoryOK || c == CategoryError || c == CategoryReady
}

// Command renders cmd in wire format.
func Command(cmd string) []byte {
	return []byte(CommandPrefix + cmd + CRLF)
}
