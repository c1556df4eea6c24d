package modem

import (
	"fmt"

	"i4.energy/across/watchible/at"
)

// State is the position of the Sequencer in a cycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingRegistration
	StateAdvancing
	StateWaiting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingRegistration:
		return "AwaitingRegistration"
	case StateAdvancing:
		return "Advancing"
	case StateWaiting:
		return "Waiting"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// ActionKind tells the driver what to do after an evaluation.
type ActionKind int

const (
	// ActionNone: a command is still in flight.
	ActionNone ActionKind = iota
	// ActionQueryRegistration: send CmdQueryRegistration, then pause.
	ActionQueryRegistration
	// ActionSend: send Command.
	ActionSend
	// ActionWait: the step at the cursor is gated; evaluate again later.
	ActionWait
	// ActionDone: the script is exhausted.
	ActionDone
)

// Action is the result of Sequencer.Next.
type Action struct {
	Kind    ActionKind
	Step    int // script index for ActionSend and ActionWait, -1 otherwise
	Command string
}

// Sequencer walks a Script one command at a time. It is not safe for
// concurrent use; the cycle driver owns it.
//
// The cursor is the index of the next step to send. It never moves
// backwards within a cycle and only Reset sets it back to zero.
type Sequencer struct {
	script     Script
	policy     ErrorPolicy
	maxRetries int

	cursor   int
	state    State
	inFlight bool
	lastSent int // script index of the command in flight, -1 for a registration query
	retry    int // script index to resend, -1 when none is pending
	retries  int
}

func NewSequencer(script Script, policy ErrorPolicy, maxRetries int) *Sequencer {
	return &Sequencer{
		script:     script,
		policy:     policy,
		maxRetries: maxRetries,
		lastSent:   -1,
		retry:      -1,
	}
}

// Reset rewinds to the first step for a new cycle.
func (s *Sequencer) Reset() {
	s.cursor = 0
	s.state = StateIdle
	s.inFlight = false
	s.lastSent = -1
	s.retry = -1
	s.retries = 0
}

func (s *Sequencer) Cursor() int    { return s.cursor }
func (s *Sequencer) State() State   { return s.state }
func (s *Sequencer) InFlight() bool { return s.inFlight }

// Complete records a completion line and reports whether the driver should
// evaluate the next action.
//
// A completion with no command in flight is an orphan and is ignored, so a
// repeated OK can never advance the script twice. A boot marker means the
// modem restarted and dropped whatever was in flight.
func (s *Sequencer) Complete(c at.Category) (bool, error) {
	if c == at.CategoryReady {
		s.inFlight = false
		return true, nil
	}
	if !s.inFlight {
		return false, nil
	}
	s.inFlight = false

	// Registration queries neither consume nor reset a pending retry.
	if s.lastSent < 0 {
		return true, nil
	}
	if c != at.CategoryError {
		s.retries = 0
		return true, nil
	}

	step := s.script[s.lastSent]
	switch s.policy {
	case ErrorPolicyRetry:
		if s.retries >= s.maxRetries {
			return false, fmt.Errorf("%w: step %d (%s) after %d retries", ErrCommandFailed, s.lastSent, step.Name, s.retries)
		}
		s.retries++
		s.retry = s.lastSent
	case ErrorPolicyFail:
		return false, fmt.Errorf("%w: step %d (%s)", ErrCommandFailed, s.lastSent, step.Name)
	default:
		s.retries = 0
	}
	return true, nil
}

// Next decides the next action from the session. payload builds the status
// report for the publish step; it is only called when that step is sent.
func (s *Sequencer) Next(sess *Session, payload func() (string, error)) (Action, error) {
	if s.inFlight {
		return Action{Kind: ActionNone, Step: -1}, nil
	}

	if !sess.Registered {
		s.state = StateAwaitingRegistration
		s.inFlight = true
		s.lastSent = -1
		return Action{Kind: ActionQueryRegistration, Step: -1, Command: CmdQueryRegistration}, nil
	}

	idx := s.cursor
	if s.retry >= 0 {
		idx = s.retry
	} else if s.cursor >= len(s.script) {
		s.state = StateDone
		return Action{Kind: ActionDone, Step: -1}, nil
	}

	step := s.script[idx]
	if !step.Gate.Satisfied(sess) {
		s.state = StateWaiting
		return Action{Kind: ActionWait, Step: idx}, nil
	}

	cmd := step.Command
	if step.Publish {
		p, err := payload()
		if err != nil {
			return Action{Kind: ActionNone, Step: -1}, fmt.Errorf("build status report: %w", err)
		}
		cmd = fmt.Sprintf(step.Command, p)
	}

	s.inFlight = true
	s.lastSent = idx
	if s.retry >= 0 {
		s.retry = -1
	} else {
		s.cursor++
	}
	s.state = StateAdvancing
	return Action{Kind: ActionSend, Step: idx, Command: cmd}, nil
}
