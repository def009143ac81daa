package dialog

import "strings"

// Token is a normalised answer to a choice prompt
type Token int

const (
	TokenInvalid Token = iota
	TokenYes
	TokenNo
	TokenQuit
	TokenChoose
	TokenStart
)

// ParseToken normalises an answer. The accepted set is exactly
// y/yes, n/no, q/quit, c/choose and s/start, in any case.
func ParseToken(s string) Token {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return TokenYes
	case "n", "no":
		return TokenNo
	case "q", "quit":
		return TokenQuit
	case "c", "choose":
		return TokenChoose
	case "s", "start":
		return TokenStart
	default:
		return TokenInvalid
	}
}

// State is a state of the saved-configuration dialog
type State int

const (
	AwaitUseSaved State = iota
	AwaitChooseOrRestart
	AwaitSavedPath
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case AwaitUseSaved:
		return "AwaitUseSaved"
	case AwaitChooseOrRestart:
		return "AwaitChooseOrRestart"
	case AwaitSavedPath:
		return "AwaitSavedPath"
	case Done:
		return "Done"
	case Aborted:
		return "Aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further input is accepted
func (s State) Terminal() bool {
	return s == Done || s == Aborted
}

// Outcome is what a Done machine decided
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeUseFile
	OutcomeFreshSetup
)

// Machine is the saved-configuration dialog. It starts in AwaitUseSaved
// with a candidate file and moves on every answer.
type Machine struct {
	State   State
	Path    string
	Outcome Outcome
}

// NewMachine starts the dialog for the candidate at path
func NewMachine(path string) *Machine {
	return &Machine{State: AwaitUseSaved, Path: path}
}

// Step feeds one answer to the machine. It returns false when the answer is
// not valid in the current state and the same question must be asked again.
// exists reports whether a path entered in AwaitSavedPath names a file.
func (m *Machine) Step(answer string, exists func(string) bool) bool {
	switch m.State {
	case AwaitUseSaved:
		switch ParseToken(answer) {
		case TokenYes:
			m.State, m.Outcome = Done, OutcomeUseFile
		case TokenNo:
			m.State = AwaitChooseOrRestart
		case TokenQuit:
			m.State = Aborted
		default:
			return false
		}
	case AwaitChooseOrRestart:
		switch ParseToken(answer) {
		case TokenChoose:
			m.State = AwaitSavedPath
		case TokenStart:
			m.State, m.Outcome = Done, OutcomeFreshSetup
		case TokenQuit:
			m.State = Aborted
		default:
			return false
		}
	case AwaitSavedPath:
		path := strings.TrimSpace(answer)
		switch {
		case path == "":
			m.State = AwaitChooseOrRestart
		case ParseToken(path) == TokenQuit:
			m.State = Aborted
		case exists(path):
			m.Path = path
			m.State = AwaitUseSaved
		default:
			return false
		}
	default:
		return false
	}
	return true
}
