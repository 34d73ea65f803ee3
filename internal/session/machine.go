// Package session runs the assistant's conversation lifecycle: idle wake
// detection, the awake command loop and the sleep policy between them.
package session

import "fmt"

// State is where the assistant is in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateAwake      State = "awake"
	StateClosing    State = "closing"
	StateTerminated State = "terminated"
)

// Signal is an event that moves the machine.
type Signal string

const (
	SignalWake      Signal = "wake"      // wake phrase heard while idle
	SignalSilence   Signal = "silence"   // nothing actionable heard
	SignalCommand   Signal = "command"   // an utterance was handled and the session goes on
	SignalExit      Signal = "exit"      // exit phrase heard while awake
	SignalStop      Signal = "stop"      // a handler ended the session
	SignalThreshold Signal = "threshold" // the sleep policy limit was reached
	SignalSlept     Signal = "slept"     // closing finished
	SignalShutdown  Signal = "shutdown"  // shutdown phrase heard anywhere
)

var validTransitions = map[State]map[Signal]State{
	StateIdle: {
		SignalWake:     StateAwake,
		SignalSilence:  StateIdle,
		SignalShutdown: StateTerminated,
	},
	StateAwake: {
		SignalCommand:   StateAwake,
		SignalSilence:   StateAwake,
		SignalExit:      StateClosing,
		SignalStop:      StateClosing,
		SignalThreshold: StateClosing,
		SignalShutdown:  StateTerminated,
	},
	StateClosing: {
		SignalSlept:    StateIdle,
		SignalShutdown: StateTerminated,
	},
}

var terminalStates = map[State]bool{
	StateTerminated: true,
}

// Machine tracks the current state and rejects undefined moves.
type Machine struct {
	state State
}

// NewMachine starts idle.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

func (m *Machine) State() State { return m.state }

// Fire applies sig and returns the new state.
func (m *Machine) Fire(sig Signal) (State, error) {
	if terminalStates[m.state] {
		return m.state, fmt.Errorf("machine is %s and cannot take %s", m.state, sig)
	}
	next, ok := validTransitions[m.state][sig]
	if !ok {
		return m.state, fmt.Errorf("invalid transition: %s --%s-->", m.state, sig)
	}
	m.state = next
	return next, nil
}
