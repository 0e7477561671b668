package controller

import "github.com/samber/lo"

// State is the lifecycle position of one upload attempt.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateRejected   State = "rejected"
	StateUploading  State = "uploading"
	StatePinning    State = "pinning"
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateCanceled   State = "canceled"
	StateError      State = "error"
)

var transitions = map[State][]State{
	StateIdle:       {StateValidating},
	StateValidating: {StateRejected, StateUploading, StateIdle},
	StateUploading:  {StatePinning, StateCanceled, StateError},
	StatePinning:    {StateProcessing, StateCanceled, StateError},
	StateProcessing: {StateReady, StateCanceled, StateError},
	StateCanceled:   {StateIdle},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	return lo.Contains(transitions[from], to)
}

// Terminal reports whether an attempt ends in s. Canceled is terminal for
// the attempt even though the session then resets to idle.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateReady, StateCanceled, StateError:
		return true
	}
	return false
}

// Active reports whether s has network work in flight.
func (s State) Active() bool {
	return s == StateUploading || s == StatePinning || s == StateProcessing
}
