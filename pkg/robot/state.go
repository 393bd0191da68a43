// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package robot

// State is the lifecycle state of a robot channel
type State int32

const (
	StateBinding State = iota
	StateListening
	StateAwaitingConnection
	StateServing
	StateDraining
	StateClosed
	StateAborted
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateBinding:
		return "BINDING"
	case StateListening:
		return "LISTENING"
	case StateAwaitingConnection:
		return "AWAITING_CONNECTION"
	case StateServing:
		return "SERVING"
	case StateDraining:
		return "DRAINING"
	case StateClosed:
		return "CLOSED"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions can happen
func (s State) Terminal() bool {
	return s == StateClosed || s == StateAborted
}
