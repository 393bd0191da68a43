// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package robot

import (
	"time"

	"github.com/jmpinit/net-ur-plot/pkg/urproto"
)

// EventKind identifies what happened on the channel
type EventKind uint8

const (
	EventState     EventKind = iota // state transition
	EventConnected                  // robot connected, Remote is set
	EventFrameSent                  // command written, Seq and Command are set
	EventAck                        // acknowledgement received, Seq and Ack are set
	EventFatal                      // serving stopped on a transport, protocol or cancellation error
)

// String returns the event kind name
func (k EventKind) String() string {
	switch k {
	case EventState:
		return "STATE"
	case EventConnected:
		return "CONNECTED"
	case EventFrameSent:
		return "FRAME_SENT"
	case EventAck:
		return "ACK"
	case EventFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Event is reported to the observer for every step of the channel
type Event struct {
	Time    time.Time
	Kind    EventKind
	State   State
	Seq     int
	Command urproto.Command
	Ack     int32
	Remote  string
	Err     error
}

// Observer receives channel events. It is called synchronously from the
// channel goroutine and must not block for long.
type Observer func(Event)
