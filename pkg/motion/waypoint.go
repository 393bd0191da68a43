// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package motion

import "fmt"

// Waypoint is a tool position in meters, in the robot base frame.
type Waypoint struct {
	X float64
	Y float64
	Z float64
}

// String returns the waypoint in millimeters
func (w Waypoint) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f) mm", w.X*1000, w.Y*1000, w.Z*1000)
}

// EntryKind tags the contents of a queue Entry
type EntryKind uint8

const (
	// EntryWaypoint carries a Waypoint to move to
	EntryWaypoint EntryKind = iota
	// EntryEnd marks the end of the stream; nothing follows it
	EntryEnd
)

// Entry is a single Command Queue element: either a waypoint or the
// end-of-stream marker.
type Entry struct {
	Kind     EntryKind
	Waypoint Waypoint
}

// WaypointEntry wraps a waypoint for the queue
func WaypointEntry(w Waypoint) Entry {
	return Entry{Kind: EntryWaypoint, Waypoint: w}
}

// EndEntry returns the end-of-stream marker
func EndEntry() Entry {
	return Entry{Kind: EntryEnd}
}

// IsEnd reports whether the entry is the end-of-stream marker
func (e Entry) IsEnd() bool {
	return e.Kind == EntryEnd
}
