// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package urproto

import (
	"fmt"
	"time"
)

// Statistics tracks command and acknowledgement counts for a session
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	FramesSent      uint64
	AcksOK          uint64
	RobotErrors     uint64
	TransportErrors uint64
	LastErrorCode   int32

	// Rates (calculated)
	CommandRate float64 // acknowledged commands/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordSent counts a frame written to the robot
func (s *Statistics) RecordSent() {
	s.FramesSent++
	s.LastUpdateTime = time.Now()
}

// RecordAck counts an acknowledgement
func (s *Statistics) RecordAck(code int32) {
	if code == AckOK {
		s.AcksOK++
	} else {
		s.RobotErrors++
		s.LastErrorCode = code
	}
	s.LastUpdateTime = time.Now()
}

// RecordTransportError counts a fatal send/receive failure
func (s *Statistics) RecordTransportError() {
	s.TransportErrors++
	s.LastUpdateTime = time.Now()
}

// Acked returns the number of acknowledgements received
func (s *Statistics) Acked() uint64 {
	return s.AcksOK + s.RobotErrors
}

// CalculateRates calculates the command rate
func (s *Statistics) CalculateRates() {
	elapsed := s.LastUpdateTime.Sub(s.StartTime).Seconds()
	if elapsed > 0 {
		s.CommandRate = float64(s.Acked()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var okPercent float64
	if s.FramesSent > 0 {
		okPercent = float64(s.AcksOK) * 100.0 / float64(s.FramesSent)
	}

	elapsed := s.LastUpdateTime.Sub(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames Sent:     %8d\n", s.FramesSent)
	result += fmt.Sprintf("Acks OK:         %8d (%.1f%%)\n", s.AcksOK, okPercent)

	if s.RobotErrors > 0 {
		result += fmt.Sprintf("Robot Errors:    %8d (last code %d)\n", s.RobotErrors, s.LastErrorCode)
	}
	if s.TransportErrors > 0 {
		result += fmt.Sprintf("Transport Errors:%8d\n", s.TransportErrors)
	}

	result += fmt.Sprintf("Command Rate:    %8.1f cmds/sec\n", s.CommandRate)
	result += "================================\n"

	return result
}
