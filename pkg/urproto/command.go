// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package urproto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/jmpinit/net-ur-plot/pkg/motion"
)

var (
	// ErrOutOfRange is returned when a coordinate does not fit the fixed-point encoding
	ErrOutOfRange = errors.New("coordinate out of range")

	// ErrShortFrame is returned when decoding fewer than FrameSize bytes
	ErrShortFrame = errors.New("short command frame")

	// ErrShortAck is returned when decoding fewer than AckSize bytes
	ErrShortAck = errors.New("short acknowledgement")
)

// Command is a decoded motion command: opcode followed by position and
// orientation in fixed-point units.
type Command [FieldCount]int32

// ToFixed converts meters to tenths of a millimeter, truncating toward zero.
// Sub-0.1mm precision is discarded.
func ToFixed(meters float64) (int32, error) {
	if math.IsNaN(meters) || math.IsInf(meters, 0) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, meters)
	}
	scaled := math.Trunc(meters * UnitsPerMeter)
	if scaled > math.MaxInt32 || scaled < math.MinInt32 {
		return 0, fmt.Errorf("%w: %v m", ErrOutOfRange, meters)
	}
	return int32(scaled), nil
}

// NewMoveL builds a position-only linear move to the waypoint.
// Orientation fields are always zero.
func NewMoveL(w motion.Waypoint) (Command, error) {
	var c Command
	c[FieldOpcode] = CmdMoveL

	for i, v := range [3]float64{w.X, w.Y, w.Z} {
		fixed, err := ToFixed(v)
		if err != nil {
			return Command{}, fmt.Errorf("waypoint %v: %w", w, err)
		}
		c[FieldX+i] = fixed
	}

	return c, nil
}

// Opcode returns the command opcode
func (c Command) Opcode() int32 {
	return c[FieldOpcode]
}

// Position returns the x, y, z fields in fixed-point units
func (c Command) Position() (x, y, z int32) {
	return c[FieldX], c[FieldY], c[FieldZ]
}

// MarshalBinary encodes the command as a 28-byte big-endian frame.
func (c Command) MarshalBinary() ([]byte, error) {
	return c.AppendBinary(make([]byte, 0, FrameSize))
}

// AppendBinary appends the 28-byte frame to b.
func (c Command) AppendBinary(b []byte) ([]byte, error) {
	for _, v := range c {
		b = binary.BigEndian.AppendUint32(b, uint32(v))
	}
	return b, nil
}

// DecodeCommand decodes a frame produced by MarshalBinary.
// The server never reads frames back; this is used by the robot simulator.
func DecodeCommand(frame []byte) (Command, error) {
	if len(frame) < FrameSize {
		return Command{}, fmt.Errorf("%w: %d bytes (want %d)", ErrShortFrame, len(frame), FrameSize)
	}

	var c Command
	for i := range c {
		c[i] = int32(binary.BigEndian.Uint32(frame[i*FieldSize:]))
	}
	return c, nil
}

// EncodeAck encodes an acknowledgement value as 4 big-endian bytes
func EncodeAck(code int32) []byte {
	return binary.BigEndian.AppendUint32(make([]byte, 0, AckSize), uint32(code))
}

// DecodeAck decodes a 4-byte big-endian acknowledgement
func DecodeAck(b []byte) (int32, error) {
	if len(b) < AckSize {
		return 0, fmt.Errorf("%w: %d bytes (want %d)", ErrShortAck, len(b), AckSize)
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}
