// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package urproto

// Command opcodes understood by the plot program running on the robot.
// Changing the frame layout requires a new opcode on both ends.
const (
	CmdMoveL int32 = 1
)

// Frame layout
const (
	FieldCount = 7              // opcode, x, y, z, rx, ry, rz
	FieldSize  = 4              // int32, big-endian
	FrameSize  = FieldCount * 4 // 28 bytes
	AckSize    = 4
)

// Field offsets (in fields, not bytes)
const (
	FieldOpcode = iota
	FieldX
	FieldY
	FieldZ
	FieldRX
	FieldRY
	FieldRZ
)

// UnitsPerMeter converts meters to the robot's fixed-point unit (0.1 mm)
const UnitsPerMeter = 10000

// Acknowledgement values sent by the plot program. Any other nonzero value is
// a robot-defined error code.
const (
	AckOK             int32 = 0
	AckUnknownCommand int32 = 1
)

// Default network ports of the reference deployment
const (
	DefaultServerPort  = 30000
	DefaultControlPort = 30002 // robot secondary interface, accepts URScript
)
