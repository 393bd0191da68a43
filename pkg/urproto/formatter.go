// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package urproto

import (
	"fmt"
	"strings"
)

// FormatOpcode returns the human-readable name for an opcode
func FormatOpcode(op int32) string {
	switch op {
	case CmdMoveL:
		return "MOVEL"
	default:
		return "UNKNOWN"
	}
}

// FormatCommand formats a command on one line, positions in millimeters
func FormatCommand(c Command) string {
	x, y, z := c.Position()
	return fmt.Sprintf("%s x=%s y=%s z=%s",
		FormatOpcode(c.Opcode()), formatUnits(x), formatUnits(y), formatUnits(z))
}

// FormatAck formats an acknowledgement value
func FormatAck(code int32) string {
	if code == AckOK {
		return "OK"
	}
	return fmt.Sprintf("ERROR %d", code)
}

// FormatFrame returns a hex dump of a wire frame, one field per group
func FormatFrame(frame []byte) string {
	var b strings.Builder
	for i, v := range frame {
		if i > 0 && i%FieldSize == 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

// formatUnits renders tenths of a millimeter as millimeters
func formatUnits(v int32) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	abs := int64(v)
	if abs < 0 {
		abs = -abs
	}
	return fmt.Sprintf("%s%d.%dmm", sign, abs/10, abs%10)
}
