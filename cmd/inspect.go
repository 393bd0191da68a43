// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 net-ur-plot contributors

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmpinit/net-ur-plot/pkg/record"
	"github.com/jmpinit/net-ur-plot/pkg/robot"
	"github.com/jmpinit/net-ur-plot/pkg/urproto"
)

var (
	inspectHex       bool
	inspectStatsOnly bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <recording>",
	Short: "Display a session recording in human-readable format",
	Long: `Decode a recording written with --record and print every channel event
with its timestamp, followed by the session statistics.

Use --hex to include the raw wire bytes of each command frame.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectHex, "hex", false, "Show the wire bytes of each command")
	inspectCmd.Flags().BoolVar(&inspectStatsOnly, "stats-only", false, "Only print the statistics summary")
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	return inspectRecording(cmd.OutOrStdout(), f, inspectHex, inspectStatsOnly)
}

// inspectRecording prints the recording read from r
func inspectRecording(w io.Writer, r io.Reader, hex, statsOnly bool) error {
	rd, err := record.NewReader(r)
	if err != nil {
		return err
	}

	h := rd.Header()
	fmt.Fprintf(w, "Session started %s\n", h.Started.Format("2006-01-02 15:04:05"))
	if h.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", h.Source)
	}
	if h.Robot != "" {
		fmt.Fprintf(w, "Robot:  %s\n", h.Robot)
	}
	if h.Server != "" {
		fmt.Fprintf(w, "Server: %s\n", h.Server)
	}
	fmt.Fprintln(w)

	stats, records, readErr := rd.Statistics()
	if !statsOnly {
		for _, rec := range records {
			fmt.Fprintln(w, formatRecord(rec, hex))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprint(w, stats.String())

	// A truncated recording still prints everything before the damage
	if readErr != nil {
		return fmt.Errorf("recording truncated after %d records: %w", len(records), readErr)
	}
	return nil
}

// formatRecord formats a record on one line
func formatRecord(rec record.Record, hex bool) string {
	ts := rec.Time.Format("15:04:05.000")

	switch rec.Kind {
	case robot.EventState:
		return fmt.Sprintf("[%s] STATE      %s", ts, rec.State)
	case robot.EventConnected:
		return fmt.Sprintf("[%s] CONNECTED  %s", ts, rec.Remote)
	case robot.EventFrameSent:
		cmd, _ := rec.CommandValue()
		line := fmt.Sprintf("[%s] SENT #%-5d %s", ts, rec.Seq, urproto.FormatCommand(cmd))
		if hex {
			frame, _ := cmd.MarshalBinary()
			line += "\n             " + urproto.FormatFrame(frame)
		}
		return line
	case robot.EventAck:
		return fmt.Sprintf("[%s] ACK  #%-5d %s", ts, rec.Seq, urproto.FormatAck(rec.Ack))
	case robot.EventFatal:
		return fmt.Sprintf("[%s] FATAL      %s", ts, rec.Error)
	default:
		return fmt.Sprintf("[%s] %s", ts, rec.Kind)
	}
}
