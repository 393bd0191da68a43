// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 net-ur-plot contributors

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmpinit/net-ur-plot/pkg/pathsrc"
	"github.com/jmpinit/net-ur-plot/pkg/robot"
	"github.com/jmpinit/net-ur-plot/pkg/urproto"
)

var (
	// Robot flags
	robotIP       string
	controlPort   int
	serverIP      string
	serverPort    int
	acceptTimeout time.Duration
	ioTimeout     time.Duration
	scriptPath    string

	// Drawing flags
	targetSize float64
	drawHeight float64
	liftHeight float64
	reach      float64
	recordPath string
	useTUI     bool

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "urplot [flags] <svg-file>",
	Short: "Draw SVG files with a Universal Robots arm",
	Long: `urplot - Stream pen plotter paths to a Universal Robots arm.

The SVG is scaled to fit the drawing area and each path is sent to the robot
as a sequence of linear moves relative to the tool position at startup. The
robot is bootstrapped by uploading a small URScript program to its control
port (30002); the program dials back to this host and executes each move,
acknowledging it before the next one is sent.

Connection modes:
  TCP (default): --robot_ip 192.168.1.10 [--server_ip 0.0.0.0] [--server_port 30000]
  Serial:        --port /dev/ttyUSB0 [--baud 115200]
  WebSocket:     --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the URPLOT_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:      "1.0.0",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runPlot,
}

func init() {
	// Accept both --robot_ip and --robot-ip
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	defaults := robot.DefaultConfig()
	drawing := pathsrc.DefaultOptions()

	// Robot flags
	rootCmd.PersistentFlags().StringVar(&robotIP, "robot-ip", "", "IP address of the robot (required for TCP mode)")
	rootCmd.PersistentFlags().IntVar(&controlPort, "control-port", urproto.DefaultControlPort, "Robot port the plot program is uploaded to")
	rootCmd.PersistentFlags().StringVar(&serverIP, "server-ip", defaults.ServerIP, "Local address the robot connects back to")
	rootCmd.PersistentFlags().IntVar(&serverPort, "server-port", defaults.ServerPort, "Local port the robot connects back to")
	rootCmd.PersistentFlags().DurationVar(&acceptTimeout, "accept-timeout", defaults.AcceptTimeout, "How long to wait for the robot to connect back")
	rootCmd.PersistentFlags().DurationVar(&ioTimeout, "io-timeout", 0, "Per-frame send/acknowledge timeout (0 waits forever)")
	rootCmd.PersistentFlags().StringVar(&scriptPath, "script", "", "URScript template to upload instead of the built-in one")

	// Drawing flags
	rootCmd.PersistentFlags().Float64Var(&drawHeight, "draw-height", drawing.DrawHeight, "Z offset in meters with the pen down")
	rootCmd.PersistentFlags().Float64Var(&liftHeight, "lift-height", drawing.LiftHeight, "Z offset in meters with the pen lifted")
	rootCmd.PersistentFlags().Float64Var(&reach, "reach", 1.0, "Reject waypoints farther than this many meters from the origin (0 disables)")
	rootCmd.PersistentFlags().StringVar(&recordPath, "record", "", "Write a session recording (CBOR) to this file")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "Show a progress view instead of log output")
	rootCmd.Flags().Float64Var(&targetSize, "size", drawing.TargetSize, "Size in meters of the larger side of the drawing")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

func runPlot(cmd *cobra.Command, args []string) error {
	svgPath := args[0]
	if _, err := os.Stat(svgPath); err != nil {
		return fmt.Errorf("file not found: %s", svgPath)
	}

	drawing, err := pathsrc.ReadSVGFile(svgPath)
	if err != nil {
		return err
	}

	opts := pathsrc.Options{
		TargetSize: targetSize,
		DrawHeight: drawHeight,
		LiftHeight: liftHeight,
	}

	sx, sy := drawing.Scale(opts.TargetSize)
	fmt.Printf("Loaded %s: %d paths, %d points (scale %.6f x %.6f)\n",
		svgPath, len(drawing.Lines), drawing.PointCount(), sx, sy)

	return runJob(cmd, drawJob{
		source:    svgPath,
		waypoints: drawing.Waypoints(opts),
		total:     drawing.WaypointCount(),
	})
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
