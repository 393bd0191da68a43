// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 net-ur-plot contributors

package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmpinit/net-ur-plot/pkg/simulator"
	"github.com/jmpinit/net-ur-plot/pkg/urproto"
)

var (
	simListen     string
	simErrorEvery int
	simErrorCode  int32
	simDropAfter  int
	simMoveDelay  time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a mock robot for testing without hardware",
	Long: `Run a mock robot controller.

The simulator listens where the robot's control port would be, accepts the
uploaded plot program, connects back to the address embedded in it and
acknowledges every MOVEL command it receives. Point urplot at it with
--robot_ip 127.0.0.1 and the simulator's port.

Failure injection:
  --error-every N   acknowledge every Nth command with --error-code
  --drop-after N    close the connection after receiving N commands`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simListen, "listen", fmt.Sprintf(":%d", urproto.DefaultControlPort), "Address to accept plot programs on")
	simulateCmd.Flags().IntVar(&simErrorEvery, "error-every", 0, "Report an error for every Nth command (0 disables)")
	simulateCmd.Flags().Int32Var(&simErrorCode, "error-code", -1, "Error code reported by --error-every")
	simulateCmd.Flags().IntVar(&simDropAfter, "drop-after", 0, "Drop the connection after N commands (0 disables)")
	simulateCmd.Flags().DurationVar(&simMoveDelay, "move-delay", 0, "Time each move takes before it is acknowledged")
}

// errorEvery acknowledges every nth command with code
func errorEvery(n int, code int32) simulator.AckFunc {
	return func(seq int, cmd urproto.Command) int32 {
		if n > 0 && (seq+1)%n == 0 {
			return code
		}
		return urproto.AckOK
	}
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	sim, err := simulator.Listen(simListen,
		simulator.WithLogger(logger),
		simulator.WithAckFunc(errorEvery(simErrorEvery, simErrorCode)),
		simulator.WithDropAfter(simDropAfter),
		simulator.WithMoveDelay(simMoveDelay),
	)
	if err != nil {
		return err
	}
	defer sim.Close()

	fmt.Printf("urplot - Robot Simulator\n")
	fmt.Printf("Listening on %s\n", sim.Addr())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if err := sim.Serve(ctx); err != nil {
		return err
	}

	fmt.Printf("\nSessions: %d, commands: %d\n", sim.Sessions(), len(sim.Commands()))
	return nil
}
