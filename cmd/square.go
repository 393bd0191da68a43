// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 net-ur-plot contributors

package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jmpinit/net-ur-plot/pkg/pathsrc"
)

var squareWidth float64

var squareCmd = &cobra.Command{
	Use:   "square",
	Short: "Draw a test square",
	Long: `Draw a square starting at the current tool position.

Useful to check the pen heights and the robot connection before plotting a
drawing. The pen is lowered at the origin, traces the square and is lifted
again at the origin.`,
	Args: cobra.NoArgs,
	RunE: runSquare,
}

func init() {
	rootCmd.AddCommand(squareCmd)
	squareCmd.Flags().Float64Var(&squareWidth, "width", pathsrc.DefaultSquareWidth, "Side length in meters")
}

func runSquare(cmd *cobra.Command, args []string) error {
	waypoints := pathsrc.Square(squareWidth, drawHeight, liftHeight)

	fmt.Printf("Drawing %.0f mm test square\n", squareWidth*1000)

	return runJob(cmd, drawJob{
		source:    "square",
		waypoints: slices.Values(waypoints),
		total:     len(waypoints),
	})
}
