// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 net-ur-plot contributors
//
// urplot - draw SVG files with a Universal Robots arm used as a pen plotter.

package main

import (
	"os"

	"github.com/jmpinit/net-ur-plot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
