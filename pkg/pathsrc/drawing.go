// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package pathsrc

import (
	"errors"
	"iter"

	"github.com/jmpinit/net-ur-plot/pkg/motion"
)

// Defaults for plotting on a table below the tool's start pose
const (
	DefaultTargetSize  = 0.3   // drawing width, meters
	DefaultDrawHeight  = 0.003 // pen down
	DefaultLiftHeight  = -0.05 // pen up
	DefaultSquareWidth = 0.1
)

// ErrEmptyDrawing is returned when a drawing has no points to plot
var ErrEmptyDrawing = errors.New("drawing contains no paths")

// Point is a 2D point in drawing units
type Point struct {
	X float64
	Y float64
}

// Polyline is a connected pen-down stroke
type Polyline []Point

// Drawing is a set of strokes with the size of the canvas they live on
type Drawing struct {
	Lines  []Polyline
	Width  float64
	Height float64
}

// Options control how a drawing is turned into waypoints
type Options struct {
	TargetSize float64 // width of the plotted drawing in meters
	DrawHeight float64
	LiftHeight float64
}

// DefaultOptions returns the reference plotting options
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		DrawHeight: DefaultDrawHeight,
		LiftHeight: DefaultLiftHeight,
	}
}

// Scale returns the x and y factors that map the canvas to the target size,
// keeping the aspect ratio
func (d *Drawing) Scale(targetSize float64) (sx, sy float64) {
	if d.Width <= 0 || d.Height <= 0 {
		return 1, 1
	}
	targetWidth := targetSize
	targetHeight := targetSize * d.Height / d.Width
	return targetWidth / d.Width, targetHeight / d.Height
}

// Waypoints yields the plotting sequence: travel to the first point with the
// pen lifted, then for every stroke lower the pen on each point and lift it
// at the stroke's last point.
func (d *Drawing) Waypoints(opts Options) iter.Seq[motion.Waypoint] {
	return func(yield func(motion.Waypoint) bool) {
		first, ok := d.firstPoint()
		if !ok {
			return
		}

		sx, sy := d.Scale(opts.TargetSize)

		if !yield(motion.Waypoint{X: first.X * sx, Y: first.Y * sy, Z: opts.LiftHeight}) {
			return
		}

		for _, line := range d.Lines {
			if len(line) == 0 {
				continue
			}
			for _, p := range line {
				if !yield(motion.Waypoint{X: p.X * sx, Y: p.Y * sy, Z: opts.DrawHeight}) {
					return
				}
			}
			last := line[len(line)-1]
			if !yield(motion.Waypoint{X: last.X * sx, Y: last.Y * sy, Z: opts.LiftHeight}) {
				return
			}
		}
	}
}

// PointCount returns the number of points over all strokes
func (d *Drawing) PointCount() int {
	n := 0
	for _, line := range d.Lines {
		n += len(line)
	}
	return n
}

// WaypointCount returns how many waypoints Waypoints yields
func (d *Drawing) WaypointCount() int {
	if _, ok := d.firstPoint(); !ok {
		return 0
	}
	n := 1
	for _, line := range d.Lines {
		if len(line) > 0 {
			n += len(line) + 1
		}
	}
	return n
}

func (d *Drawing) firstPoint() (Point, bool) {
	for _, line := range d.Lines {
		if len(line) > 0 {
			return line[0], true
		}
	}
	return Point{}, false
}

// Square returns the self-test sequence: a square of the given width drawn
// from the origin, starting and ending with the pen lifted above it.
func Square(width, drawHeight, liftHeight float64) []motion.Waypoint {
	return []motion.Waypoint{
		{X: 0, Y: 0, Z: liftHeight},
		{X: 0, Y: 0, Z: drawHeight},
		{X: width, Y: 0, Z: drawHeight},
		{X: width, Y: width, Z: drawHeight},
		{X: 0, Y: width, Z: drawHeight},
		{X: 0, Y: 0, Z: drawHeight},
		{X: 0, Y: 0, Z: liftHeight},
	}
}
