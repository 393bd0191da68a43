// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package pathsrc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// curveSegments is the number of line segments a Bezier curve is flattened into
const curveSegments = 8

// ReadSVGFile reads an SVG file into a Drawing
func ReadSVGFile(path string) (*Drawing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := ReadSVG(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ellipseSegments is the number of line segments a circle or ellipse is
// flattened into
const ellipseSegments = 32

// Subtrees that hold reusable or non-rendered content
var skippedElements = map[string]bool{
	"defs":     true,
	"symbol":   true,
	"clipPath": true,
	"mask":     true,
	"marker":   true,
	"pattern":  true,
}

// ReadSVG extracts strokes from line, polyline, polygon, rect, circle,
// ellipse and path elements, with element and group transforms applied.
// Coordinates are mapped through the root viewBox into the viewport, in
// pixels (96 per inch); the canvas size is the viewport size. Without a
// viewBox or size the canvas is the strokes' extent. Styling is ignored.
func ReadSVG(r io.Reader) (*Drawing, error) {
	dec := xml.NewDecoder(r)
	d := &Drawing{}
	sawRoot := false

	// Transform in effect for each open element
	var stack []matrix

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid SVG: %w", err)
		}

		var start xml.StartElement
		switch t := tok.(type) {
		case xml.StartElement:
			start = t
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		default:
			continue
		}

		name := start.Name.Local
		if skippedElements[name] {
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("invalid SVG: %w", err)
			}
			continue
		}

		attrs := attrMap(start.Attr)

		m := identity
		if len(stack) > 0 {
			m = stack[len(stack)-1]
		}
		own, err := parseTransform(attrs["transform"])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		m = m.mul(own)

		if name == "svg" && !sawRoot {
			sawRoot = true
			var view matrix
			d.Width, d.Height, view = viewport(attrs)
			m = m.mul(view)
		}
		stack = append(stack, m)

		lines, err := shapeLines(name, attrs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for _, l := range lines {
			if len(l) == 0 {
				continue
			}
			for i := range l {
				l[i] = m.apply(l[i])
			}
			d.Lines = append(d.Lines, l)
		}
	}

	if !sawRoot {
		return nil, errors.New("not an SVG document")
	}
	if len(d.Lines) == 0 {
		return nil, ErrEmptyDrawing
	}
	if d.Width <= 0 || d.Height <= 0 {
		d.Width, d.Height = d.extent()
	}
	return d, nil
}

// shapeLines returns the strokes of a basic shape in its own user units
func shapeLines(name string, attrs map[string]string) ([]Polyline, error) {
	switch name {
	case "line":
		return []Polyline{{
			{num(attrs["x1"]), num(attrs["y1"])},
			{num(attrs["x2"]), num(attrs["y2"])},
		}}, nil
	case "polyline", "polygon":
		pts, err := parsePoints(attrs["points"])
		if err != nil {
			return nil, err
		}
		if name == "polygon" && len(pts) > 0 {
			pts = append(pts, pts[0])
		}
		return []Polyline{pts}, nil
	case "rect":
		x, y := num(attrs["x"]), num(attrs["y"])
		w, h := num(attrs["width"]), num(attrs["height"])
		if w <= 0 || h <= 0 {
			return nil, nil
		}
		return []Polyline{{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}, {x, y}}}, nil
	case "circle":
		r := num(attrs["r"])
		return []Polyline{ellipse(num(attrs["cx"]), num(attrs["cy"]), r, r)}, nil
	case "ellipse":
		return []Polyline{ellipse(num(attrs["cx"]), num(attrs["cy"]), num(attrs["rx"]), num(attrs["ry"]))}, nil
	case "path":
		return ParsePathData(attrs["d"])
	}
	return nil, nil
}

// ellipse returns a closed stroke around (cx, cy), starting at angle 0
func ellipse(cx, cy, rx, ry float64) Polyline {
	if rx <= 0 || ry <= 0 {
		return nil
	}
	pts := make(Polyline, 0, ellipseSegments+1)
	for i := 0; i < ellipseSegments; i++ {
		sin, cos := math.Sincos(2 * math.Pi * float64(i) / ellipseSegments)
		pts = append(pts, Point{cx + rx*cos, cy + ry*sin})
	}
	return append(pts, pts[0])
}

// viewport returns the root canvas size in pixels and the transform from
// viewBox units into it. Only the default "xMidYMid meet" and "none"
// aspect ratio modes are distinguished.
func viewport(attrs map[string]string) (w, h float64, m matrix) {
	w, h = length(attrs["width"]), length(attrs["height"])

	vb, err := parseNumbers(attrs["viewBox"])
	if err != nil || len(vb) != 4 || vb[2] <= 0 || vb[3] <= 0 {
		return w, h, identity
	}
	minX, minY, vbW, vbH := vb[0], vb[1], vb[2], vb[3]

	switch {
	case w <= 0 && h <= 0:
		w, h = vbW, vbH
	case w <= 0:
		w = h * vbW / vbH
	case h <= 0:
		h = w * vbH / vbW
	}

	sx, sy := w/vbW, h/vbH
	if strings.HasPrefix(strings.TrimSpace(attrs["preserveAspectRatio"]), "none") {
		return w, h, matrix{a: sx, d: sy, e: -minX * sx, f: -minY * sy}
	}

	s := min(sx, sy)
	tx := (w-vbW*s)/2 - minX*s
	ty := (h-vbH*s)/2 - minY*s
	return w, h, matrix{a: s, d: s, e: tx, f: ty}
}

func (d *Drawing) extent() (w, h float64) {
	for _, l := range d.Lines {
		for _, p := range l {
			w = max(w, p.X)
			h = max(h, p.Y)
		}
	}
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return w, h
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

// Pixels per unit of absolute length
var unitScale = map[string]float64{
	"":   1,
	"px": 1,
	"in": 96,
	"cm": 96 / 2.54,
	"mm": 96 / 25.4,
	"pt": 96.0 / 72,
	"pc": 16,
}

// length parses an absolute length in pixels. Relative units (%, em) and
// invalid input yield 0.
func length(s string) float64 {
	s = strings.TrimSpace(s)
	n := strings.TrimRight(s, "abcdefghijklmnopqrstuvwxyz%")
	factor, ok := unitScale[s[len(n):]]
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return 0
	}
	return v * factor
}

// num parses a length, dropping any unit suffix. Invalid input yields 0.
func num(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "abcdefghijklmnopqrstuvwxyz%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parsePoints(s string) (Polyline, error) {
	nums, err := parseNumbers(s)
	if err != nil {
		return nil, err
	}
	if len(nums)%2 != 0 {
		return nil, fmt.Errorf("odd number of coordinates in %q", s)
	}
	pts := make(Polyline, 0, len(nums)/2)
	for i := 0; i < len(nums); i += 2 {
		pts = append(pts, Point{nums[i], nums[i+1]})
	}
	return pts, nil
}

func parseNumbers(s string) ([]float64, error) {
	sc := &pathScanner{s: s}
	var out []float64
	for {
		sc.skipSeparators()
		if sc.done() {
			return out, nil
		}
		v, err := sc.number()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}
