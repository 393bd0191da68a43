// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package pathsrc

import (
	"fmt"
	"strconv"
)

// ParsePathData converts SVG path data into polylines. Straight segments are
// kept as-is, cubic and quadratic curves are flattened and elliptical arcs
// are replaced by a line to their end point.
func ParsePathData(data string) ([]Polyline, error) {
	sc := &pathScanner{s: data}
	b := &pathBuilder{}

	var cmd byte
	for {
		sc.skipSeparators()
		if sc.done() {
			break
		}

		if c := sc.peek(); isCommand(c) {
			cmd = c
			sc.pos++
		} else if cmd == 0 {
			return nil, fmt.Errorf("path data must start with a command, got %q", c)
		}

		if err := b.apply(cmd, sc); err != nil {
			return nil, err
		}

		// Extra coordinate pairs after a moveto are implicit linetos
		switch cmd {
		case 'M':
			cmd = 'L'
		case 'm':
			cmd = 'l'
		case 'Z', 'z':
			cmd = 0
		}
	}

	b.flush()
	return b.lines, nil
}

type pathBuilder struct {
	lines   []Polyline
	current Polyline
	pos     Point
	start   Point
	ctrl    Point // last control point, for smooth curves
	lastCmd byte
}

func (b *pathBuilder) apply(cmd byte, sc *pathScanner) error {
	rel := cmd >= 'a'
	var base Point
	if rel {
		base = b.pos
	}

	switch cmd {
	case 'M', 'm':
		p, err := sc.point(base)
		if err != nil {
			return err
		}
		b.flush()
		b.pos, b.start = p, p
		b.current = Polyline{p}

	case 'L', 'l':
		p, err := sc.point(base)
		if err != nil {
			return err
		}
		b.lineTo(p)

	case 'H', 'h':
		v, err := sc.number()
		if err != nil {
			return err
		}
		p := Point{v + base.X, b.pos.Y}
		b.lineTo(p)

	case 'V', 'v':
		v, err := sc.number()
		if err != nil {
			return err
		}
		p := Point{b.pos.X, v + base.Y}
		b.lineTo(p)

	case 'Z', 'z':
		b.lineTo(b.start)
		b.flush()
		b.current = Polyline{b.start}

	case 'C', 'c':
		pts, err := sc.points(base, 3)
		if err != nil {
			return err
		}
		b.cubic(pts[0], pts[1], pts[2])

	case 'S', 's':
		pts, err := sc.points(base, 2)
		if err != nil {
			return err
		}
		c1 := b.pos
		if b.lastCmd == 'C' || b.lastCmd == 'S' {
			c1 = reflect(b.ctrl, b.pos)
		}
		b.cubic(c1, pts[0], pts[1])

	case 'Q', 'q':
		pts, err := sc.points(base, 2)
		if err != nil {
			return err
		}
		b.quadratic(pts[0], pts[1])

	case 'T', 't':
		p, err := sc.point(base)
		if err != nil {
			return err
		}
		c := b.pos
		if b.lastCmd == 'Q' || b.lastCmd == 'T' {
			c = reflect(b.ctrl, b.pos)
		}
		b.quadratic(c, p)

	case 'A', 'a':
		// rx ry rotation large-arc sweep x y
		for i := 0; i < 5; i++ {
			if _, err := sc.number(); err != nil {
				return err
			}
		}
		p, err := sc.point(base)
		if err != nil {
			return err
		}
		b.lineTo(p)

	default:
		return fmt.Errorf("unsupported path command %q", cmd)
	}

	b.lastCmd = upper(cmd)
	return nil
}

func (b *pathBuilder) lineTo(p Point) {
	if len(b.current) == 0 {
		b.current = Polyline{b.pos}
	}
	b.current = append(b.current, p)
	b.pos = p
}

func (b *pathBuilder) cubic(c1, c2, end Point) {
	p0 := b.pos
	for i := 1; i <= curveSegments; i++ {
		t := float64(i) / curveSegments
		mt := 1 - t
		b.lineTo(Point{
			X: mt*mt*mt*p0.X + 3*mt*mt*t*c1.X + 3*mt*t*t*c2.X + t*t*t*end.X,
			Y: mt*mt*mt*p0.Y + 3*mt*mt*t*c1.Y + 3*mt*t*t*c2.Y + t*t*t*end.Y,
		})
	}
	b.ctrl = c2
}

func (b *pathBuilder) quadratic(c, end Point) {
	p0 := b.pos
	for i := 1; i <= curveSegments; i++ {
		t := float64(i) / curveSegments
		mt := 1 - t
		b.lineTo(Point{
			X: mt*mt*p0.X + 2*mt*t*c.X + t*t*end.X,
			Y: mt*mt*p0.Y + 2*mt*t*c.Y + t*t*end.Y,
		})
	}
	b.ctrl = c
}

// flush ends the current stroke. A lone moveto does not draw anything.
func (b *pathBuilder) flush() {
	if len(b.current) > 1 {
		b.lines = append(b.lines, b.current)
	}
	b.current = nil
}

func reflect(ctrl, about Point) Point {
	return Point{2*about.X - ctrl.X, 2*about.Y - ctrl.Y}
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func isCommand(c byte) bool {
	switch upper(c) {
	case 'M', 'L', 'H', 'V', 'Z', 'C', 'S', 'Q', 'T', 'A':
		return true
	}
	return false
}

// pathScanner tokenizes numbers in SVG attribute syntax
type pathScanner struct {
	s   string
	pos int
}

func (sc *pathScanner) done() bool {
	return sc.pos >= len(sc.s)
}

func (sc *pathScanner) peek() byte {
	return sc.s[sc.pos]
}

func (sc *pathScanner) skipSeparators() {
	for !sc.done() {
		switch sc.peek() {
		case ' ', '\t', '\n', '\r', ',':
			sc.pos++
		default:
			return
		}
	}
}

// number reads one number. "1.5.5" is two numbers and "1-2" is 1 and -2.
func (sc *pathScanner) number() (float64, error) {
	sc.skipSeparators()
	start := sc.pos
	if !sc.done() && (sc.peek() == '+' || sc.peek() == '-') {
		sc.pos++
	}

	digits, dot := false, false
scan:
	for !sc.done() {
		c := sc.peek()
		switch {
		case c >= '0' && c <= '9':
			digits = true
		case c == '.' && !dot:
			dot = true
		case (c == 'e' || c == 'E') && digits:
			sc.pos++
			if !sc.done() && (sc.peek() == '+' || sc.peek() == '-') {
				sc.pos++
			}
			continue
		default:
			break scan
		}
		sc.pos++
	}

	if !digits {
		return 0, fmt.Errorf("expected number at offset %d in %q", start, sc.s)
	}
	return strconv.ParseFloat(sc.s[start:sc.pos], 64)
}

func (sc *pathScanner) point(base Point) (Point, error) {
	x, err := sc.number()
	if err != nil {
		return Point{}, err
	}
	y, err := sc.number()
	if err != nil {
		return Point{}, err
	}
	return Point{x + base.X, y + base.Y}, nil
}

func (sc *pathScanner) points(base Point, n int) ([]Point, error) {
	pts := make([]Point, n)
	for i := range pts {
		p, err := sc.point(base)
		if err != nil {
			return nil, err
		}
		pts[i] = p
	}
	return pts, nil
}
