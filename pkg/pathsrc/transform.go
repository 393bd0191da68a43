// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package pathsrc

import (
	"fmt"
	"math"
	"strings"
)

// matrix is a 2D affine transform in SVG order:
//
//	| a c e |
//	| b d f |
//	| 0 0 1 |
type matrix struct {
	a, b, c, d, e, f float64
}

var identity = matrix{a: 1, d: 1}

// mul returns m·n: n is applied first, then m
func (m matrix) mul(n matrix) matrix {
	return matrix{
		a: m.a*n.a + m.c*n.b,
		b: m.b*n.a + m.d*n.b,
		c: m.a*n.c + m.c*n.d,
		d: m.b*n.c + m.d*n.d,
		e: m.a*n.e + m.c*n.f + m.e,
		f: m.b*n.e + m.d*n.f + m.f,
	}
}

func (m matrix) apply(p Point) Point {
	return Point{
		X: m.a*p.X + m.c*p.Y + m.e,
		Y: m.b*p.X + m.d*p.Y + m.f,
	}
}

func translate(tx, ty float64) matrix {
	return matrix{a: 1, d: 1, e: tx, f: ty}
}

func scale(sx, sy float64) matrix {
	return matrix{a: sx, d: sy}
}

func rotate(deg float64) matrix {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return matrix{a: cos, b: sin, c: -sin, d: cos}
}

// parseTransform parses a transform attribute such as
// "translate(10 20) rotate(45)". An empty attribute is the identity.
func parseTransform(s string) (matrix, error) {
	m := identity
	rest := strings.TrimSpace(s)

	for rest != "" {
		open := strings.IndexByte(rest, '(')
		end := strings.IndexByte(rest, ')')
		if open < 0 || end < open {
			return identity, fmt.Errorf("invalid transform %q", s)
		}

		name := strings.TrimSpace(rest[:open])
		args, err := parseNumbers(rest[open+1 : end])
		if err != nil {
			return identity, fmt.Errorf("transform %s: %w", name, err)
		}

		t, err := transformFunc(name, args)
		if err != nil {
			return identity, err
		}
		m = m.mul(t)

		rest = strings.TrimLeft(rest[end+1:], " \t\r\n,")
	}

	return m, nil
}

func transformFunc(name string, args []float64) (matrix, error) {
	n := len(args)

	switch {
	case name == "matrix" && n == 6:
		return matrix{args[0], args[1], args[2], args[3], args[4], args[5]}, nil
	case name == "translate" && n == 1:
		return translate(args[0], 0), nil
	case name == "translate" && n == 2:
		return translate(args[0], args[1]), nil
	case name == "scale" && n == 1:
		return scale(args[0], args[0]), nil
	case name == "scale" && n == 2:
		return scale(args[0], args[1]), nil
	case name == "rotate" && n == 1:
		return rotate(args[0]), nil
	case name == "rotate" && n == 3:
		// Rotation about (cx, cy)
		cx, cy := args[1], args[2]
		return translate(cx, cy).mul(rotate(args[0])).mul(translate(-cx, -cy)), nil
	case name == "skewX" && n == 1:
		return matrix{a: 1, c: math.Tan(args[0] * math.Pi / 180), d: 1}, nil
	case name == "skewY" && n == 1:
		return matrix{a: 1, b: math.Tan(args[0] * math.Pi / 180), d: 1}, nil
	}

	return identity, fmt.Errorf("unsupported transform %s with %d arguments", name, n)
}
