package pathsrc

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/jmpinit/net-ur-plot/pkg/motion"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSquare(t *testing.T) {
	wps := Square(DefaultSquareWidth, DefaultDrawHeight, DefaultLiftHeight)
	if len(wps) != 7 {
		t.Fatalf("got %d waypoints, want 7", len(wps))
	}
	if wps[0].Z != DefaultLiftHeight || wps[len(wps)-1].Z != DefaultLiftHeight {
		t.Error("square must start and end with the pen lifted")
	}
	if wps[2] != (motion.Waypoint{X: 0.1, Y: 0, Z: 0.003}) {
		t.Errorf("unexpected corner %v", wps[2])
	}
}

func TestDrawing_WaypointsSequence(t *testing.T) {
	d := &Drawing{
		Width:  100,
		Height: 50,
		Lines: []Polyline{
			{{0, 0}, {100, 0}},
			{{100, 50}},
		},
	}
	opts := Options{TargetSize: 0.2, DrawHeight: 0.003, LiftHeight: -0.05}

	got := slices.Collect(d.Waypoints(opts))
	want := []motion.Waypoint{
		{X: 0, Y: 0, Z: -0.05},
		{X: 0, Y: 0, Z: 0.003},
		{X: 0.2, Y: 0, Z: 0.003},
		{X: 0.2, Y: 0, Z: -0.05},
		{X: 0.2, Y: 0.1, Z: 0.003},
		{X: 0.2, Y: 0.1, Z: -0.05},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d waypoints, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !near(got[i].X, want[i].X) || !near(got[i].Y, want[i].Y) || got[i].Z != want[i].Z {
			t.Errorf("waypoint %d = %v, want %v", i, got[i], want[i])
		}
	}
	if d.WaypointCount() != len(want) {
		t.Errorf("WaypointCount() = %d, want %d", d.WaypointCount(), len(want))
	}
}

func TestDrawing_WaypointsStopsEarly(t *testing.T) {
	d := &Drawing{Width: 1, Height: 1, Lines: []Polyline{{{0, 0}, {1, 1}, {0, 1}}}}
	n := 0
	for range d.Waypoints(DefaultOptions()) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d times, want 2", n)
	}
}

func TestReadSVG_Elements(t *testing.T) {
	doc := `<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100" viewBox="0 0 200 100">
  <g>
    <line x1="0" y1="0" x2="10" y2="10"/>
    <polyline points="0,0 10,0 10,10"/>
    <polygon points="0 0, 5 0, 5 5"/>
    <rect x="1" y="2" width="3" height="4"/>
    <path d="M 0 0 L 10 0 10 10 Z"/>
  </g>
</svg>`

	d, err := ReadSVG(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadSVG failed: %v", err)
	}
	if d.Width != 200 || d.Height != 100 {
		t.Errorf("canvas = %vx%v, want 200x100", d.Width, d.Height)
	}
	if len(d.Lines) != 5 {
		t.Fatalf("got %d strokes, want 5", len(d.Lines))
	}

	polygon := d.Lines[2]
	if len(polygon) != 4 || polygon[0] != polygon[3] {
		t.Errorf("polygon should be closed: %v", polygon)
	}
	rect := d.Lines[3]
	if len(rect) != 5 || rect[2] != (Point{4, 6}) {
		t.Errorf("unexpected rect stroke: %v", rect)
	}
	path := d.Lines[4]
	if len(path) != 4 || path[3] != (Point{0, 0}) {
		t.Errorf("unexpected path stroke: %v", path)
	}
}

func TestReadSVG_SizeFallbacks(t *testing.T) {
	d, err := ReadSVG(strings.NewReader(`<svg width="40px" height="20px"><line x1="0" y1="0" x2="4" y2="2"/></svg>`))
	if err != nil {
		t.Fatalf("ReadSVG failed: %v", err)
	}
	if d.Width != 40 || d.Height != 20 {
		t.Errorf("canvas = %vx%v, want 40x20", d.Width, d.Height)
	}

	d, err = ReadSVG(strings.NewReader(`<svg><line x1="0" y1="0" x2="8" y2="4"/></svg>`))
	if err != nil {
		t.Fatalf("ReadSVG failed: %v", err)
	}
	if d.Width != 8 || d.Height != 4 {
		t.Errorf("extent canvas = %vx%v, want 8x4", d.Width, d.Height)
	}
}

func nearPoint(a, b Point) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6
}

func TestReadSVG_GroupTransforms(t *testing.T) {
	doc := `<svg width="100" height="100">
  <g transform="translate(10,20) scale(2)">
    <line x1="0" y1="0" x2="5" y2="0"/>
    <g transform="rotate(90)">
      <line x1="0" y1="0" x2="5" y2="0"/>
    </g>
  </g>
  <line x1="1" y1="1" x2="2" y2="2" transform="matrix(1 0 0 1 -1 -1)"/>
</svg>`

	d, err := ReadSVG(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadSVG failed: %v", err)
	}
	if len(d.Lines) != 3 {
		t.Fatalf("got %d strokes, want 3", len(d.Lines))
	}

	want := []Polyline{
		{{10, 20}, {20, 20}},
		{{10, 20}, {10, 30}},
		{{0, 0}, {1, 1}},
	}
	for i, line := range d.Lines {
		for j, p := range line {
			if !nearPoint(p, want[i][j]) {
				t.Errorf("stroke %d point %d = %v, want %v", i, j, p, want[i][j])
			}
		}
	}
}

func TestReadSVG_ViewBoxOrigin(t *testing.T) {
	d, err := ReadSVG(strings.NewReader(
		`<svg viewBox="100 200 50 50"><line x1="100" y1="200" x2="150" y2="250"/></svg>`))
	if err != nil {
		t.Fatalf("ReadSVG failed: %v", err)
	}
	if d.Width != 50 || d.Height != 50 {
		t.Errorf("canvas = %vx%v, want 50x50", d.Width, d.Height)
	}
	line := d.Lines[0]
	if !nearPoint(line[0], Point{0, 0}) || !nearPoint(line[1], Point{50, 50}) {
		t.Errorf("stroke = %v, want viewBox origin at (0, 0)", line)
	}
}

func TestReadSVG_Units(t *testing.T) {
	d, err := ReadSVG(strings.NewReader(
		`<svg width="10mm" height="20mm" viewBox="0 0 10 20"><line x1="0" y1="0" x2="10" y2="20"/></svg>`))
	if err != nil {
		t.Fatalf("ReadSVG failed: %v", err)
	}

	mm := 96 / 25.4
	if !near(d.Width, 10*mm) || !near(d.Height, 20*mm) {
		t.Errorf("canvas = %vx%v, want %vx%v px", d.Width, d.Height, 10*mm, 20*mm)
	}
	if end := d.Lines[0][1]; !nearPoint(end, Point{10 * mm, 20 * mm}) {
		t.Errorf("end point = %v", end)
	}
}

func TestReadSVG_AspectRatio(t *testing.T) {
	// A square viewBox in a wide viewport is centered horizontally
	d, err := ReadSVG(strings.NewReader(
		`<svg width="200" height="100" viewBox="0 0 10 10"><line x1="0" y1="0" x2="10" y2="10"/></svg>`))
	if err != nil {
		t.Fatalf("ReadSVG failed: %v", err)
	}
	if line := d.Lines[0]; !nearPoint(line[0], Point{50, 0}) || !nearPoint(line[1], Point{150, 100}) {
		t.Errorf("meet stroke = %v", line)
	}

	d, err = ReadSVG(strings.NewReader(
		`<svg width="200" height="100" viewBox="0 0 10 10" preserveAspectRatio="none"><line x1="0" y1="0" x2="10" y2="10"/></svg>`))
	if err != nil {
		t.Fatalf("ReadSVG failed: %v", err)
	}
	if line := d.Lines[0]; !nearPoint(line[1], Point{200, 100}) {
		t.Errorf("stretched stroke = %v", line)
	}
}

func TestReadSVG_CirclesAndDefs(t *testing.T) {
	doc := `<svg width="20" height="20">
  <defs><line x1="0" y1="0" x2="9" y2="9"/></defs>
  <circle cx="5" cy="5" r="5"/>
  <ellipse cx="10" cy="10" rx="4" ry="2"/>
</svg>`

	d, err := ReadSVG(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadSVG failed: %v", err)
	}
	if len(d.Lines) != 2 {
		t.Fatalf("got %d strokes, want 2 (defs are not drawn)", len(d.Lines))
	}

	circle := d.Lines[0]
	if len(circle) != ellipseSegments+1 || circle[0] != circle[len(circle)-1] {
		t.Errorf("circle should be a closed %d-point stroke, got %d points", ellipseSegments+1, len(circle))
	}
	if !nearPoint(circle[0], Point{10, 5}) {
		t.Errorf("circle starts at %v, want (10, 5)", circle[0])
	}
	if !nearPoint(d.Lines[1][ellipseSegments/4], Point{10, 12}) {
		t.Errorf("ellipse quarter point = %v, want (10, 12)", d.Lines[1][ellipseSegments/4])
	}
}

func TestParseTransform(t *testing.T) {
	tests := []struct {
		in      string
		p       Point
		want    Point
		wantErr bool
	}{
		{in: "", p: Point{3, 4}, want: Point{3, 4}},
		{in: "translate(5)", p: Point{1, 1}, want: Point{6, 1}},
		{in: "scale(2, 3)", p: Point{1, 1}, want: Point{2, 3}},
		{in: "rotate(90 10 10)", p: Point{20, 10}, want: Point{10, 20}},
		{in: "translate(10 0),scale(2)", p: Point{1, 1}, want: Point{12, 2}},
		{in: "skewX(45)", p: Point{0, 2}, want: Point{2, 2}},
		{in: "translate(1", wantErr: true},
		{in: "spin(3)", wantErr: true},
		{in: "matrix(1 0 0)", wantErr: true},
	}

	for _, tt := range tests {
		m, err := parseTransform(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseTransform(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTransform(%q) failed: %v", tt.in, err)
			continue
		}
		if got := m.apply(tt.p); !nearPoint(got, tt.want) {
			t.Errorf("parseTransform(%q) maps %v to %v, want %v", tt.in, tt.p, got, tt.want)
		}
	}
}

func TestReadSVG_Errors(t *testing.T) {
	if _, err := ReadSVG(strings.NewReader(`<svg></svg>`)); !errors.Is(err, ErrEmptyDrawing) {
		t.Errorf("expected ErrEmptyDrawing, got %v", err)
	}
	if _, err := ReadSVG(strings.NewReader(`<html></html>`)); err == nil {
		t.Error("non-SVG document should fail")
	}
	if _, err := ReadSVG(strings.NewReader(`<svg><path d="M 0 0 L x"/></svg>`)); err == nil {
		t.Error("malformed path data should fail")
	}
	if _, err := ReadSVG(strings.NewReader(`<svg><polyline points="0 0 1"/></svg>`)); err == nil {
		t.Error("odd point list should fail")
	}
	if _, err := ReadSVG(strings.NewReader(`<svg><g transform="spin(3)"><line x2="1"/></g></svg>`)); err == nil {
		t.Error("unsupported transform should fail")
	}
}

func TestParsePathData(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		lines int
		last  Point
	}{
		{"absolute lines", "M0,0 L10,0 L10,10", 1, Point{10, 10}},
		{"relative with implicit lineto", "m1 1 10 0 0 10", 1, Point{11, 11}},
		{"horizontal and vertical", "M0 0 H5 V5 h-5 v-5", 1, Point{0, 0}},
		{"two subpaths", "M0 0 L1 1 M5 5 L6 6", 2, Point{6, 6}},
		{"compact numbers", "M0-1L.5.5", 1, Point{0.5, 0.5}},
		{"exponent", "M0 0 L1e1 2E-1", 1, Point{10, 0.2}},
		{"cubic", "M0 0 C0 10 10 10 10 0", 1, Point{10, 0}},
		{"smooth cubic", "M0 0 C0 10 10 10 10 0 S20 -10 20 0", 1, Point{20, 0}},
		{"quadratic", "M0 0 Q5 10 10 0 T20 0", 1, Point{20, 0}},
		{"arc as line", "M0 0 A5 5 0 0 1 10 0", 1, Point{10, 0}},
		{"lone moveto", "M3 3", 0, Point{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := ParsePathData(tt.data)
			if err != nil {
				t.Fatalf("ParsePathData(%q) failed: %v", tt.data, err)
			}
			if len(lines) != tt.lines {
				t.Fatalf("got %d strokes, want %d: %v", len(lines), tt.lines, lines)
			}
			if tt.lines == 0 {
				return
			}
			last := lines[len(lines)-1]
			p := last[len(last)-1]
			if !near(p.X, tt.last.X) || !near(p.Y, tt.last.Y) {
				t.Errorf("last point = %v, want %v", p, tt.last)
			}
		})
	}
}

func TestParsePathData_CurveIsFlattened(t *testing.T) {
	lines, err := ParsePathData("M0 0 C0 10 10 10 10 0")
	if err != nil {
		t.Fatalf("ParsePathData failed: %v", err)
	}
	if got := len(lines[0]); got != curveSegments+1 {
		t.Errorf("curve has %d points, want %d", got, curveSegments+1)
	}
}

func TestParsePathData_Errors(t *testing.T) {
	for _, data := range []string{"10 10", "M0", "M0 0 L", "M0 0 X1 1"} {
		if _, err := ParsePathData(data); err == nil {
			t.Errorf("ParsePathData(%q) should fail", data)
		}
	}
}
