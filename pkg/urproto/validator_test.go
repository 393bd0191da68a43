package urproto

import (
	"math"
	"testing"

	"github.com/jmpinit/net-ur-plot/pkg/motion"
)

func TestValidateWaypoint(t *testing.T) {
	tests := []struct {
		name     string
		waypoint motion.Waypoint
		reach    float64
		want     []AnomalyType
	}{
		{"valid", motion.Waypoint{X: 0.1, Y: 0.1, Z: 0.003}, 0.85, nil},
		{"valid without reach check", motion.Waypoint{X: 10, Y: 10}, 0, nil},
		{"nan", motion.Waypoint{X: math.NaN()}, 0.85, []AnomalyType{AnomalyNotFinite}},
		{"inf on two axes", motion.Waypoint{Y: math.Inf(1), Z: math.Inf(-1)}, 0, []AnomalyType{AnomalyNotFinite, AnomalyNotFinite}},
		{"overflow", motion.Waypoint{X: 300000}, 0, []AnomalyType{AnomalyOutOfRange}},
		{"beyond reach", motion.Waypoint{X: 0.8, Y: 0.8}, 0.85, []AnomalyType{AnomalyBeyondReach}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateWaypoint(tt.waypoint, tt.reach)
			if len(errs) != len(tt.want) {
				t.Fatalf("got %d errors (%v), want %d", len(errs), errs, len(tt.want))
			}
			for i, e := range errs {
				if e.Type != tt.want[i] {
					t.Errorf("error %d: type %d, want %d (%s)", i, e.Type, tt.want[i], e.Message)
				}
			}
		})
	}
}

func TestFormatCommand(t *testing.T) {
	c := Command{CmdMoveL, 1000, -5, -500, 0, 0, 0}
	if got, want := FormatCommand(c), "MOVEL x=100.0mm y=-0.5mm z=-50.0mm"; got != want {
		t.Errorf("FormatCommand = %q, want %q", got, want)
	}
	if got := FormatAck(-7); got != "ERROR -7" {
		t.Errorf("FormatAck(-7) = %q", got)
	}
	if got := FormatAck(0); got != "OK" {
		t.Errorf("FormatAck(0) = %q", got)
	}
}

func TestStatistics(t *testing.T) {
	s := NewStatistics()
	s.RecordSent()
	s.RecordAck(0)
	s.RecordSent()
	s.RecordAck(-7)
	s.RecordSent()
	s.RecordTransportError()

	if s.FramesSent != 3 || s.AcksOK != 1 || s.RobotErrors != 1 || s.TransportErrors != 1 {
		t.Errorf("unexpected counters: %+v", s)
	}
	if s.Acked() != 2 {
		t.Errorf("Acked() = %d, want 2", s.Acked())
	}
	if s.LastErrorCode != -7 {
		t.Errorf("LastErrorCode = %d, want -7", s.LastErrorCode)
	}
	if s.String() == "" {
		t.Error("String() returned empty summary")
	}
}
