package cmd

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmpinit/net-ur-plot/pkg/motion"
	"github.com/jmpinit/net-ur-plot/pkg/robot"
	"github.com/jmpinit/net-ur-plot/pkg/urproto"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{45 * time.Second, "45 seconds"},
		{61 * time.Second, "1 minute and 1 second"},
		{2 * time.Hour, "2 hours"},
		{90 * time.Minute, "1 hour and 30 minutes"},
		{time.Hour + time.Minute + time.Second, "1 hour, 1 minute, and 1 second"},
	}

	for _, tt := range tests {
		if got := formatElapsed(tt.in); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// step feeds one message to the model
func step(t *testing.T, m progressModel, msg any) progressModel {
	t.Helper()
	next, _ := m.Update(msg)
	pm, ok := next.(progressModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return pm
}

func TestProgressModel_Events(t *testing.T) {
	m := newProgressModel(drawJob{source: "test.svg", total: 4}, "TCP: robot 10.0.0.2")

	cmd, err := urproto.NewMoveL(motion.Waypoint{X: 0.01})
	if err != nil {
		t.Fatal(err)
	}

	m = step(t, m, channelEventMsg(robot.Event{Kind: robot.EventConnected, Remote: "10.0.0.2:5000"}))
	m = step(t, m, channelEventMsg(robot.Event{Kind: robot.EventState, State: robot.StateServing}))
	m = step(t, m, channelEventMsg(robot.Event{Kind: robot.EventFrameSent, Seq: 0, Command: cmd}))
	m = step(t, m, channelEventMsg(robot.Event{Kind: robot.EventAck, Seq: 0, Command: cmd, Ack: urproto.AckOK}))
	m = step(t, m, channelEventMsg(robot.Event{Kind: robot.EventFrameSent, Seq: 1, Command: cmd}))
	m = step(t, m, channelEventMsg(robot.Event{Kind: robot.EventAck, Seq: 1, Command: cmd, Ack: 5}))

	if m.state != robot.StateServing {
		t.Errorf("state = %v, want SERVING", m.state)
	}
	if m.remote != "10.0.0.2:5000" {
		t.Errorf("remote = %q", m.remote)
	}
	if m.stats.FramesSent != 2 || m.stats.AcksOK != 1 || m.stats.RobotErrors != 1 {
		t.Errorf("stats = sent %d ok %d errors %d", m.stats.FramesSent, m.stats.AcksOK, m.stats.RobotErrors)
	}
	if m.lastCommand != "MOVEL x=10.0mm y=0.0mm z=0.0mm" {
		t.Errorf("lastCommand = %q", m.lastCommand)
	}

	last := m.eventLog[len(m.eventLog)-1]
	if !last.isError || !strings.Contains(last.message, "error 5") {
		t.Errorf("last log entry = %+v", last)
	}

	view := m.View()
	for _, want := range []string{"URPLOT - test.svg", "2 / 4 moves", "SERVING"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestProgressModel_Fatal(t *testing.T) {
	m := newProgressModel(drawJob{source: "square", total: 7}, "Serial: /dev/ttyUSB0 @ 115200 baud")

	m = step(t, m, channelEventMsg(robot.Event{Kind: robot.EventFatal, Err: robot.ErrConnectionClosed}))
	if m.stats.TransportErrors != 1 {
		t.Errorf("TransportErrors = %d, want 1", m.stats.TransportErrors)
	}

	next, quit := m.Update(sessionDoneMsg{err: errors.New("boom")})
	if quit == nil {
		t.Fatal("session end should quit the view")
	}
	if pm := next.(progressModel); !pm.done {
		t.Error("model not marked done")
	}
}

func TestProgressModel_LogIsBounded(t *testing.T) {
	m := newProgressModel(drawJob{source: "square"}, "")
	for i := 0; i < 20; i++ {
		m.addLogEntry("entry", false)
	}
	if len(m.eventLog) != m.maxLogEntries {
		t.Errorf("log length = %d, want %d", len(m.eventLog), m.maxLogEntries)
	}
}
