// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

// Package simulator emulates the robot side of a plot session: it accepts the
// bootstrap script on the control port, dials back to the address in the
// script and acknowledges every command frame.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/jmpinit/net-ur-plot/pkg/urproto"
)

// maxScriptSize bounds how much of a bootstrap upload is read
const maxScriptSize = 1 << 20

var dialBackPattern = regexp.MustCompile(`socket_open\(\s*"([^"]+)"\s*,\s*(\d+)`)

// ErrNoDialBack is returned when a script does not contain a socket_open call
var ErrNoDialBack = errors.New("script does not open a socket")

// ParseDialBack extracts the server address from a bootstrap script
func ParseDialBack(script string) (string, error) {
	m := dialBackPattern.FindStringSubmatch(script)
	if m == nil {
		return "", ErrNoDialBack
	}
	port, err := strconv.Atoi(m[2])
	if err != nil || port <= 0 || port > 65535 {
		return "", fmt.Errorf("invalid port %q in script", m[2])
	}
	return net.JoinHostPort(m[1], m[2]), nil
}

// AckFunc chooses the acknowledgement for the seq-th command of a session
type AckFunc func(seq int, cmd urproto.Command) int32

// Simulator is a fake robot controller
type Simulator struct {
	ln        net.Listener
	logger    *log.Logger
	ackFunc   AckFunc
	moveDelay time.Duration
	dropAfter int

	mu       sync.Mutex
	commands []urproto.Command
	sessions int
}

// Option configures a Simulator
type Option func(*Simulator)

// WithLogger sets the logger for session messages
func WithLogger(l *log.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAckFunc sets how commands are acknowledged (default: always AckOK)
func WithAckFunc(fn AckFunc) Option {
	return func(s *Simulator) {
		if fn != nil {
			s.ackFunc = fn
		}
	}
}

// WithMoveDelay delays every acknowledgement, like a real move would
func WithMoveDelay(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.moveDelay = d
		}
	}
}

// WithDropAfter closes the connection after n frames without acknowledging
// the last one
func WithDropAfter(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.dropAfter = n
		}
	}
}

// Listen binds the control port
func Listen(addr string, opts ...Option) (*Simulator, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind control port %s: %w", addr, err)
	}

	s := &Simulator{
		ln:      ln,
		logger:  log.New(io.Discard, "", 0),
		ackFunc: func(int, urproto.Command) int32 { return urproto.AckOK },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Addr returns the control port address
func (s *Simulator) Addr() net.Addr {
	return s.ln.Addr()
}

// Port returns the control port number
func (s *Simulator) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Close stops accepting scripts
func (s *Simulator) Close() error {
	return s.ln.Close()
}

// Commands returns every command received so far, over all sessions
func (s *Simulator) Commands() []urproto.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]urproto.Command(nil), s.commands...)
}

// Sessions returns the number of completed plot sessions
func (s *Simulator) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// Serve accepts bootstrap uploads until ctx is done or the simulator is
// closed. Sessions run one at a time, like a robot running one program.
func (s *Simulator) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.ln.Close()
	})
	defer stop()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		script, err := readScript(conn)
		conn.Close()
		if err != nil {
			s.logger.Printf("Failed to read script: %v", err)
			continue
		}

		addr, err := ParseDialBack(script)
		if err != nil {
			s.logger.Printf("Ignoring script: %v", err)
			continue
		}

		if err := s.runSession(ctx, addr); err != nil {
			s.logger.Printf("Session ended: %v", err)
		}
	}
}

func readScript(conn net.Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	data, err := io.ReadAll(io.LimitReader(conn, maxScriptSize))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Simulator) runSession(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	s.logger.Printf("Connected to plot server %s", addr)

	frame := make([]byte, urproto.FrameSize)
	for seq := 0; ; seq++ {
		if _, err := io.ReadFull(conn, frame); err != nil {
			if errors.Is(err, io.EOF) {
				s.finishSession(seq)
				return nil
			}
			return err
		}

		cmd, err := urproto.DecodeCommand(frame)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.mu.Unlock()

		s.logger.Printf("#%d %s", seq, urproto.FormatCommand(cmd))

		if s.dropAfter > 0 && seq+1 >= s.dropAfter {
			s.logger.Printf("Dropping connection after %d frames", seq+1)
			return nil
		}

		if s.moveDelay > 0 {
			time.Sleep(s.moveDelay)
		}

		code := urproto.AckUnknownCommand
		if cmd.Opcode() == urproto.CmdMoveL {
			code = s.ackFunc(seq, cmd)
		}
		if _, err := conn.Write(urproto.EncodeAck(code)); err != nil {
			return err
		}
	}
}

func (s *Simulator) finishSession(frames int) {
	s.mu.Lock()
	s.sessions++
	s.mu.Unlock()
	s.logger.Printf("Plot server closed the connection after %d frames", frames)
}
