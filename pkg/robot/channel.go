// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package robot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jmpinit/net-ur-plot/pkg/motion"
	"github.com/jmpinit/net-ur-plot/pkg/urproto"
)

// Defaults of the reference deployment
const (
	DefaultServerIP      = "0.0.0.0"
	DefaultAcceptTimeout = 10 * time.Second
)

var (
	// ErrBootstrap is returned by Run when the plot program could not be
	// delivered to the robot. Nothing is accepted or sent afterwards.
	ErrBootstrap = errors.New("failed to send script to robot")

	// ErrAcceptTimeout is returned by Run when the robot does not dial back
	// within the accept timeout
	ErrAcceptTimeout = errors.New("robot did not connect within timeout")

	// ErrConnectionClosed is recorded when the robot closes the connection
	// or answers with fewer than AckSize bytes
	ErrConnectionClosed = errors.New("robot connection closed unexpectedly")

	// ErrCommunication is recorded when a frame or acknowledgement cannot be
	// transferred
	ErrCommunication = errors.New("communication error")
)

// Conn is the byte stream to the robot. TCP connections, serial ports and
// WebSocket relays all satisfy it.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// deadlineConn is implemented by links that support I/O deadlines
type deadlineConn interface {
	SetDeadline(t time.Time) error
}

// Bootstrapper makes the robot dial back to addr. It is invoked once the
// channel is already listening.
type Bootstrapper interface {
	Bootstrap(ctx context.Context, addr net.Addr) error
}

// BootstrapFunc adapts a function to the Bootstrapper interface
type BootstrapFunc func(ctx context.Context, addr net.Addr) error

// Bootstrap calls f(ctx, addr)
func (f BootstrapFunc) Bootstrap(ctx context.Context, addr net.Addr) error {
	return f(ctx, addr)
}

// Config holds the channel's network settings
type Config struct {
	ServerIP      string
	ServerPort    int
	AcceptTimeout time.Duration

	// IOTimeout bounds every frame write and acknowledgement read.
	// Zero waits indefinitely, like the reference robot program expects
	// for slow moves.
	IOTimeout time.Duration
}

// DefaultConfig returns the reference deployment settings
func DefaultConfig() Config {
	return Config{
		ServerIP:      DefaultServerIP,
		ServerPort:    urproto.DefaultServerPort,
		AcceptTimeout: DefaultAcceptTimeout,
	}
}

// Address returns the host:port the channel binds to
func (c Config) Address() string {
	return net.JoinHostPort(c.ServerIP, strconv.Itoa(c.ServerPort))
}

// Session summarizes one served connection
type Session struct {
	Remote string
	Stats  *urproto.Statistics

	// Completed is true when the end-of-stream marker was dequeued
	Completed bool

	// Err is the fatal error that stopped serving early, if any. Waypoints
	// still queued at that point were never sent.
	Err error
}

// Channel owns the listening socket and the single robot connection and
// drains waypoints from the queue to the robot.
type Channel struct {
	cfg      Config
	queue    *motion.Queue
	boot     Bootstrapper
	logger   *log.Logger
	observer Observer
	state    atomic.Int32
}

// Option configures a Channel
type Option func(*Channel)

// WithBootstrapper sets the hook that triggers the robot to connect
func WithBootstrapper(b Bootstrapper) Option {
	return func(c *Channel) {
		c.boot = b
	}
}

// WithLogger sets the logger used for progress and error messages
func WithLogger(l *log.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers a callback for channel events
func WithObserver(fn Observer) Option {
	return func(c *Channel) {
		c.observer = fn
	}
}

// NewChannel creates a channel that drains queue
func NewChannel(cfg Config, queue *motion.Queue, opts ...Option) *Channel {
	if cfg.AcceptTimeout <= 0 {
		cfg.AcceptTimeout = DefaultAcceptTimeout
	}

	c := &Channel{
		cfg:    cfg,
		queue:  queue,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state
func (c *Channel) State() State {
	return State(c.state.Load())
}

func (c *Channel) setState(s State) {
	c.state.Store(int32(s))
	c.emit(Event{Kind: EventState, State: s})
}

func (c *Channel) emit(e Event) {
	if c.observer == nil {
		return
	}
	e.Time = time.Now()
	if e.Kind != EventState {
		e.State = c.State()
	}
	c.observer(e)
}

// Run binds, triggers the bootstrap, accepts the robot connection and serves
// it until the end-of-stream marker or a fatal transfer error. Both sockets
// are closed on every path.
//
// Errors before serving (bind, bootstrap, accept) are returned and leave the
// channel Aborted. Errors during serving are reported in Session.Err; Run
// then returns a nil error and the channel ends Closed.
func (c *Channel) Run(ctx context.Context) (*Session, error) {
	c.setState(StateBinding)
	c.logger.Printf("Binding to %s", c.cfg.Address())

	ln, err := c.listen(ctx)
	if err != nil {
		c.setState(StateAborted)
		return nil, err
	}
	c.setState(StateListening)
	c.logger.Printf("Waiting for robot to connect...")

	if c.boot != nil {
		if err := c.boot.Bootstrap(ctx, ln.Addr()); err != nil {
			ln.Close()
			c.setState(StateAborted)
			return nil, fmt.Errorf("%w: %w", ErrBootstrap, err)
		}
	}

	c.setState(StateAwaitingConnection)
	conn, err := c.accept(ctx, ln)
	if err != nil {
		ln.Close()
		c.setState(StateAborted)
		return nil, err
	}

	remote := conn.RemoteAddr().String()
	c.logger.Printf("Robot connected from %s", remote)
	c.emit(Event{Kind: EventConnected, Remote: remote})

	session := c.serve(ctx, conn)
	session.Remote = remote

	conn.Close()
	ln.Close()
	c.setState(StateClosed)

	return session, nil
}

// Serve runs the command loop on an already open link, then closes it.
// It is used for links that are not accepted by Run, such as serial ports.
func (c *Channel) Serve(ctx context.Context, conn Conn) *Session {
	session := c.serve(ctx, conn)
	conn.Close()
	c.setState(StateClosed)
	return session
}

func (c *Channel) listen(ctx context.Context) (*net.TCPListener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", c.cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", c.cfg.Address(), err)
	}
	return ln.(*net.TCPListener), nil
}

func (c *Channel) accept(ctx context.Context, ln *net.TCPListener) (net.Conn, error) {
	if err := ln.SetDeadline(time.Now().Add(c.cfg.AcceptTimeout)); err != nil {
		return nil, fmt.Errorf("failed to set accept timeout: %w", err)
	}

	// Unblock Accept on cancellation
	stop := context.AfterFunc(ctx, func() {
		ln.SetDeadline(time.Now())
	})
	defer stop()

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			c.logger.Printf("Robot did not connect within %v", c.cfg.AcceptTimeout)
			return nil, ErrAcceptTimeout
		}
		return nil, fmt.Errorf("accept failed: %w", err)
	}
	return conn, nil
}

// serve is the steady-state loop. It leaves the channel Draining; the caller
// closes the sockets.
func (c *Channel) serve(ctx context.Context, conn Conn) *Session {
	c.setState(StateServing)
	session := &Session{Stats: urproto.NewStatistics()}

	// Unblock a pending send or acknowledgement read on cancellation
	stop := context.AfterFunc(ctx, func() {
		if dc, ok := conn.(deadlineConn); ok {
			dc.SetDeadline(time.Now())
			return
		}
		conn.Close()
	})
	defer stop()

	frame := make([]byte, 0, urproto.FrameSize)
	ack := make([]byte, urproto.AckSize)

	for seq := 0; ; seq++ {
		entry, err := c.queue.Pop(ctx)
		if err != nil {
			c.fail(session, err)
			break
		}
		if entry.IsEnd() {
			session.Completed = true
			break
		}

		cmd, err := urproto.NewMoveL(entry.Waypoint)
		if err != nil {
			c.fail(session, err)
			break
		}
		frame, _ = cmd.AppendBinary(frame[:0])

		if err := c.setDeadline(conn); err != nil {
			c.fail(session, fmt.Errorf("%w: set deadline: %w", ErrCommunication, err))
			break
		}
		// The deadline above may have replaced one set by cancellation
		if err := ctx.Err(); err != nil {
			c.fail(session, err)
			break
		}

		if _, err := conn.Write(frame); err != nil {
			c.fail(session, c.transferError(ctx, "send", err))
			break
		}
		session.Stats.RecordSent()
		c.emit(Event{Kind: EventFrameSent, Seq: seq, Command: cmd})

		if _, err := io.ReadFull(conn, ack); err != nil {
			c.fail(session, c.transferError(ctx, "receive", err))
			break
		}

		code, _ := urproto.DecodeAck(ack)
		session.Stats.RecordAck(code)
		c.emit(Event{Kind: EventAck, Seq: seq, Command: cmd, Ack: code})

		if code != urproto.AckOK {
			c.logger.Printf("Robot reported error: %d", code)
		}
	}

	c.setState(StateDraining)
	return session
}

// transferError classifies a failed send or receive. Failures caused by
// cancellation report the context error.
func (c *Channel) transferError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if op == "receive" && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
		return ErrConnectionClosed
	}
	return fmt.Errorf("%w: %s: %w", ErrCommunication, op, err)
}

func (c *Channel) fail(session *Session, err error) {
	session.Err = err
	session.Stats.RecordTransportError()
	c.logger.Printf("%v", err)
	c.emit(Event{Kind: EventFatal, Err: err})
}

func (c *Channel) setDeadline(conn Conn) error {
	if c.cfg.IOTimeout <= 0 {
		return nil
	}
	if dc, ok := conn.(deadlineConn); ok {
		return dc.SetDeadline(time.Now().Add(c.cfg.IOTimeout))
	}
	return nil
}
