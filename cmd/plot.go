// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 net-ur-plot contributors

package cmd

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jmpinit/net-ur-plot/pkg/bootstrap"
	"github.com/jmpinit/net-ur-plot/pkg/motion"
	"github.com/jmpinit/net-ur-plot/pkg/record"
	"github.com/jmpinit/net-ur-plot/pkg/robot"
	"github.com/jmpinit/net-ur-plot/pkg/urproto"
)

// drawJob is a finite waypoint stream to send to the robot
type drawJob struct {
	source    string
	waypoints iter.Seq[motion.Waypoint]
	total     int
}

// validate checks every waypoint before anything is sent, so that a bad
// path never leaves the robot with half a drawing
func (j drawJob) validate(reach float64) error {
	seq := 0
	for wp := range j.waypoints {
		if errs := urproto.ValidateWaypoint(wp, reach); len(errs) > 0 {
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Message
			}
			return fmt.Errorf("invalid waypoint %d %v: %s", seq, wp, strings.Join(msgs, "; "))
		}
		seq++
	}
	return nil
}

func channelConfig() robot.Config {
	return robot.Config{
		ServerIP:      serverIP,
		ServerPort:    serverPort,
		AcceptTimeout: acceptTimeout,
		IOTimeout:     ioTimeout,
	}
}

func newUploader(logger *log.Logger) (*bootstrap.Uploader, error) {
	tmpl, err := bootstrap.LoadTemplate(scriptPath)
	if err != nil {
		return nil, err
	}

	u := bootstrap.NewUploader(robotIP)
	u.ControlPort = controlPort
	u.Template = tmpl
	u.ServerIP = serverIP
	u.Logger = logger
	return u, nil
}

// fanOut delivers each event to every observer in order
func fanOut(observers ...robot.Observer) robot.Observer {
	return func(e robot.Event) {
		for _, fn := range observers {
			fn(e)
		}
	}
}

// produce pushes the waypoints and always terminates the stream with
// exactly one end marker
func produce(ctx context.Context, queue *motion.Queue, waypoints iter.Seq[motion.Waypoint]) error {
	defer queue.Close()

	for wp := range waypoints {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := queue.Push(wp); err != nil {
			return err
		}
	}
	return nil
}

// execute runs the channel next to the path source and waits for both.
// A nil link selects the TCP bootstrap and accept flow.
func execute(ctx context.Context, job drawJob, link robot.Conn, logger *log.Logger, observer robot.Observer) (*robot.Session, error) {
	queue := motion.NewQueue()

	opts := []robot.Option{
		robot.WithLogger(logger),
		robot.WithObserver(observer),
	}
	if link == nil {
		uploader, err := newUploader(logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, robot.WithBootstrapper(uploader))
	}
	ch := robot.NewChannel(channelConfig(), queue, opts...)

	g, gctx := errgroup.WithContext(ctx)

	var session *robot.Session
	g.Go(func() error {
		if link != nil {
			session = ch.Serve(gctx, link)
			return nil
		}
		var err error
		session, err = ch.Run(gctx)
		return err
	})

	if err := produce(gctx, queue, job.waypoints); err != nil {
		logger.Printf("Path source stopped: %v", err)
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return session, nil
}

// runJob opens the robot link, wires the observers and draws job
func runJob(cmd *cobra.Command, job drawJob) error {
	if portName == "" && wsURL == "" && robotIP == "" {
		return errors.New("--robot_ip is required")
	}

	if err := job.validate(reach); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var observers []robot.Observer

	if recordPath != "" {
		f, err := os.Create(recordPath)
		if err != nil {
			return fmt.Errorf("failed to create recording: %w", err)
		}
		defer f.Close()

		rec, err := record.NewWriter(f, record.Header{
			Started: time.Now(),
			Robot:   robotIP,
			Server:  channelConfig().Address(),
			Source:  job.source,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Err(); err != nil {
				log.Printf("Recording incomplete: %v", err)
			}
		}()
		observers = append(observers, rec.Observe)
	}

	link, linkInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	if link == nil {
		linkInfo = fmt.Sprintf("TCP: robot %s, listening on %s", robotIP, channelConfig().Address())
	}

	var session *robot.Session
	if useTUI {
		session, err = runProgressTUI(ctx, job, link, linkInfo, observers)
	} else {
		fmt.Println(linkInfo)
		logger := log.New(os.Stderr, "", log.LstdFlags)
		session, err = execute(ctx, job, link, logger, fanOut(observers...))
	}
	if err != nil {
		return err
	}

	printSummary(session)
	return nil
}

func printSummary(session *robot.Session) {
	fmt.Println()
	fmt.Print(session.Stats.String())

	switch {
	case session.Completed:
		fmt.Println("Drawing complete.")
	case session.Err != nil:
		fmt.Printf("Drawing stopped early: %v\n", session.Err)
	}
}
