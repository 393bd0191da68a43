// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/jmpinit/net-ur-plot/pkg/urproto"
)

// DefaultTimeout bounds the whole upload: dial, write and close
const DefaultTimeout = 5 * time.Second

// Uploader sends the plot program to the robot's control port. The robot
// runs it immediately and dials back to the address embedded in the script.
type Uploader struct {
	RobotIP     string
	ControlPort int
	Timeout     time.Duration
	Template    string

	// ServerIP overrides the address rendered into the script. When empty
	// or unspecified (0.0.0.0, ::), the local address of the upload
	// connection is used, which is the interface that routes to the robot.
	ServerIP string

	Logger *log.Logger
}

// NewUploader creates an uploader for the robot with the default port,
// timeout and template
func NewUploader(robotIP string) *Uploader {
	return &Uploader{
		RobotIP:     robotIP,
		ControlPort: urproto.DefaultControlPort,
		Timeout:     DefaultTimeout,
		Template:    defaultTemplate,
		Logger:      log.New(io.Discard, "", 0),
	}
}

// Bootstrap uploads the program so that the robot dials back to addr
func (u *Uploader) Bootstrap(ctx context.Context, addr net.Addr) error {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("unsupported listen address %v", addr)
	}

	serverIP := u.ServerIP
	if serverIP == "" || isUnspecified(serverIP) {
		serverIP = ""
		if ip := tcpAddr.IP; ip != nil && !ip.IsUnspecified() {
			serverIP = ip.String()
		}
	}

	return u.Upload(ctx, serverIP, tcpAddr.Port)
}

// Upload renders the template for serverIP:serverPort and sends it. An empty
// serverIP is resolved from the upload connection.
func (u *Uploader) Upload(ctx context.Context, serverIP string, serverPort int) error {
	timeout := u.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	port := u.ControlPort
	if port == 0 {
		port = urproto.DefaultControlPort
	}
	robotAddr := net.JoinHostPort(u.RobotIP, strconv.Itoa(port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", robotAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to robot at %s: %w", robotAddr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if serverIP == "" {
		serverIP = conn.LocalAddr().(*net.TCPAddr).IP.String()
	}

	tmpl := u.Template
	if tmpl == "" {
		tmpl = defaultTemplate
	}
	script := Render(tmpl, serverIP, serverPort)

	// URScript must end with a newline
	if _, err := io.WriteString(conn, script+"\r\n"); err != nil {
		return fmt.Errorf("failed to send script to robot: %w", err)
	}

	if u.Logger != nil {
		u.Logger.Printf("Script sent to robot %s (dial back to %s)", robotAddr,
			net.JoinHostPort(serverIP, strconv.Itoa(serverPort)))
	}
	return nil
}

func isUnspecified(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsUnspecified()
}
