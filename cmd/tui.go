// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 net-ur-plot contributors

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmpinit/net-ur-plot/pkg/robot"
	"github.com/jmpinit/net-ur-plot/pkg/urproto"
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// Progress view model
type progressModel struct {
	source        string
	linkInfo      string
	total         int
	state         robot.State
	remote        string
	stats         *urproto.Statistics
	lastCommand   string
	eventLog      []logEntry
	maxLogEntries int
	progress      progress.Model
	spinner       spinner.Model
	started       time.Time
	width         int
	done          bool
	quitting      bool
}

// Messages
type progressTickMsg time.Time
type channelEventMsg robot.Event
type sessionDoneMsg struct {
	session *robot.Session
	err     error
}

// formatElapsed formats a duration as a human-friendly string
func formatElapsed(d time.Duration) string {
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60

	seconds %= 60
	minutes %= 60

	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	if len(parts) == 2 {
		return rest + " and " + last
	}
	return rest + ", and " + last
}

func newProgressModel(job drawJob, linkInfo string) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return progressModel{
		source:        job.source,
		linkInfo:      linkInfo,
		total:         job.total,
		state:         robot.StateBinding,
		stats:         urproto.NewStatistics(),
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 8,
		progress:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(60)),
		spinner:       s,
		started:       time.Now(),
		width:         80,
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		progressTickCmd(),
		m.spinner.Tick,
	)
}

func progressTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(msg.Width-4, 80)

	case progressTickMsg:
		m.stats.CalculateRates()
		return m, progressTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case channelEventMsg:
		cmd := m.handleEvent(robot.Event(msg))
		return m, cmd

	case sessionDoneMsg:
		m.done = true
		if msg.err != nil {
			m.addLogEntry(msg.err.Error(), true)
		}
		return m, tea.Quit
	}

	return m, nil
}

// handleEvent applies a channel event to the view
func (m *progressModel) handleEvent(e robot.Event) tea.Cmd {
	switch e.Kind {
	case robot.EventState:
		m.state = e.State
		m.addLogEntry(fmt.Sprintf("State: %s", e.State), false)

	case robot.EventConnected:
		m.remote = e.Remote
		m.addLogEntry(fmt.Sprintf("Robot connected from %s", e.Remote), false)

	case robot.EventFrameSent:
		m.stats.RecordSent()
		m.lastCommand = urproto.FormatCommand(e.Command)

	case robot.EventAck:
		m.stats.RecordAck(e.Ack)
		if e.Ack != urproto.AckOK {
			m.addLogEntry(fmt.Sprintf("Move #%d: robot reported error %d", e.Seq, e.Ack), true)
		}
		if m.total > 0 {
			return m.progress.SetPercent(float64(m.stats.Acked()) / float64(m.total))
		}

	case robot.EventFatal:
		m.stats.RecordTransportError()
		m.addLogEntry(e.Err.Error(), true)
	}
	return nil
}

func (m *progressModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m progressModel) View() string {
	if m.quitting {
		return "Stopping...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("URPLOT - " + m.source))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Press 'q' to stop", m.linkInfo)))
	s.WriteString("\n\n")

	// Channel state
	if m.state.Terminal() || m.done {
		s.WriteString(statsLabelStyle.Render("State: "))
		s.WriteString(statsValueStyle.Render(m.state.String()))
	} else {
		s.WriteString(m.spinner.View())
		s.WriteString(" ")
		s.WriteString(statsValueStyle.Render(m.state.String()))
	}
	if m.remote != "" {
		s.WriteString(headerStyle.Render("  robot " + m.remote))
	}
	s.WriteString("\n\n")

	// Progress
	s.WriteString(m.progress.View())
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%d / %d moves", m.stats.Acked(), m.total)))
	s.WriteString("\n\n")

	// Statistics
	stats := strings.Builder{}
	stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.FramesSent)),
		statsLabelStyle.Render("OK:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.AcksOK)),
		statsLabelStyle.Render("Robot Errors:"), func() string {
			if m.stats.RobotErrors > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", m.stats.RobotErrors))
			}
			return statsValueStyle.Render("0")
		}(),
	))
	stats.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f moves/s", m.stats.CommandRate)),
		statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatElapsed(time.Since(m.started))),
	))
	if m.lastCommand != "" {
		stats.WriteString("\n")
		stats.WriteString(statsLabelStyle.Render("Last: "))
		stats.WriteString(m.lastCommand)
	}
	s.WriteString(boxStyle.Render(stats.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Events:"))
	s.WriteString("\n")
	for _, entry := range m.eventLog {
		line := fmt.Sprintf("[%s] %s", entry.timestamp.Format("15:04:05"), entry.message)
		if entry.isError {
			s.WriteString(errorStyle.Render(line))
		} else {
			s.WriteString(headerStyle.Render(line))
		}
		s.WriteString("\n")
	}

	return s.String()
}

// runProgressTUI draws job while showing the progress view. Log output is
// discarded since the view reports the same events.
func runProgressTUI(ctx context.Context, job drawJob, link robot.Conn, linkInfo string, observers []robot.Observer) (*robot.Session, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(job, linkInfo))

	observers = append(observers, func(e robot.Event) {
		p.Send(channelEventMsg(e))
	})
	logger := log.New(io.Discard, "", 0)

	done := make(chan sessionDoneMsg, 1)
	go func() {
		session, err := execute(ctx, job, link, logger, fanOut(observers...))
		result := sessionDoneMsg{session: session, err: err}
		done <- result
		p.Send(result)
	}()

	_, runErr := p.Run()

	// Quitting the view stops the drawing
	cancel()
	result := <-done

	if runErr != nil {
		return nil, fmt.Errorf("TUI error: %w", runErr)
	}
	return result.session, result.err
}
