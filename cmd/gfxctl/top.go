package main

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joshuapare/gfxbuf/internal/logger"
	"github.com/joshuapare/gfxbuf/pkg/gfxbuf"
	"github.com/spf13/cobra"
)

var topInterval time.Duration

func init() {
	rootCmd.AddCommand(newTopCmd())
}

func newTopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Watch the live-buffer report",
		Long: `The top command shows the live-buffer report and refreshes it until
you quit.

Keys:
  ↑/k, ↓/j, pgup, pgdn  Scroll
  r                     Refresh now
  c                     Copy the report to the clipboard
  q, ctrl+c             Quit

Example:
  gfxctl top --interval 500ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTop()
		},
	}
	cmd.Flags().DurationVar(&topInterval, "interval", time.Second, "Refresh interval")
	return cmd
}

func runTop() error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.Close()

	p := tea.NewProgram(newTopModel(c, topInterval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("top: %w", err)
	}
	return nil
}

// reportSource is the part of the client top needs.
type reportSource interface {
	DumpReport() (gfxbuf.Report, error)
}

type topKeys struct {
	Refresh key.Binding
	Copy    key.Binding
	Quit    key.Binding
}

func defaultTopKeys() topKeys {
	return topKeys{
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy report"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// reportMsg carries one fetched report. Only scheduled fetches re-arm the
// refresh timer.
type reportMsg struct {
	report    gfxbuf.Report
	err       error
	at        time.Time
	scheduled bool
}

type tickMsg time.Time

type topModel struct {
	src      reportSource
	interval time.Duration
	keys     topKeys
	copyText func(string) error

	vp      viewport.Model
	ready   bool
	report  gfxbuf.Report
	err     error
	updated time.Time
	status  string
}

func newTopModel(src reportSource, interval time.Duration) topModel {
	if interval <= 0 {
		interval = time.Second
	}
	return topModel{
		src:      src,
		interval: interval,
		keys:     defaultTopKeys(),
		copyText: clipboard.WriteAll,
	}
}

func (m topModel) Init() tea.Cmd {
	return m.fetch(true)
}

func (m topModel) fetch(scheduled bool) tea.Cmd {
	src := m.src
	return func() tea.Msg {
		rep, err := src.DumpReport()
		return reportMsg{report: rep, err: err, at: time.Now(), scheduled: scheduled}
	}
}

func (m topModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m topModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Border and padding take four columns; border and status bar three rows.
		width, height := max(msg.Width-4, 1), max(msg.Height-3, 1)
		if !m.ready {
			m.vp = viewport.New(width, height)
			m.ready = true
		} else {
			m.vp.Width = width
			m.vp.Height = height
		}
		m.vp.SetContent(m.content())
		return m, nil

	case reportMsg:
		m.err = msg.err
		if msg.err == nil {
			m.report = msg.report
			m.updated = msg.at
		}
		if m.ready {
			m.vp.SetContent(m.content())
		}
		if msg.scheduled {
			return m, m.tick()
		}
		m.status = ""
		return m, nil

	case tickMsg:
		return m, m.fetch(true)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			m.status = "refreshing"
			return m, m.fetch(false)
		case key.Matches(msg, m.keys.Copy):
			if err := m.copyText(m.report.String()); err != nil {
				logger.Warn("clipboard", "error", err)
				m.status = "copy failed: " + err.Error()
			} else {
				m.status = "report copied"
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m topModel) content() string {
	if m.err != nil {
		return paint(errorStyle, "daemon: "+m.err.Error()) + "\n\n" + renderReport(m.report)
	}
	return renderReport(m.report)
}

func (m topModel) View() string {
	if !m.ready {
		return "loading..."
	}
	updated := "never"
	if !m.updated.IsZero() {
		updated = m.updated.Format("15:04:05")
	}
	status := fmt.Sprintf("%d buffers, %s | updated %s | r refresh  c copy  q quit",
		len(m.report.Buffers), formatBytes(m.report.TotalBytes), updated)
	if m.status != "" {
		status += " | " + m.status
	}
	return lipgloss.JoinVertical(lipgloss.Left, paneView(m.vp.View()), paint(statusStyle, status))
}

func paneView(s string) string {
	if noColor {
		return s
	}
	return paneStyle.Render(s)
}
