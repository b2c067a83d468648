// Package tui renders the page on display in the terminal and maps keys to
// client operations.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"

	"github.com/st-keller/employee-client/hal"
	"github.com/st-keller/employee-client/logging"
	"github.com/st-keller/employee-client/pager"
)

const logPanelEntries = 5

// Controller is the part of the employee client the view drives.
type Controller interface {
	State() *pager.State
	Navigate(ctx context.Context, rel string) error
	UpdatePageSize(ctx context.Context, size int) error
	Delete(ctx context.Context, employee pager.Employee) error
	RefreshCurrentPage(ctx context.Context) error
}

// StateMsg carries a newly committed page.
type StateMsg struct {
	State *pager.State
}

// NoticeMsg carries a user-facing notice, such as an update conflict.
type NoticeMsg struct {
	Text string
}

// LogMsg reports a warning or error written to the log buffer.
type LogMsg struct {
	Entry logging.Entry
}

// LogSource is the buffer of recent log entries the view displays.
type LogSource interface {
	Entries() []logging.Entry
	Last(level zapcore.Level) (logging.Entry, bool)
	Stats() logging.Stats
}

type errMsg struct {
	err error
}

// Model is the bubbletea model of the employee view.
type Model struct {
	ctx    context.Context
	ctrl   Controller
	styles Styles
	keys   KeyMap
	help   help.Model

	logs     LogSource
	showLogs bool

	state    *pager.State
	selected int
	notice   string
	err      error
}

// New creates a model showing initial, which may be nil.
func New(ctx context.Context, ctrl Controller, initial *pager.State) Model {
	return Model{
		ctx:    ctx,
		ctrl:   ctrl,
		styles: DefaultStyles(),
		keys:   DefaultKeyMap(),
		help:   help.New(),
		state:  initial,
	}
}

// WithLogs shows warnings and errors from src below the page.
func (m Model) WithLogs(src LogSource) Model {
	m.logs = src
	return m
}

// Selected returns the highlighted employee.
func (m Model) Selected() (pager.Employee, bool) {
	if m.state == nil || m.selected >= len(m.state.Employees) {
		return pager.Employee{}, false
	}
	return m.state.Employees[m.selected], true
}

// Init re-reads the state on display, covering pages committed before Bind.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		return StateMsg{State: m.ctrl.State()}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		if msg.State == nil {
			return m, nil
		}
		if m.state != nil && msg.State.Generation < m.state.Generation {
			return m, nil
		}
		m.state = msg.State
		m.err = nil
		if n := len(m.state.Employees); m.selected >= n {
			m.selected = max(n-1, 0)
		}
		return m, nil

	case NoticeMsg:
		m.notice = msg.Text
		return m, nil

	case LogMsg:
		// the footer reads the buffer; the message only forces a redraw
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.First):
		return m, m.navigate(hal.RelFirst)
	case key.Matches(msg, m.keys.Prev):
		return m, m.navigate(hal.RelPrev)
	case key.Matches(msg, m.keys.Next):
		return m, m.navigate(hal.RelNext)
	case key.Matches(msg, m.keys.Last):
		return m, m.navigate(hal.RelLast)
	case key.Matches(msg, m.keys.Grow):
		return m, m.resize(1)
	case key.Matches(msg, m.keys.Shrink):
		return m, m.resize(-1)
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.state != nil && m.selected < len(m.state.Employees)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Delete):
		if emp, ok := m.Selected(); ok {
			m.notice = ""
			return m, m.run(func(ctx context.Context) error { return m.ctrl.Delete(ctx, emp) })
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.run(m.ctrl.RefreshCurrentPage)
	case key.Matches(msg, m.keys.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.ToggleLogs):
		m.showLogs = !m.showLogs
	}
	return m, nil
}

func (m Model) navigate(rel string) tea.Cmd {
	if !m.state.HasLink(rel) {
		return nil
	}
	return m.run(func(ctx context.Context) error { return m.ctrl.Navigate(ctx, rel) })
}

func (m Model) resize(delta int) tea.Cmd {
	if m.state == nil {
		return nil
	}
	size := m.state.PageSize + delta
	if size <= 0 {
		return nil
	}
	return m.run(func(ctx context.Context) error { return m.ctrl.UpdatePageSize(ctx, size) })
}

// run performs op off the update loop; the new page arrives as a StateMsg.
func (m Model) run(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		if err := op(ctx); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (m Model) View() string {
	var sb strings.Builder

	if m.state == nil {
		sb.WriteString(m.styles.Header.Render("Employees"))
		sb.WriteString("\n\n")
		sb.WriteString(m.styles.Muted.Render("Loading..."))
		sb.WriteString("\n")
		return sb.String()
	}

	page := m.state.Page
	sb.WriteString(m.styles.Header.Render(fmt.Sprintf("Employees - Page %d of %d", page.Number+1, page.TotalPages)))
	sb.WriteString("\n\n")
	sb.WriteString(m.table())
	sb.WriteString("\n")

	var nav []string
	for _, b := range []key.Binding{m.keys.First, m.keys.Prev, m.keys.Next, m.keys.Last} {
		h := b.Help()
		if m.state.HasLink(h.Desc) {
			nav = append(nav, fmt.Sprintf("[%s] %s", h.Key, h.Desc))
		}
	}
	if len(nav) > 0 {
		sb.WriteString(strings.Join(nav, "  "))
		sb.WriteString("\n")
	}
	sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("%d employees, page size %d", page.TotalElements, m.state.PageSize)))
	sb.WriteString("\n")

	if m.notice != "" {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Notice.Render(m.notice))
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Error.Render("Error: " + m.err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString(m.logView())

	sb.WriteString("\n")
	sb.WriteString(m.styles.Footer.Render(m.help.View(m.keys)))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) table() string {
	cols := m.state.Attributes
	if len(m.state.Employees) == 0 {
		return m.styles.Muted.Render("No employees on this page.") + "\n"
	}

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = lipgloss.Width(c)
	}
	for _, e := range m.state.Employees {
		for i, c := range cols {
			widths[i] = max(widths[i], lipgloss.Width(e.Get(c)))
		}
	}
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	sb.WriteString("  ")
	for i, c := range cols {
		sb.WriteString(m.styles.Column.Width(widths[i]).Render(c))
	}
	sb.WriteString("\n")

	for row, e := range m.state.Employees {
		style := m.styles.Cell
		marker := "  "
		if row == m.selected {
			style = m.styles.Selected
			marker = "> "
		}
		sb.WriteString(marker)
		for i, c := range cols {
			sb.WriteString(style.Width(widths[i]).Render(e.Get(c)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) logView() string {
	if m.logs == nil {
		return ""
	}

	var sb strings.Builder
	stats := m.logs.Stats()
	if stats.Warnings+stats.Errors > 0 {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("%d warnings, %d errors logged", stats.Warnings, stats.Errors)))
		sb.WriteString("\n")
	}
	if last, ok := m.logs.Last(zapcore.WarnLevel); ok && !m.showLogs {
		sb.WriteString(m.styles.Error.Render(fmt.Sprintf("Last %s: %s", last.Level, describe(last))))
		sb.WriteString("\n")
	}

	if m.showLogs {
		entries := m.logs.Entries()
		if len(entries) > logPanelEntries {
			entries = entries[len(entries)-logPanelEntries:]
		}
		sb.WriteString("\n")
		for _, e := range entries {
			sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("%s %-5s %s",
				e.Timestamp.Local().Format("15:04:05"), e.Level.CapitalString(), describe(e))))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func describe(e logging.Entry) string {
	if msg, ok := e.Context["error"].(string); ok {
		return e.Message + ": " + msg
	}
	return e.Message
}

// Bind forwards every committed page to p until the returned func is called.
func Bind(p *tea.Program, holder *pager.Holder) func() {
	return holder.Subscribe(func(s *pager.State) {
		p.Send(StateMsg{State: s})
	})
}

// Notify returns a notifier that forwards notices to p.
func Notify(p *tea.Program) func(string) {
	return func(text string) {
		p.Send(NoticeMsg{Text: text})
	}
}
