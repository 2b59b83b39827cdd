package picker

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/muurk/printerpick/internal/discovery"
	"github.com/muurk/printerpick/internal/logging"
	"github.com/muurk/printerpick/internal/session"
)

// Messages for async operations
type openMsg struct{}
type devicesPendingMsg struct{}
type stopDoneMsg struct {
	err error
}

// Remembered reports whether a target was picked before.
type Remembered interface {
	IsRemembered(target string) bool
}

// Options configures the picker.
type Options struct {
	// Retry bounds the stop retry when restarting discovery
	Retry session.RetryOptions

	// Remembered marks previously selected printers; may be nil
	Remembered Remembered
}

// status is the status line shared by every copy of the model. It is the
// session's Notifier, so start and stop failures show up on screen.
type status struct {
	text string
	err  bool
}

// Notify implements session.Notifier
func (s *status) Notify(op string, err error) {
	s.text = fmt.Sprintf("%s failed: %v", op, err)
	s.err = true
	logging.Warn("Discovery operation failed", zap.String("op", op), zap.Error(err))
}

func (s *status) set(text string) {
	s.text = text
	s.err = false
}

// Model is the printer picker screen.
type Model struct {
	ctx        context.Context
	session    *session.Session
	remembered Remembered
	status     *status

	list       list.Model
	spinner    spinner.Model
	help       help.Model
	keys       keyMap
	manualKeys manualKeyMap

	manualMode bool
	input      textinput.Model
	inputErr   string
	restarting bool
	width      int
	height     int
	result     string
	resultName string
	quitting   bool
}

// New creates a picker over d. ctx bounds the background work of the
// screen (stop retries, waiting for devices); cancel it once the program
// has exited.
func New(ctx context.Context, d discovery.Discoverer, opts Options) Model {
	st := &status{}
	sess := session.New(d,
		session.WithNotifier(st),
		session.WithRetry(opts.Retry),
	)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.Placeholder = "TCP:192.168.1.50 or USB:/dev/bus/usb/001/002"
	input.CharLimit = 64
	input.Width = 48

	deviceList := list.New([]list.Item{}, printerDelegate{}, MinTerminalWidth, 10)
	deviceList.Title = "Printers"
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)
	// Indices must match the session list for Select.
	deviceList.SetFilteringEnabled(false)
	deviceList.Styles.Title = TitleStyle

	return Model{
		ctx:        ctx,
		session:    sess,
		remembered: opts.Remembered,
		status:     st,
		list:       deviceList,
		spinner:    s,
		help:       help.New(),
		keys:       newKeyMap(),
		manualKeys: newManualKeyMap(),
		input:      input,
	}
}

// Init starts discovery
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return openMsg{} },
		m.spinner.Tick,
	)
}

// waitForDevices blocks until the session has reports to deliver.
func (m Model) waitForDevices() tea.Cmd {
	pending := m.session.Pending()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-pending:
			return devicesPendingMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// stopDiscovery runs the stop retry off the update loop.
func (m Model) stopDiscovery() tea.Cmd {
	sess := m.session
	ctx := m.ctx
	return func() tea.Msg {
		return stopDoneMsg{err: sess.Stop(ctx)}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.manualMode {
			return m.updateManualMode(msg)
		}
		return m.updateNormalMode(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-6, msg.Height-10) // Leave room for header/footer
		return m, nil

	case openMsg:
		if err := m.session.Open(); err == nil {
			m.status.set("Searching for printers...")
		}
		return m, m.waitForDevices()

	case devicesPendingMsg:
		if m.session.Deliver() > 0 {
			m.refreshItems()
		}
		return m, m.waitForDevices()

	case stopDoneMsg:
		m.restarting = false
		if err := m.session.CompleteRestart(msg.err); err == nil {
			m.status.set("Searching for printers...")
		}
		m.refreshItems()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// updateNormalMode handles keyboard input in the printer list
func (m Model) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Select):
		if m.restarting || m.session.Len() == 0 {
			return m, nil
		}
		item, _ := m.list.SelectedItem().(printerItem)
		target, err := m.session.Select(m.list.Index())
		if err != nil {
			m.status.Notify("select", err)
			return m, nil
		}
		m.result = target
		m.resultName = item.device.DeviceName
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Restart):
		if m.restarting {
			return m, nil
		}
		if !m.session.NeedsStop() {
			if err := m.session.CompleteRestart(nil); err == nil {
				m.status.set("Searching for printers...")
			}
			m.refreshItems()
			return m, nil
		}
		m.restarting = true
		m.status.set("Stopping discovery...")
		return m, m.stopDiscovery()

	case key.Matches(msg, m.keys.Manual):
		m.manualMode = true
		m.inputErr = ""
		m.input.SetValue("")
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// updateManualMode handles keyboard input in manual target entry
func (m Model) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.manualKeys.Cancel):
		m.manualMode = false
		m.inputErr = ""
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.manualKeys.Confirm):
		target, err := ParseTarget(m.input.Value())
		if err != nil {
			m.inputErr = err.Error()
			return m, nil
		}
		m.result = target
		m.manualMode = false
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.inputErr = ""
	return m, cmd
}

// refreshItems rebuilds the list from the session, keeping the cursor.
func (m *Model) refreshItems() {
	devices := m.session.Devices()
	items := make([]list.Item, len(devices))
	for i, d := range devices {
		items[i] = printerItem{
			device:     d,
			remembered: m.remembered != nil && m.remembered.IsRemembered(d.Target),
		}
	}
	m.list.SetItems(items)
}

// View renders the picker
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content, helpText string
	if m.manualMode {
		content = m.renderManualEntry()
		helpText = m.help.View(m.manualKeys)
	} else {
		content = m.renderList()
		helpText = m.help.View(m.keys)
	}

	return renderContainer(content, helpText, m.width, m.height)
}

func (m Model) renderList() string {
	var b strings.Builder
	b.WriteString("\n")

	if m.session.Len() == 0 {
		if m.session.State() == session.StateDiscovering || m.restarting {
			b.WriteString("  " + m.spinner.View() + " ")
			b.WriteString(RenderSubtitle("Searching for printers..."))
		} else {
			b.WriteString("  " + lipgloss.NewStyle().Foreground(WarningColor).Bold(true).Render("⚠ Discovery is not running"))
			b.WriteString("\n\n  Press r to try again or m to enter a target.")
		}
		b.WriteString("\n")
	} else {
		b.WriteString(m.list.View())
		b.WriteString("\n")
	}

	if m.status.text != "" {
		b.WriteString("\n")
		if m.status.err {
			b.WriteString(StatusErrorStyle.Render("✗ " + m.status.text))
		} else {
			line := m.status.text
			if n := m.session.Len(); n > 0 {
				line = fmt.Sprintf("%s %d found", line, n)
			}
			b.WriteString(StatusStyle.Render(line))
		}
	}

	return b.String()
}

func (m Model) renderManualEntry() string {
	var b strings.Builder

	b.WriteString("\n  ")
	b.WriteString(RenderSubtitle("Enter a connection target"))
	b.WriteString("\n\n  Target: ")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.inputErr != "" {
		b.WriteString("\n  " + InputErrorStyle.Render(m.inputErr))
	}

	return b.String()
}

// Result returns the chosen target. Manual targets report an empty name.
func (m Model) Result() (target, name string, ok bool) {
	return m.result, m.resultName, m.result != ""
}

// Close stops discovery. Call it after the program has exited.
func (m Model) Close(ctx context.Context) {
	m.session.Close(ctx)
}
