package picker

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/printerpick/internal/discovery"
)

// printerItem wraps a DeviceInfo for use with bubbles/list
type printerItem struct {
	device     discovery.DeviceInfo
	remembered bool
}

// FilterValue implements list.Item
func (p printerItem) FilterValue() string {
	return p.device.DeviceName + " " + p.device.Target
}

// Title returns the printer name for list display
func (p printerItem) Title() string {
	if p.device.DeviceName == "" {
		return "(unnamed)"
	}
	return p.device.DeviceName
}

// Description returns the target and backend for list display
func (p printerItem) Description() string {
	if p.device.Backend == "" {
		return p.device.Target
	}
	return fmt.Sprintf("%s • %s", p.device.Target, p.device.Backend)
}

// printerDelegate renders one printer per two lines
type printerDelegate struct{}

func (d printerDelegate) Height() int { return 2 }

func (d printerDelegate) Spacing() int { return 1 }

func (d printerDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d printerDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	p, ok := item.(printerItem)
	if !ok {
		return
	}

	title := p.Title()
	if p.remembered {
		title += " " + RememberedStyle.Render("★")
	}

	var b strings.Builder
	if index == m.Index() {
		b.WriteString(SelectedItemStyle.Render("→ " + title))
	} else {
		b.WriteString("  " + ItemStyle.Render(title))
	}
	b.WriteString("\n    ")
	b.WriteString(DetailStyle.Render(p.Description()))

	fmt.Fprint(w, b.String())
}
