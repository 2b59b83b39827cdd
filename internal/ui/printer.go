package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/printerpick/internal/discovery"
)

// Printer provides methods for printing UI components to a writer.
type Printer struct {
	out    io.Writer
	width  int
	styled bool
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used. Styling is enabled only for terminals.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:    w,
		width:  terminalWidth(w),
		styled: IsTerminal(w),
	}
}

// SetStyled forces styled or plain output.
func (p *Printer) SetStyled(styled bool) *Printer {
	p.styled = styled
	return p
}

// Styled reports whether output is decorated.
func (p *Printer) Styled() bool {
	return p.styled
}

// Width returns the width used for rendering
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box. Plain output omits it.
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	if !p.styled {
		return
	}
	p.Println(RenderHeader(title, command, params, p.width))
}

// PrintDevices prints discovered devices in report order. remembered may be
// nil. Plain output is one "target<TAB>name<TAB>backend" line per device.
func (p *Printer) PrintDevices(devices []discovery.DeviceInfo, remembered func(target string) bool) {
	if !p.styled {
		for _, d := range devices {
			p.Println(strings.Join([]string{d.Target, d.DeviceName, d.Backend}, "\t"))
		}
		return
	}

	if len(devices) == 0 {
		p.PrintWarning("No printers found", nil, []string{
			"Ensure the printer is powered on and connected",
			"Network printers must be on the same subnet (mDNS is not routed)",
			"USB printers may need permissions on /dev/bus/usb",
			"Try a longer scan with --timeout",
		})
		return
	}
	p.Println(RenderDeviceTable(devices, remembered, p.width))
}

// PrintTarget prints a bare target line regardless of styling.
func (p *Printer) PrintTarget(target string) {
	p.Println(target)
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	if !p.styled {
		p.Println(title)
		return
	}
	p.Println(RenderResultBox(SuccessMarker+"  "+title, SuccessTitleStyle, SuccessColor, details, nil, nil, p.width))
}

// PrintWarning prints a warning box with optional troubleshooting tips
func (p *Printer) PrintWarning(title string, details map[string]string, troubleshooting []string) {
	if !p.styled {
		p.Println("warning: " + title)
		return
	}
	p.Println(RenderResultBox(WarningMarker+"  "+title, WarningTitleStyle, WarningColor, details, nil, troubleshooting, p.width))
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	if !p.styled {
		if err != nil {
			p.Println(fmt.Sprintf("error: %s: %v", title, err))
		} else {
			p.Println("error: " + title)
		}
		return
	}
	p.Println(RenderResultBox(FailureMarker+"  "+title, ErrorTitleStyle, ErrorColor, nil, err, troubleshooting, p.width))
}

// RenderHeader renders a command header box. Parameters are listed in key
// order.
func RenderHeader(title, command string, params map[string]string, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(title)),
		HeaderCommandStyle.Render(command),
	)

	content := top
	if len(params) > 0 {
		divider := lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Render(strings.Repeat("─", width-6))

		var lines []string
		for _, k := range sortedKeys(params) {
			lines = append(lines, HeaderParamKeyStyle.Render(k+":")+" "+HeaderParamValueStyle.Render(params[k]))
		}
		content = lipgloss.JoinVertical(lipgloss.Left, top, divider, strings.Join(lines, "\n"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(content)
}

// RenderDeviceTable renders devices as a bordered table.
func RenderDeviceTable(devices []discovery.DeviceInfo, remembered func(target string) bool, width int) string {
	rows := make([][]string, len(devices))
	marked := make([]bool, len(devices))
	for i, d := range devices {
		name := d.DeviceName
		if remembered != nil && remembered(d.Target) {
			name += " " + RememberedMarker
			marked[i] = true
		}
		rows[i] = []string{strconv.Itoa(i + 1), name, d.Target, d.Backend}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Headers("#", "NAME", "TARGET", "BACKEND").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row >= 0 && row < len(marked) && marked[row] && col == 1:
				return RememberedCellStyle
			default:
				return TableCellStyle
			}
		})

	if width >= MinTerminalWidth {
		t = t.Width(width)
	}
	return t.Render()
}

// RenderResultBox renders a titled, double-bordered box with details, an
// optional error and troubleshooting tips.
func RenderResultBox(title string, titleStyle lipgloss.Style, color lipgloss.Color, details map[string]string, err error, troubleshooting []string, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	lines := []string{"", titleStyle.Render(" " + title), ""}

	for _, k := range sortedKeys(details) {
		lines = append(lines, ResultKeyStyle.Render(" "+k+":")+" "+ResultValueStyle.Render(details[k]))
	}
	if len(details) > 0 {
		lines = append(lines, "")
	}

	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render(" Error: "+err.Error()), "")
	}

	if len(troubleshooting) > 0 {
		tips := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
		for _, tip := range troubleshooting {
			tips = append(tips, TroubleshootingItemStyle.Render("  • "+tip))
		}
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(MutedColor).
			Width(width-12).
			Padding(0, 1).
			MarginLeft(1).
			Render(strings.Join(tips, "\n"))
		lines = append(lines, box, "")
	}

	return boxStyle(color, width).Render(strings.Join(lines, "\n"))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
