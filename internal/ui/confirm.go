package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm shows a warning with details and asks a yes/no question on out,
// reading the answer from in. Only "y" or "yes" (any case) confirms.
func (p *Printer) Confirm(in io.Reader, title string, details map[string]string, question string) bool {
	if p.styled {
		p.Println(RenderResultBox(WarningMarker+"  "+title, WarningTitleStyle, WarningColor, details, nil, nil, p.width))
		p.Newline()
		p.Print(lipgloss.NewStyle().Foreground(WarningColor).Bold(true).Render(question + " [y/N]: "))
	} else {
		p.Print(fmt.Sprintf("%s [y/N]: ", question))
	}

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		p.Newline()
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		if p.styled {
			p.Println(lipgloss.NewStyle().Foreground(MutedColor).Render("  Cancelled."))
		}
		return false
	}
}
