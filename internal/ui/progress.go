package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/progress"
)

// ScanProgress renders a single, continuously rewritten progress line
// while a timed scan runs. It is silent unless its writer is a terminal.
type ScanProgress struct {
	out     io.Writer
	total   time.Duration
	enabled bool
	bar     progress.Model
}

// NewScanProgress creates a progress line for a scan lasting total.
func NewScanProgress(w io.Writer, total time.Duration) *ScanProgress {
	barWidth := terminalWidth(w) - 30 // Room for elapsed time and count
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	return &ScanProgress{
		out:     w,
		total:   total,
		enabled: IsTerminal(w),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
	}
}

// Render returns the progress line for the given elapsed time and number of
// printers found so far.
func (s *ScanProgress) Render(elapsed time.Duration, found int) string {
	percent := 1.0
	if s.total > 0 {
		percent = float64(elapsed) / float64(s.total)
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 1 {
		percent = 1
	}

	noun := "printers"
	if found == 1 {
		noun = "printer"
	}
	return fmt.Sprintf("  %s  %4.1fs  %d %s", s.bar.ViewAs(percent), elapsed.Seconds(), found, noun)
}

// Update redraws the progress line.
func (s *ScanProgress) Update(elapsed time.Duration, found int) {
	if !s.enabled {
		return
	}
	_, _ = fmt.Fprint(s.out, "\r"+s.Render(elapsed, found))
}

// Clear erases the progress line.
func (s *ScanProgress) Clear() {
	if !s.enabled {
		return
	}
	_, _ = fmt.Fprint(s.out, "\r\033[K")
}
