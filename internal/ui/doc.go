// Package ui provides styled, non-interactive terminal output for the
// printerpick commands that do not run the picker (scan, last, forget).
//
// Output adapts to its destination: when the writer is a terminal,
// components render with lipgloss borders and colors sized to the terminal
// width (golang.org/x/term); otherwise they fall back to plain,
// tab-separated lines that are easy to consume from scripts.
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Printer Scan", "printerpick scan", map[string]string{"Timeout": "5s"})
//	p.PrintDevices(devices, registry.IsRemembered)
//
// # Logging Integration
//
// Logging is controlled via the PRINTERPICK_LOG_LEVEL environment variable
// and goes to stderr, so it never mixes with the output rendered here.
package ui
