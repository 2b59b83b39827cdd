// Package picker implements the interactive printer picker screen.
//
// The picker is a Bubble Tea model that owns a session.Session. Every
// mutation of the device list happens in Update, on the program's goroutine;
// discovery callbacks only hand devices to the session's mailbox, and a
// command waiting on Session.Pending turns them into a message.
//
// # Framework Components
//
//   - bubbles/list: the device list (filtering disabled so list positions
//     match session indices)
//   - bubbles/spinner: discovery activity
//   - bubbles/textinput: manual target entry
//   - bubbles/help and bubbles/key: key bindings and footer help
//   - lipgloss: styling and the header/footer container
//
// # Usage Example
//
//	ctx, cancel := context.WithCancel(context.Background())
//	model := picker.New(ctx, discoverer, picker.Options{Remembered: registry})
//	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
//	cancel()
//	model.Close(context.Background())
//
//	if m, ok := final.(picker.Model); ok {
//	    if target, _, chosen := m.Result(); chosen {
//	        fmt.Println(target)
//	    }
//	}
//
// # Restart
//
// Pressing r stops discovery in a command so the screen keeps drawing while
// a busy stop is retried. When the stop completes, the list is cleared and
// discovery starts again; if it fails, the list is left as it was and the
// failure is shown in the status line.
package picker
