// Package tui renders reconciliation progress in the terminal.
//
// ProgressModel is a Bubble Tea model fed from a channel of progress
// events. While a run is active it shows a spinner with the current step
// and a progress bar across file writes; each event adds a colored log
// line. It quits on the terminal event:
//
//	events := make(chan progress.Event, 64)
//	go run(events)
//	final, err := tui.RunProgress(events)
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - spinner and progress bar
//   - github.com/charmbracelet/lipgloss - Styling
package tui
