// Package tui renders tuning runs in the terminal: a bubbletea program that follows a relay
// experiment live, and lipgloss panels with asciigraph plots for finished results.
package tui
