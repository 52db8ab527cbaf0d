// Package ui contains the terminal presentation pieces of spotility.
//
// [Confirm] is a small bubbletea model for y/N prompts (used by `rate --ask`), run with [RunConfirm].
// The palette functions in colors.go style command output with lipgloss.
package ui
