// Package ui implements the interactive terminal interface and the lipgloss styles shared with the CLI.
//
// The TUI walks through one generation at a time:
//  1. [PromptView] : Type a mood description
//  2. [GeneratingView] : Watch pipeline progress while the playlist is built
//  3. [ResultView] : Browse the resolved tracks, or the error
//
// [Model] implements bubbletea's Init/Update/View pattern. Progress updates flow through a channel from the
// pipeline and are read one message at a time, so rendering never blocks generation.
//
// Keyboard: enter submits, q or ctrl+c quits, r starts over from the result view.
package ui
