// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for reviewing and merging duplicate records:
//  1. [GroupListView] : Browse duplicate groups found in the target workspace
//  2. [GroupDetailView] : Inspect the records inside one group
//  3. [ConfirmView] : Confirm a merge (oldest record survives)
//  4. [MergeView] : Monitor real-time progress updates
//  5. [ResultView] : Display merge outcomes per group
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the MergeResolver, providing non-blocking status reporting during merges.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
