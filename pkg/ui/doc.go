// Package ui prints messages and the run summary to the terminal.
//
// Color is used only when the output is a terminal, or when forced with
// SetColor.
package ui
