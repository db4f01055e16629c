package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Banner is printed at the start of a harvest
const Banner = `
  ┌─────────────────────────────────────────────┐
  │  malharvest · MyAnimeList seasonal harvester │
  └─────────────────────────────────────────────┘
`

var (
	mu      sync.Mutex
	out     io.Writer = os.Stdout
	colored           = isTerminal(os.Stdout)
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// SetOutput redirects messages to w. Color is kept only if w is a terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	f, ok := w.(*os.File)
	colored = ok && isTerminal(f)
}

// SetColor forces color on or off
func SetColor(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	colored = enabled
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// colorize returns a function that wraps text with ANSI color codes when color is on
func colorize(colorString string) func(string) string {
	return func(text string) string {
		mu.Lock()
		on := colored
		mu.Unlock()
		if !on {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

func writeLine(s string) {
	mu.Lock()
	w := out
	mu.Unlock()
	fmt.Fprintln(w, s)
}

// PrintBanner prints the banner
func PrintBanner() {
	writeLine(Cyan(Banner))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		writeLine(Red(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		writeLine(Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	writeLine(Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	writeLine(Cyan(label) + ": " + Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		writeLine(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		writeLine(Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	writeLine(Magenta(msg))
}

// Output returns the current message writer
func Output() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}
