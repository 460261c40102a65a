package output

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("37"))            // dark green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))             // red
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))            // yellow
	debugStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))           // light grey
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")) // purple
)

var StyleSymbols = map[string]string{
	"pass":    "✓",
	"fail":    "✗",
	"warning": "!",
	"bullet":  "•",
	"hline":   "━",
}

// printMu keeps multi-line blocks from different workers from interleaving.
var printMu sync.Mutex

func emit(text string) {
	printMu.Lock()
	defer printMu.Unlock()
	fmt.Println(text)
}

func PrintSuccess(text string) {
	emit(successStyle.Render(StyleSymbols["pass"] + " " + text))
}
func PrintError(text string) {
	emit(errorStyle.Render(StyleSymbols["fail"] + " " + text))
}
func PrintWarning(text string) {
	emit(warningStyle.Render(StyleSymbols["warning"] + " " + text))
}
func FSuccess(text string) string {
	return successStyle.Render(text)
}
func FError(text string) string {
	return errorStyle.Render(text)
}
