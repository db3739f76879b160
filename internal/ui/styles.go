package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for command output
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // headers, borders
	SuccessColor = lipgloss.Color("#43BF6D")
	ErrorColor   = lipgloss.Color("#FF5555")
	WarningColor = lipgloss.Color("#FFA500")
	MutedColor   = lipgloss.Color("#626262") // secondary info
	TextColor    = lipgloss.Color("#FFFFFF")
)

// Layout constants
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

// Step status markers
const (
	StepMarkerComplete = "✓"
	StepMarkerRunning  = "●"
	StepMarkerPending  = "·"
	StepMarkerSkipped  = "⊘"
	StepMarkerFailed   = "✗"
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Header and result text styles
var (
	headerTitleStyle = fg(TextColor).Bold(true).PaddingLeft(2)
	headerMutedStyle = fg(MutedColor).PaddingLeft(2)
	plainTextStyle   = fg(TextColor)
	mutedStyle       = fg(MutedColor)
	noteStyle        = fg(MutedColor).Italic(true)
	detailKeyStyle   = fg(MutedColor).Width(18)
	errorTextStyle   = fg(ErrorColor)
	hintsTitleStyle  = fg(MutedColor).Bold(true)
)

// stepLook is how one step status is drawn in a progress list
type stepLook struct {
	marker string
	style  lipgloss.Style
}

var stepLooks = map[StepStatus]stepLook{
	StepPending:  {StepMarkerPending, mutedStyle},
	StepRunning:  {StepMarkerRunning, fg(WarningColor)},
	StepComplete: {StepMarkerComplete, fg(SuccessColor)},
	StepFailed:   {StepMarkerFailed, fg(ErrorColor).Bold(true)},
	StepSkipped:  {StepMarkerSkipped, mutedStyle},
}

func lookForStep(s StepStatus) stepLook {
	if l, ok := stepLooks[s]; ok {
		return l
	}
	return stepLooks[StepPending]
}

// resultLook is the border colour and title banner of a result box
type resultLook struct {
	color  lipgloss.Color
	marker string
	label  string
}

var resultLooks = map[ResultType]resultLook{
	ResultSuccess: {SuccessColor, "✓", "SUCCESS"},
	ResultFailure: {ErrorColor, "✗", "FAILED"},
	ResultWarning: {WarningColor, "⚠", "WARNING"},
}

func lookForResult(t ResultType) resultLook {
	if l, ok := resultLooks[t]; ok {
		return l
	}
	return resultLooks[ResultSuccess]
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	return clampWidth(width, err)
}

func clampWidth(width int, err error) int {
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// RenderHorizontalDivider creates a horizontal line of the specified width
func RenderHorizontalDivider(width int, char string) string {
	if width < 1 {
		width = 1
	}
	return fg(PrimaryColor).Render(strings.Repeat(char, width))
}
