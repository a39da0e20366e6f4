// Package format renders colored terminal output for the CLI.
package format

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Styles used across the CLI.
var (
	SuccessColor   = color.New(color.FgGreen)
	WarningColor   = color.New(color.FgYellow)
	ErrorColor     = color.New(color.FgRed, color.Bold)
	InfoColor      = color.New(color.FgCyan)
	HighlightColor = color.New(color.FgCyan, color.Bold)
	HeadingColor   = color.New(color.FgHiWhite, color.Bold)
	HintColor      = color.New(color.FgYellow, color.Italic)
	DimColor       = color.New(color.FgHiBlack)
)

func init() {
	EnableColor(detectColor())
}

// detectColor enables color only on a terminal, honoring NO_COLOR and
// LETSGO_NO_COLOR, unless LETSGO_FORCE_COLOR is set.
func detectColor() bool {
	if _, force := os.LookupEnv("LETSGO_FORCE_COLOR"); force {
		return true
	}
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	if _, off := os.LookupEnv("LETSGO_NO_COLOR"); off {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// EnableColor enables or disables colored output globally.
func EnableColor(enable bool) {
	color.NoColor = !enable
}

// IsColorEnabled returns whether colored output is enabled.
func IsColorEnabled() bool {
	return !color.NoColor
}

// Success formats a message as a success (green).
func Success(format string, a ...interface{}) string {
	return SuccessColor.Sprintf(format, a...)
}

// Warning formats a message as a warning (yellow).
func Warning(format string, a ...interface{}) string {
	return WarningColor.Sprintf(format, a...)
}

// Error formats a message as an error (bold red).
func Error(format string, a ...interface{}) string {
	return ErrorColor.Sprintf(format, a...)
}

// Info formats a message as info (cyan).
func Info(format string, a ...interface{}) string {
	return InfoColor.Sprintf(format, a...)
}

// Highlight formats a message as highlighted (bold cyan).
func Highlight(format string, a ...interface{}) string {
	return HighlightColor.Sprintf(format, a...)
}

// Dim formats a message as dimmed.
func Dim(format string, a ...interface{}) string {
	return DimColor.Sprintf(format, a...)
}

// Label formats a key and value with a label style.
func Label(key, value string) string {
	return fmt.Sprintf("%s %s", HighlightColor.Sprint(key+":"), value)
}

// StatusSymbol returns a colorized status symbol.
func StatusSymbol(success bool) string {
	if success {
		return SuccessColor.Sprint("✓")
	}
	return ErrorColor.Sprint("✗")
}

// StatusLabel colors a teardown status.
func StatusLabel(status string) string {
	status = strings.ToLower(status)
	switch status {
	case "succeeded":
		return SuccessColor.Sprint(status)
	case "skipped":
		return WarningColor.Sprint(status)
	case "failed":
		return ErrorColor.Sprint(status)
	default:
		return status
	}
}
