package cli

import (
	"fmt"
	"os"
)

const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
)

// enabled is a cached check for the NO_COLOR convention.
var enabled = checkColor()

func checkColor() bool {
	_, noColor := os.LookupEnv("NO_COLOR")
	return !noColor
}

// Enabled reports whether output should carry ANSI escapes.
func Enabled() bool {
	return enabled
}

// Style wraps text in a specific color code
func Style(text string, colorCode string) string {
	if !enabled {
		return text
	}
	return fmt.Sprintf("%s%s%s", colorCode, text, Reset)
}

func CheckMark() string {
	return Style("✔", Green)
}

func CrossMark() string {
	return Style("✘", Red)
}

func Arrow() string {
	return Style("➜", Blue)
}
