package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Success prints a green check followed by the message.
func Success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

// Failure prints a red cross followed by the message.
func Failure(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.RedString("✗"), fmt.Sprintf(format, args...))
}

// Warning prints a yellow marker followed by the message.
func Warning(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.YellowString("⚠"), fmt.Sprintf(format, args...))
}

// Heading prints a cyan section title.
func Heading(w io.Writer, title string) {
	fmt.Fprintln(w, color.CyanString(title))
}
