package msg

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Output receives every message
var Output io.Writer = os.Stdout

// exit is replaced in tests
var exit = os.Exit

func emit(label, format string, a ...any) {
	fmt.Fprintf(Output, "%s: %s\n", label, fmt.Sprintf(format, a...))
}

func Error(format string, a ...any) { emit(color.HiRedString("error"), format, a...) }

func Warn(format string, a ...any) { emit(color.YellowString("warn"), format, a...) }

func Info(format string, a ...any) { emit(color.HiGreenString("info"), format, a...) }

// Fatal prints the message and exits with status 1
func Fatal(format string, a ...any) {
	emit(color.RedString("fatal"), format, a...)
	exit(1)
}

// Status prints a right-aligned green verb followed by a message, e.g.
// "       Wrote build/meson.build"
func Status(verb, format string, a ...any) {
	fmt.Fprintf(Output, "%s %s\n", color.HiGreenString("%12s", verb), fmt.Sprintf(format, a...))
}

// IndentWriter prefixes every line written through it with Indent. A line
// may be split across several writes.
type IndentWriter struct {
	Indent  string
	W       io.Writer
	midLine bool
}

func (w *IndentWriter) Write(p []byte) (int, error) {
	buf := make([]byte, 0, len(p)+len(w.Indent))
	for _, c := range p {
		if !w.midLine {
			buf = append(buf, w.Indent...)
			w.midLine = true
		}
		buf = append(buf, c)
		if c == '\n' || c == '\r' {
			w.midLine = false
		}
	}
	if _, err := w.W.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}
