package output

import (
	"fmt"
	"io"
	"os"
)

// Verbosity levels
const (
	QuietLevel = iota
	NormalLevel
	VerboseLevel
)

var (
	verbosity              = NormalLevel
	outputWriter io.Writer = os.Stdout
	errorWriter  io.Writer = os.Stderr
)

// SetVerbosity sets the verbosity level.
func SetVerbosity(level int) {
	verbosity = level
}

// SetWriters sets the output and error writers (useful for testing).
func SetWriters(out, err io.Writer) {
	outputWriter = out
	errorWriter = err
}

// Println prints a line if verbosity allows.
func Println(args ...interface{}) {
	if verbosity >= NormalLevel {
		fmt.Fprintln(outputWriter, args...)
	}
}

// Printf prints formatted text if verbosity allows.
func Printf(format string, args ...interface{}) {
	if verbosity >= NormalLevel {
		fmt.Fprintf(outputWriter, format, args...)
	}
}

// VerbosePrintf prints formatted text only in verbose mode.
func VerbosePrintf(format string, args ...interface{}) {
	if verbosity >= VerboseLevel {
		fmt.Fprintf(outputWriter, format, args...)
	}
}

// ErrorPrintf always prints formatted text (errors should always be shown).
func ErrorPrintf(format string, args ...interface{}) {
	fmt.Fprintf(errorWriter, format, args...)
}

// SuccessPrintln prints success message with newline if verbosity allows.
func SuccessPrintln(text string) {
	if verbosity >= NormalLevel {
		fmt.Fprintf(outputWriter, "%s\n", Success(text))
	}
}

// WarningPrintln prints warning message with newline if verbosity allows.
func WarningPrintln(text string) {
	if verbosity >= NormalLevel {
		fmt.Fprintf(outputWriter, "%s\n", Warning(text))
	}
}
