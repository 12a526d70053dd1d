// Package logging provides the free-form progress logger: stdout with an
// optional timestamped file tee.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"
)

const (
	timeFormat         = "2006-01-02 15:04:05"
	fileNameTimeFormat = "2006-01-02_15-04-05"
)

// Logger writes free-form progress text to an output stream and,
// when a file prefix was given, tees it to "<prefix>_<date>_<time>.log".
// Not safe for concurrent use; the trainer logs from one goroutine only.
type Logger struct {
	out  io.Writer
	file *os.File
}

// New creates a logger on out. A non-empty filePrefix opens a log file
// next to it; failure to open the file is reported on out and otherwise
// ignored.
func New(out io.Writer, filePrefix string) *Logger {
	l := &Logger{out: out}

	if filePrefix != "" {
		name := fmt.Sprintf("%s_%s.log", filePrefix, time.Now().Format(fileNameTimeFormat))
		file, err := os.Create(name)
		if err != nil {
			fmt.Fprintf(out, "Warning! Can not open log file '%s' for writing: %v\n", name, err)
		} else {
			l.file = file
		}
	}

	return l
}

// Printf logs one formatted message.
func (l *Logger) Printf(format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	io.WriteString(l.out, text)
	if l.file != nil {
		io.WriteString(l.file, text)
	}
}

// Banner logs a timestamped section header.
func (l *Logger) Banner(format string, args ...interface{}) {
	l.Printf("\n== %s: %s", time.Now().Format(timeFormat), fmt.Sprintf(format, args...))
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.Printf("\nERROR! %s", fmt.Sprintf(format, args...))
}

// Warning logs a warning message.
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Printf("\nWarning! %s", fmt.Sprintf(format, args...))
}

// Close closes the tee file, if any.
func (l *Logger) Close() {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}
