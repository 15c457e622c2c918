// Package logx reproduces b1b's original log-level taxonomy (ABORT, FATAL,
// ERROR, WARNING, NOTICE, INFO, DEBUG) on top of logrus, with two wire
// formats: a syslog-priority-prefixed line for journald/syslog ingestion,
// and a plain "LEVEL: message" line for an interactive terminal.
package logx

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level mirrors the original's b1b_log_level enum ordering.
type Level uint32

const (
	LevelAbort Level = iota
	LevelFatal
	LevelError
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
)

var names = map[Level]string{
	LevelAbort:   "ABORT",
	LevelFatal:   "FATAL",
	LevelError:   "ERROR",
	LevelWarning: "WARNING",
	LevelNotice:  "NOTICE",
	LevelInfo:    "INFO",
	LevelDebug:   "DEBUG",
}

// syslog priorities, matching the values b1b.c passed to syslog(3).
var priorities = map[Level]int{
	LevelAbort:   2, // LOG_CRIT
	LevelFatal:   3, // LOG_ERR
	LevelError:   3, // LOG_ERR
	LevelWarning: 4, // LOG_WARNING
	LevelNotice:  5, // LOG_NOTICE
	LevelInfo:    6, // LOG_INFO
	LevelDebug:   7, // LOG_DEBUG
}

// Logger wraps a logrus.Logger configured with b1b's formatter.
type Logger struct {
	l *logrus.Logger
}

// formatter implements logrus.Formatter for both output styles.
type formatter struct {
	syslog bool
}

func (f *formatter) Format(e *logrus.Entry) ([]byte, error) {
	lvl, _ := e.Data["b1blevel"].(Level)
	name, ok := names[lvl]
	if !ok {
		name = "INFO"
	}

	var line string
	if f.syslog {
		line = fmt.Sprintf("<%d>%s: %s\n", priorities[lvl], name, e.Message)
	} else {
		line = fmt.Sprintf("%s: %s\n", name, e.Message)
	}
	return []byte(line), nil
}

// New builds a Logger. When syslog is true, lines are prefixed with a
// "<priority>" tag suitable for forwarding to the system journal; otherwise
// plain "LEVEL: message" lines are written, matching b1b's tty behavior.
// debug enables DEBUG-level output.
func New(out io.Writer, syslog, debug bool) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&formatter{syslog: syslog})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &Logger{l: l}
}

func (lg *Logger) log(lvl Level, logrusLvl logrus.Level, format string, args ...interface{}) {
	lg.l.WithField("b1blevel", lvl).Log(logrusLvl, fmt.Sprintf(format, args...))
}

// Notice logs at NOTICE, which has no direct logrus equivalent and is
// mapped onto logrus's Info level with the b1b-specific NOTICE tag.
func (lg *Logger) Notice(format string, args ...interface{}) {
	lg.log(LevelNotice, logrus.InfoLevel, format, args...)
}

func (lg *Logger) Info(format string, args ...interface{}) {
	lg.log(LevelInfo, logrus.InfoLevel, format, args...)
}

func (lg *Logger) Debug(format string, args ...interface{}) {
	lg.log(LevelDebug, logrus.DebugLevel, format, args...)
}

func (lg *Logger) Warning(format string, args ...interface{}) {
	lg.log(LevelWarning, logrus.WarnLevel, format, args...)
}

func (lg *Logger) Error(format string, args ...interface{}) {
	lg.log(LevelError, logrus.ErrorLevel, format, args...)
}

// Fatal logs at FATAL and terminates the process with exit status 1. It is
// used for errors that prevent the daemon from continuing but do not
// indicate a programming error.
func (lg *Logger) Fatal(format string, args ...interface{}) {
	lg.log(LevelFatal, logrus.ErrorLevel, format, args...)
	os.Exit(1)
}

// Abort logs at ABORT and terminates the process with exit status 2. It is
// used for internal invariant violations — conditions the original C code
// guarded with assert() or an explicit abort(). Abort neither panics nor
// raises SIGABRT; like Fatal it calls os.Exit, so no deferred function
// (including a caller's deferred resource teardown) runs.
func (lg *Logger) Abort(format string, args ...interface{}) {
	lg.log(LevelAbort, logrus.ErrorLevel, format, args...)
	os.Exit(2)
}
