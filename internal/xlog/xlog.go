// Package xlog provides the tag-prefixed logging helpers used by the
// engine, the backtest runner and the CLI. It wraps the standard library's
// log.Logger rather than introducing a structured-logging dependency the
// rest of the stack does not already reach for.
package xlog

import (
	"io"
	"log"
	"os"
)

// Logger tags every line with a component name, following a
// log.Printf("[DEBUG] ...")/log.Printf("[ERROR] ...") convention.
type Logger struct {
	tag string
	l   *log.Logger
}

// New builds a Logger writing to os.Stdout, prefixed with tag.
func New(tag string) *Logger {
	return NewWithWriter(tag, os.Stdout)
}

// NewWithWriter builds a Logger writing to w, for tests that want to
// capture output.
func NewWithWriter(tag string, w io.Writer) *Logger {
	return &Logger{tag: tag, l: log.New(w, "", log.LstdFlags)}
}

func (lg *Logger) Debugf(format string, args ...interface{}) {
	lg.l.Printf("[DEBUG] [%s] "+format, append([]interface{}{lg.tag}, args...)...)
}

func (lg *Logger) Infof(format string, args ...interface{}) {
	lg.l.Printf("[INFO] [%s] "+format, append([]interface{}{lg.tag}, args...)...)
}

func (lg *Logger) Warnf(format string, args ...interface{}) {
	lg.l.Printf("[WARN] [%s] "+format, append([]interface{}{lg.tag}, args...)...)
}

func (lg *Logger) Errorf(format string, args ...interface{}) {
	lg.l.Printf("[ERROR] [%s] "+format, append([]interface{}{lg.tag}, args...)...)
}

// With returns a child Logger whose tag is "tag.child", for per-feed or
// per-strategy sub-loggers.
func (lg *Logger) With(child string) *Logger {
	return &Logger{tag: lg.tag + "." + child, l: lg.l}
}
