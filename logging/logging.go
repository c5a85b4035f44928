// Package logging configures a logfmt logger and routes the standard library
// log package through it, so that command code can keep using log.Printf.
package logging

import (
	"io"
	stdlog "log"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Log source tags used in structured logger contexts.
const (
	SourceApp   = "app"
	SourceBuild = "build"
	SourceWeb   = "web"
	SourceStudy = "study"
)

var (
	initOnce   sync.Once
	baseLogger *log.Logger
	output     io.Writer = os.Stderr
	level                = log.InfoLevel
)

// Init configures the base logger and stdlib log output. Calls after the first
// have no effect.
func Init() {
	initOnce.Do(func() {
		baseLogger = log.NewWithOptions(output, log.Options{
			TimeFunction:    log.NowUTC,
			TimeFormat:      time.RFC3339,
			Level:           level,
			ReportTimestamp: true,
			Formatter:       log.LogfmtFormatter,
		})

		stdLogger := baseLogger.With("source", SourceApp).StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel})

		stdlog.SetFlags(0)
		stdlog.SetOutput(stdLogger.Writer())
	})
}

// SetVerbose enables debug output for loggers requested afterwards.
func SetVerbose(verbose bool) {
	Init()

	level = log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	baseLogger.SetLevel(level)
}

// Logger returns a logfmt logger tagged with the provided source.
func Logger(source string) *log.Logger {
	Init()
	return baseLogger.With("source", source)
}

// StdLogger returns a stdlib logger that writes logfmt output with a source.
func StdLogger(source string) *stdlog.Logger {
	Init()
	return baseLogger.With("source", source).StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel})
}
