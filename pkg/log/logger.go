package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerType uint8

const (
	ConsoleLogger LoggerType = iota
	JSONLogger
)

var (
	Root    = zerolog.New(os.Stdout).With().Timestamp().Logger()
	Ledger  = Root.With().Str("component", "ledger").Logger()
	Network = Root.With().Str("component", "network").Logger()
	Store   = Root.With().Str("component", "store").Logger()
	API     = Root.With().Str("component", "api").Logger()
)

// Options for Logger
type Options struct {
	// Enable Debug loglevel, default Info
	LogLevel zerolog.Level
	Type     LoggerType
	// File, when set, receives the log output as well, rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func ParseLogLevel(loglevel string) (zerolog.Level, error) {
	return zerolog.ParseLevel(loglevel)
}

// ParseLoggerType accepts "console" or "json".
func ParseLoggerType(s string) (LoggerType, error) {
	switch strings.ToLower(s) {
	case "", "console":
		return ConsoleLogger, nil
	case "json":
		return JSONLogger, nil
	default:
		return 0, fmt.Errorf("unknown log format %q", s)
	}
}

// Init replaces the package loggers. The returned closer flushes and closes
// the log file, if any.
func Init(opts Options) io.Closer {
	var out io.Writer = os.Stdout
	if opts.Type == ConsoleLogger {
		out = newConsoleWriter(os.Stdout)
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		// the file always gets JSON lines
		out = zerolog.MultiLevelWriter(out, rotating)
		closer = rotating
	}

	setRoot(zerolog.New(out).Level(opts.LogLevel).With().Timestamp().Logger())
	return closer
}

func setRoot(root zerolog.Logger) {
	Root = root
	Ledger = Root.With().Str("component", "ledger").Logger()
	Network = Root.With().Str("component", "network").Logger()
	Store = Root.With().Str("component", "store").Logger()
	API = Root.With().Str("component", "api").Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}

	cw.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}

	cw.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("message: \"%s\" |", i)
	}

	cw.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("\"%s\": ", i)
	}

	cw.FormatFieldValue = func(i interface{}) string {
		return fmt.Sprintf("\"%s\" |", i)
	}

	cw.FormatErrFieldValue = func(i interface{}) string {
		return fmt.Sprintf(" %s |", i)
	}
	return cw
}
