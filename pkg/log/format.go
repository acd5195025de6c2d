package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// JSONFormatter renders an Entry as a single line of JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	rec := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		rec[k] = v
	}
	rec["level"] = entry.Level.String()
	rec["msg"] = entry.Message
	rec["ts"] = entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00")
	if entry.Caller != "" {
		rec["caller"] = entry.Caller
	}
	if entry.Error != nil {
		rec["error"] = entry.Error.Error()
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}

// TextFormatter renders an Entry as a single human-readable line.
type TextFormatter struct{}

func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
	b.WriteByte(' ')
	b.WriteString(entry.Level.String())
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	for k, v := range entry.Fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	if entry.Error != nil {
		fmt.Fprintf(&b, " error=%v", entry.Error)
	}
	if entry.Caller != "" {
		fmt.Fprintf(&b, " caller=%s", entry.Caller)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// ConsoleOutput writes formatted entries to an io.Writer, defaulting to
// os.Stderr.
type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleOutput returns a ConsoleOutput writing to w.
func NewConsoleOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: w}
}

func (o *ConsoleOutput) writer() io.Writer {
	if o.w != nil {
		return o.w
	}
	return os.Stderr
}

func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.writer().Write(formatted)
	return err
}

func (o *ConsoleOutput) Close() error { return nil }

// ParseLevel parses a case-insensitive level name into a Level. Unknown
// names fall back to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Config describes how to construct a process-wide Logger.
type Config struct {
	// Level is one of "debug", "info", "warn", "error", "fatal".
	Level string
	// Format is "json" or "text".
	Format string
	// Output, if set, receives formatted entries instead of os.Stderr.
	Output io.Writer
}

// ApplyConfig builds a Logger from cfg. A nil cfg yields defaults
// (info level, text format, stderr).
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	opts := []LoggerOption{WithLevel(ParseLevel(cfg.Level))}
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		opts = append(opts, WithFormatter(&JSONFormatter{}))
	default:
		opts = append(opts, WithFormatter(&TextFormatter{}))
	}
	opts = append(opts, WithOutput(NewConsoleOutput(cfg.Output)))
	return NewLogger(opts...), nil
}

// RedirectStdLog redirects the standard library's log package output
// through logger at InfoLevel, returning a restore function.
func RedirectStdLog(logger Logger) func() {
	prevOut := log.Writer()
	prevFlags := log.Flags()
	log.SetFlags(0)
	log.SetOutput(stdLogWriter{logger: logger})
	return func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	}
}

type stdLogWriter struct {
	logger Logger
}

func (w stdLogWriter) Write(p []byte) (int, error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
