package logutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const TimeFormat = "2006-01-02 15:04:05 MST"

type Options struct {
	// one of debug, info, warn, error. defaults to debug
	Level string `json:"level" toml:"level"`
	// optional log file, it is opened in append mode
	File string `json:"file" toml:"file"`
	// writes to stderr as well when a file is given
	Stream bool `json:"stream" toml:"stream"`
	// hours east of UTC that timestamps are rendered in
	TZOffset int `json:"tz_offset" toml:"tz_offset"`
}

func DefaultOptions() Options {
	return Options{
		Level:    "debug",
		Stream:   true,
		TZOffset: 8,
	}
}

// Zone returns the fixed zone for an offset in hours.
func Zone(offset int) *time.Location {
	name := fmt.Sprintf("UTC%+d", offset)
	if offset == 0 {
		name = "UTC"
	}
	return time.FixedZone(name, offset*3600)
}

func parseLevel(level string) (log.Level, error) {
	if level == "" {
		return log.DebugLevel, nil
	}
	return log.ParseLevel(strings.ToLower(level))
}

// New creates a logger following the given options, the returned closer
// releases the log file if one was opened.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("logutil: %w", err)
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		err = os.MkdirAll(filepath.Dir(opts.File), 0777)
		if err != nil {
			return nil, nil, fmt.Errorf("logutil: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("logutil: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}
	if opts.File == "" || opts.Stream {
		writers = append(writers, os.Stderr)
	}

	zone := Zone(opts.TZOffset)
	handler := log.NewWithOptions(io.MultiWriter(writers...), log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		TimeFunction: func(t time.Time) time.Time {
			return t.In(zone)
		},
		// debug output carries the caller like the verbose format did
		ReportCaller: level == log.DebugLevel,
		Formatter:    log.TextFormatter,
	})

	return slog.New(handler), closer, nil
}

// Init creates a logger and installs it as the slog default.
func Init(opts Options) (io.Closer, error) {
	logger, closer, err := New(opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
