// Package logger builds the zerolog logger shared by the server, the store backends and
// the lifecycle managers.
//
//	logData, err := logger.New().FromPath(cfg.LogFile).WithLevel(cfg.LogLevel).Make()
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

// Format selects how records are rendered.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

type LogBuild struct {
	writer  io.Writer
	path    string
	level   string
	format  Format
	service string
}

type LogData struct {
	writer  io.Writer
	LogFile *os.File
	Logger  zerolog.Logger
}

func New() *LogBuild {
	return &LogBuild{format: FormatJSON, level: zerolog.InfoLevel.String()}
}

// FromPath appends to the file at path instead of writing to the buffer or stdout.
func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

// WithLevel sets the minimum level by name ("debug", "info", "warn", ...). An empty name
// keeps the default of info.
func (build *LogBuild) WithLevel(level string) *LogBuild {
	if level != "" {
		build.level = level
	}
	return build
}

func (build *LogBuild) WithFormat(format Format) *LogBuild {
	if format != "" {
		build.format = format
	}
	return build
}

// WithService adds a "service" field to every record.
func (build *LogBuild) WithService(name string) *LogBuild {
	build.service = name
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	level, err := zerolog.ParseLevel(strings.ToLower(build.level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", build.level, err)
	}

	logData = new(LogData)
	logData.writer = os.Stdout
	if build.writer != nil {
		logData.writer = build.writer
	}
	if build.path != "" {
		logData.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		logData.writer = zerolog.SyncWriter(logData.LogFile)
	}

	switch build.format {
	case FormatJSON:
	case FormatConsole:
		logData.writer = zerolog.ConsoleWriter{Out: logData.writer, TimeFormat: time.RFC3339, NoColor: build.path != ""}
	default:
		logData.Close()
		return nil, fmt.Errorf("unknown log format %q", build.format)
	}

	ctx := zerolog.New(logData.writer).Level(level).With().Timestamp()
	if build.service != "" {
		ctx = ctx.Str("service", build.service)
	}
	logData.Logger = ctx.Logger()
	return logData, nil
}

// Close closes the log file, if one was opened.
func (logData *LogData) Close() error {
	if logData.LogFile == nil {
		return nil
	}
	return logData.LogFile.Close()
}
