package common

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/AlexanderGrooff/hostrun/pkg/config"
)

// Field names shared by every component that logs about a task run.
const (
	FieldTask        = "task"
	FieldHost        = "host"
	FieldRunID       = "run_id"
	FieldError       = "error"
	FieldExecutionID = "execution_id"
)

const timestampLayout = "2006-01-02 15:04:05"

// Formats are the accepted values of logging.format. yaml is key=value text
// without colours.
var Formats = []string{"plain", "json", "yaml"}

var logger = newLogger()

var executionID atomic.Value

var (
	fileMu  sync.Mutex
	logFile *os.File
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(textFormatter(true, true))
	l.AddHook(executionIDHook{})
	return l
}

// Fields are structured log fields.
type Fields map[string]interface{}

// TaskFields identifies a task on a host. An empty host is left out.
func TaskFields(task, host string) Fields {
	f := Fields{FieldTask: task}
	if host != "" {
		f[FieldHost] = host
	}
	return f
}

// RunFields identifies one run of a task over the inventory.
func RunFields(task, runID string) Fields {
	return Fields{FieldTask: task, FieldRunID: runID}
}

// With sets key and returns f.
func (f Fields) With(key string, value interface{}) Fields {
	f[key] = value
	return f
}

// WithError records err under FieldError. A nil err is ignored.
func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// fieldRank orders the fixed logrus keys and the run identifiers before all
// other fields in text output.
var fieldRank = map[string]int{
	logrus.FieldKeyTime:  1,
	logrus.FieldKeyLevel: 2,
	logrus.FieldKeyMsg:   3,
	FieldExecutionID:     4,
	FieldRunID:           5,
	FieldTask:            6,
	FieldHost:            7,
}

func sortFields(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		ri, rj := fieldRank[keys[i]], fieldRank[keys[j]]
		switch {
		case ri != 0 && rj != 0:
			return ri < rj
		case ri != 0:
			return true
		case rj != 0:
			return false
		}
		return keys[i] < keys[j]
	})
}

func textFormatter(colors, timestamps bool) *logrus.TextFormatter {
	return &logrus.TextFormatter{
		DisableColors:    !colors,
		FullTimestamp:    timestamps,
		DisableTimestamp: !timestamps,
		TimestampFormat:  timestampLayout,
		SortingFunc:      sortFields,
	}
}

func formatter(cfg config.LoggingConfig) (logrus.Formatter, error) {
	switch cfg.Format {
	case "plain", "":
		return textFormatter(true, cfg.Timestamps), nil
	case "yaml":
		return textFormatter(false, cfg.Timestamps), nil
	case "json":
		f := &logrus.JSONFormatter{DisableTimestamp: !cfg.Timestamps}
		if cfg.Timestamps {
			f.TimestampFormat = timestampLayout
		}
		return f, nil
	}
	return nil, fmt.Errorf("invalid log format %q, expected one of %v", cfg.Format, Formats)
}

// Configure applies format, level and output file from the logging config.
// Nothing changes when any of them is invalid.
func Configure(cfg config.LoggingConfig) error {
	f, err := formatter(cfg)
	if err != nil {
		return err
	}
	level := logrus.InfoLevel
	if cfg.Level != "" {
		level, err = logrus.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	if cfg.File != "" {
		if err := openLogFile(cfg.File); err != nil {
			return err
		}
	}
	logger.SetFormatter(f)
	logger.SetLevel(level)
	return nil
}

// openLogFile sends output to path, closing a previously opened log file.
func openLogFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	fileMu.Lock()
	defer fileMu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = file
	logger.SetOutput(file)
	return nil
}

// SetOutput redirects log output, mostly useful in tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// SetExecutionID tags every following entry with id. An empty id removes the tag.
func SetExecutionID(id string) {
	executionID.Store(id)
}

type executionIDHook struct{}

func (executionIDHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (executionIDHook) Fire(entry *logrus.Entry) error {
	if id, _ := executionID.Load().(string); id != "" {
		entry.Data[FieldExecutionID] = id
	}
	return nil
}

func LogDebug(msg string, fields map[string]interface{}) {
	logger.WithFields(fields).Debug(msg)
}

func LogInfo(msg string, fields map[string]interface{}) {
	logger.WithFields(fields).Info(msg)
}

func LogWarn(msg string, fields map[string]interface{}) {
	logger.WithFields(fields).Warn(msg)
}

func LogError(msg string, fields map[string]interface{}) {
	logger.WithFields(fields).Error(msg)
}

// Log logs at level without exiting. Panic is lowered to fatal.
func Log(level logrus.Level, msg string, fields map[string]interface{}) {
	if level == logrus.PanicLevel {
		level = logrus.FatalLevel
	}
	logger.WithFields(fields).Log(level, msg)
}

// DebugOutput logs a formatted debug message.
func DebugOutput(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}
