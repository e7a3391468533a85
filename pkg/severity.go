package pkg

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Severity tags a result with its importance for reporting.
// The zero value means "not set" and is replaced by SeverityInfo when a task starts.
type Severity int

const (
	SeverityDebug    Severity = 10
	SeverityInfo     Severity = 20
	SeverityWarning  Severity = 30
	SeverityError    Severity = 40
	SeverityCritical Severity = 50
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// LogLevel maps the severity onto the logrus level used when logging results.
func (s Severity) LogLevel() logrus.Level {
	switch {
	case s >= SeverityCritical:
		return logrus.FatalLevel
	case s >= SeverityError:
		return logrus.ErrorLevel
	case s >= SeverityWarning:
		return logrus.WarnLevel
	case s >= SeverityInfo:
		return logrus.InfoLevel
	}
	return logrus.DebugLevel
}

// ParseSeverity accepts the level names used in configuration and on the command line.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return SeverityDebug, nil
	case "INFO", "":
		return SeverityInfo, nil
	case "WARNING", "WARN":
		return SeverityWarning, nil
	case "ERROR":
		return SeverityError, nil
	case "CRITICAL":
		return SeverityCritical, nil
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}
