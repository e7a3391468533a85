package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexanderGrooff/hostrun/pkg/config"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, Configure(config.LoggingConfig{Level: level, Format: "json"}))
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		_ = Configure(config.LoggingConfig{Level: "info", Format: "plain", Timestamps: true})
	})
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestConfigureJSON(t *testing.T) {
	buf := captureJSON(t, "debug")

	LogDebug("task started", TaskFields("say", "host1.cmh"))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "task started", entries[0]["msg"])
	assert.Equal(t, "say", entries[0][FieldTask])
	assert.Equal(t, "host1.cmh", entries[0][FieldHost])
	assert.Equal(t, "debug", entries[0]["level"])
	assert.NotContains(t, entries[0], "time")
}

func TestConfigureRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
	}{
		{"format", config.LoggingConfig{Level: "info", Format: "xml"}},
		{"level", config.LoggingConfig{Level: "loud", Format: "json"}},
		{"file", config.LoggingConfig{Level: "info", Format: "json", File: filepath.Join(t.TempDir(), "missing", "hostrun.log")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Configure(tt.cfg))
		})
	}
}

func TestConfigureLevelFiltersEntries(t *testing.T) {
	buf := captureJSON(t, "warn")

	LogInfo("hidden", nil)
	assert.Empty(t, buf.String())
	LogWarn("shown", nil)
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigureLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostrun.log")
	require.NoError(t, Configure(config.LoggingConfig{Level: "info", Format: "json", File: path}))
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		_ = Configure(config.LoggingConfig{Level: "info", Format: "plain", Timestamps: true})
	})

	LogInfo("to file", nil)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestFields(t *testing.T) {
	assert.Equal(t, Fields{FieldTask: "deploy"}, TaskFields("deploy", ""))
	assert.Equal(t, Fields{FieldTask: "deploy", FieldRunID: "r1", "hosts": 3}, RunFields("deploy", "r1").With("hosts", 3))
	assert.Equal(t, Fields{FieldTask: "deploy", FieldHost: "a", FieldError: "boom"},
		TaskFields("deploy", "a").WithError(errors.New("boom")))
	assert.Equal(t, Fields{FieldTask: "deploy"}, TaskFields("deploy", "").WithError(nil))
}

func TestExecutionID(t *testing.T) {
	buf := captureJSON(t, "info")
	SetExecutionID("exec-1")
	defer SetExecutionID("")

	LogInfo("tagged", nil)
	SetExecutionID("")
	LogInfo("untagged", nil)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "exec-1", entries[0][FieldExecutionID])
	assert.NotContains(t, entries[1], FieldExecutionID)
}

func TestLogHighLevelsDoNotExit(t *testing.T) {
	buf := captureJSON(t, "info")

	Log(logrus.FatalLevel, "critical result", nil)
	Log(logrus.PanicLevel, "lowered", nil)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "fatal", entries[0]["level"])
	assert.Equal(t, "fatal", entries[1]["level"])
}

func TestSortFieldsPutsRunIdentifiersFirst(t *testing.T) {
	keys := []string{"changed", FieldHost, logrus.FieldKeyMsg, FieldTask, "a", logrus.FieldKeyLevel, FieldRunID}
	sortFields(keys)
	assert.Equal(t, []string{logrus.FieldKeyLevel, logrus.FieldKeyMsg, FieldRunID, FieldTask, FieldHost, "a", "changed"}, keys)
}
