package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/AlexanderGrooff/hostrun/pkg/common"
	"github.com/google/shlex"
)

// LocalConnection runs commands and file operations on the machine running hostrun.
type LocalConnection struct {
}

func NewLocalConnection() *LocalConnection {
	return &LocalConnection{}
}

func (lc *LocalConnection) Close() error {
	return nil
}

// ExecuteCommand executes a command locally. A non-zero exit code is reported in the
// result, not as the returned error.
func (lc *LocalConnection) ExecuteCommand(ctx context.Context, command string, opts *CommandOptions) (*CommandResult, error) {
	if command == "" {
		return nil, fmt.Errorf("command is empty")
	}

	cmdToRun := buildCommand(command, opts)
	splitCmd, err := shlex.Split(cmdToRun)
	if err != nil {
		return nil, fmt.Errorf("failed to split command %s: %v", command, err)
	}
	if len(splitCmd) == 0 {
		return nil, fmt.Errorf("command %q has no program", command)
	}
	absProg, err := exec.LookPath(splitCmd[0])
	if err != nil {
		return nil, fmt.Errorf("failed to find %s in $PATH: %v", splitCmd[0], err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, absProg, splitCmd[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	common.DebugOutput("Running command: %s", cmd.String())
	err = cmd.Run()
	rc := 0
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			rc = exitError.ExitCode()
		} else {
			rc = -1
		}
		return NewCommandResult(cmdToRun, rc, stdout.String(), stderr.String(), fmt.Errorf("failed to execute command %q: %w", cmdToRun, err)), nil
	}
	return NewCommandResult(cmdToRun, rc, stdout.String(), stderr.String(), nil), nil
}

// WriteFile writes data to filename, creating parent directories.
func (lc *LocalConnection) WriteFile(filename string, data string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}
	return os.WriteFile(filename, []byte(data), 0644)
}

func (lc *LocalConnection) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}
