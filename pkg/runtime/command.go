package runtime

import (
	"fmt"
	"strings"
)

// CommandResult represents the result of a command execution
type CommandResult struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Error    error
}

func NewCommandResult(command string, exitCode int, stdout string, stderr string, err error) *CommandResult {
	return &CommandResult{
		Command:  command,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Error:    err,
	}
}

// Failed reports whether the command errored or exited non-zero.
func (r *CommandResult) Failed() bool {
	return r.Error != nil || r.ExitCode != 0
}

// CommandOptions holds configuration for command execution
type CommandOptions struct {
	UseShell bool
	Sudo     bool
	SudoUser string
}

// NewCommandOptions returns options for a plain, non-shell command.
func NewCommandOptions() *CommandOptions {
	return &CommandOptions{}
}

// WithShell enables shell execution
func (co *CommandOptions) WithShell() *CommandOptions {
	co.UseShell = true
	return co
}

// WithSudo runs the command through sudo, as user when given.
func (co *CommandOptions) WithSudo(user string) *CommandOptions {
	co.Sudo = true
	co.SudoUser = user
	return co
}

// buildCommand wraps command for shell and sudo execution.
func buildCommand(command string, opts *CommandOptions) string {
	if opts == nil {
		return command
	}
	cmd := command
	if opts.UseShell {
		cmd = fmt.Sprintf("sh -c %s", shellQuote(cmd))
	}
	if opts.Sudo {
		if opts.SudoUser != "" {
			cmd = fmt.Sprintf("sudo -n -u %s %s", opts.SudoUser, cmd)
		} else {
			cmd = fmt.Sprintf("sudo -n %s", cmd)
		}
	}
	return cmd
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
