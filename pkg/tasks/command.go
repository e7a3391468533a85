package tasks

import (
	"fmt"

	"github.com/AlexanderGrooff/hostrun/pkg"
	"github.com/AlexanderGrooff/hostrun/pkg/runtime"
)

// Command runs the "command" param on the host.
//
// Params:
//   - command: the command line
//   - shell: run through sh -c, so pipes and variables work
//   - sudo, sudo_user: run through sudo
//   - plugin: connection plugin, "local" by default
//
// In dry-run mode the command is not executed.
func Command(t *pkg.Task) (*pkg.Result, error) {
	command, err := requireParam(t, "command")
	if err != nil {
		return nil, err
	}
	if t.IsDryRun() {
		return &pkg.Result{Result: fmt.Sprintf("skipped in dry-run: %s", command)}, nil
	}

	conn, err := t.Connection(t.Params.String("plugin", defaultPlugin))
	if err != nil {
		return nil, err
	}
	opts := runtime.NewCommandOptions()
	if t.Params.Bool("shell", false) {
		opts.WithShell()
	}
	if t.Params.Bool("sudo", false) {
		opts.WithSudo(t.Params.String("sudo_user", ""))
	}

	res, err := conn.ExecuteCommand(t.Context(), command, opts)
	if err != nil {
		return nil, err
	}
	result := &pkg.Result{
		Result:  res.Stdout,
		Stdout:  res.Stdout,
		Stderr:  res.Stderr,
		Changed: true,
	}
	if res.Failed() {
		result.Failed = true
		result.Exception = fmt.Errorf("command %q exited with %d", res.Command, res.ExitCode)
		if res.Error != nil {
			result.Exception = fmt.Errorf("command %q exited with %d: %w", res.Command, res.ExitCode, res.Error)
		}
	}
	return result, nil
}
