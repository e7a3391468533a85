package tasks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/AlexanderGrooff/hostrun/pkg"
)

// WriteFile writes "content" to "filename" on the host, or appends it when
// "append" is set. The result carries a unified diff of the change and is only
// marked changed when the contents differ. Nothing is written in dry-run mode.
func WriteFile(t *pkg.Task) (*pkg.Result, error) {
	filename, err := requireParam(t, "filename")
	if err != nil {
		return nil, err
	}
	content := t.Params.String("content", "")

	conn, err := t.Connection(t.Params.String("plugin", defaultPlugin))
	if err != nil {
		return nil, err
	}
	before := ""
	existing, err := conn.ReadFile(filename)
	switch {
	case err == nil:
		before = string(existing)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	after := content
	if t.Params.Bool("append", false) {
		after = before + content
	}
	diff, err := unifiedDiff(filename, before, after)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s: %w", filename, err)
	}
	changed := before != after
	if changed && !t.IsDryRun() {
		if err := conn.WriteFile(filename, after); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", filename, err)
		}
	}
	return &pkg.Result{Result: filename, Changed: changed, Diff: diff}, nil
}

// Upload copies the local file "src" to "dest" on the host.
func Upload(t *pkg.Task) (*pkg.Result, error) {
	src, err := requireParam(t, "src")
	if err != nil {
		return nil, err
	}
	dest, err := requireParam(t, "dest")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src, err)
	}

	res, err := t.Run(&pkg.Task{
		Name: "write_file",
		Func: WriteFile,
		Params: pkg.Params{
			"filename": dest,
			"content":  string(data),
			"plugin":   t.Params.String("plugin", defaultPlugin),
		},
		Severity: pkg.SeverityDebug,
		DryRun:   t.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return &pkg.Result{
		Result:  fmt.Sprintf("%s -> %s", src, dest),
		Changed: res.Changed(),
		Diff:    res.At(0).Diff,
	}, nil
}
