// Package tasks contains the task functions shipped with hostrun.
package tasks

import (
	"fmt"
	"sort"

	"github.com/AlexanderGrooff/hostrun/pkg"
)

// defaultPlugin is the connection plugin used when a task gets no "plugin" param.
const defaultPlugin = "local"

var registry = map[string]pkg.TaskFunc{
	"echo_data":       EchoData,
	"command":         Command,
	"template_string": TemplateString,
	"template_file":   TemplateFile,
	"write_file":      WriteFile,
	"upload":          Upload,
	"load_yaml":       LoadYAML,
	"load_json":       LoadJSON,
}

// Lookup returns the built-in task registered under name.
func Lookup(name string) (pkg.TaskFunc, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown task %q, available tasks: %v", name, Names())
	}
	return fn, nil
}

// Names returns the names of the built-in tasks.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func requireParam(t *pkg.Task, key string) (string, error) {
	v := t.Params.String(key, "")
	if v == "" {
		return "", fmt.Errorf("missing %q param", key)
	}
	return v, nil
}

// EchoData returns its params as the result.
func EchoData(t *pkg.Task) (*pkg.Result, error) {
	data := make(map[string]interface{}, len(t.Params))
	for k, v := range t.Params {
		data[k] = v
	}
	return &pkg.Result{Result: data}, nil
}
