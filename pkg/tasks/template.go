package tasks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlexanderGrooff/jinja-go"

	"github.com/AlexanderGrooff/hostrun/pkg"
	"github.com/AlexanderGrooff/hostrun/pkg/common"
)

// templateContext exposes the resolved host data, the task params and a "host" map.
// Params win over host data.
func templateContext(t *pkg.Task) map[string]interface{} {
	context := t.Host.Items()
	for k, v := range t.Params {
		context[k] = v
	}
	context["host"] = map[string]interface{}{
		"name":     t.Host.Name,
		"hostname": t.Host.ResolvedHostname(),
		"platform": t.Host.ResolvedPlatform(),
		"groups":   t.Host.GroupNames,
	}
	return context
}

func render(t *pkg.Task, template string) (string, error) {
	if template == "" {
		return "", nil
	}
	context := templateContext(t)
	res, err := jinja.TemplateString(template, context)
	if err != nil {
		return "", fmt.Errorf("failed to template string: %w", err)
	}
	if res != template {
		common.DebugOutput("Templated %q into %q for host %s", template, res, t.Host.Name)
	}
	return res, nil
}

// TemplateString renders the "template" param.
func TemplateString(t *pkg.Task) (*pkg.Result, error) {
	template, err := requireParam(t, "template")
	if err != nil {
		return nil, err
	}
	res, err := render(t, template)
	if err != nil {
		return nil, err
	}
	return &pkg.Result{Result: res}, nil
}

// TemplateFile renders the local file "template", relative to "path" when given.
func TemplateFile(t *pkg.Task) (*pkg.Result, error) {
	name, err := requireParam(t, "template")
	if err != nil {
		return nil, err
	}
	if dir := t.Params.String("path", ""); dir != "" {
		name = filepath.Join(dir, name)
	}
	contents, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", name, err)
	}
	res, err := render(t, string(contents))
	if err != nil {
		return nil, fmt.Errorf("failed to render template file %s: %w", name, err)
	}
	return &pkg.Result{Result: res}, nil
}
