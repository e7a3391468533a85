package tasks

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AlexanderGrooff/hostrun/pkg"
)

func readLocal(t *pkg.Task) ([]byte, string, error) {
	file, err := requireParam(t, "file")
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, file, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return data, file, nil
}

// LoadYAML decodes the local YAML "file" into the result.
func LoadYAML(t *pkg.Task) (*pkg.Result, error) {
	data, file, err := readLocal(t)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	return &pkg.Result{Result: out}, nil
}

// LoadJSON decodes the local JSON "file" into the result.
func LoadJSON(t *pkg.Task) (*pkg.Result, error) {
	data, file, err := readLocal(t)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	return &pkg.Result{Result: out}, nil
}
