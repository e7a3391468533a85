package tasks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexanderGrooff/hostrun/pkg"
	"github.com/AlexanderGrooff/hostrun/pkg/config"
	"github.com/AlexanderGrooff/hostrun/pkg/filter"
	"github.com/AlexanderGrooff/hostrun/pkg/inventory"
)

func testSession(t *testing.T) *pkg.Session {
	t.Helper()
	testdata := filepath.Join("..", "inventory", "testdata")
	inv, err := inventory.LoadSimpleInventory(context.Background(), config.InventoryOptions{
		HostFile:     filepath.Join(testdata, "hosts.yaml"),
		GroupFile:    filepath.Join(testdata, "groups.yaml"),
		DefaultsFile: filepath.Join(testdata, "defaults.yaml"),
	})
	require.NoError(t, err)
	s, err := pkg.Init(context.Background(), config.Default(), pkg.WithInventory(inv), pkg.UseRunner(pkg.SerialRunner{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.CloseConnections() })
	return s.Filter(filter.F("name", "host1.cmh"))
}

func runOne(t *testing.T, s *pkg.Session, fn pkg.TaskFunc, params pkg.Params) *pkg.MultiResult {
	t.Helper()
	result, err := s.Run(context.Background(), pkg.NewTask(fn, params), pkg.OnFailed(true))
	require.NoError(t, err)
	mr, err := result.Get("host1.cmh")
	require.NoError(t, err)
	return mr
}

func TestLookup(t *testing.T) {
	fn, err := Lookup("echo_data")
	require.NoError(t, err)
	assert.NotNil(t, fn)

	_, err = Lookup("reboot")
	assert.ErrorContains(t, err, "unknown task")
	assert.Contains(t, Names(), "write_file")
	assert.Len(t, Names(), 8)
}

func TestEchoData(t *testing.T) {
	mr := runOne(t, testSession(t), EchoData, pkg.Params{"x": 1, "y": "two"})
	assert.Equal(t, map[string]interface{}{"x": 1, "y": "two"}, mr.Result())
	assert.Equal(t, "EchoData", mr.At(0).Name)
}

func TestCommand(t *testing.T) {
	tests := []struct {
		name       string
		params     pkg.Params
		wantStdout string
		wantFailed bool
	}{
		{
			name:       "plain",
			params:     pkg.Params{"command": "echo hello"},
			wantStdout: "hello\n",
		},
		{
			name:       "shell",
			params:     pkg.Params{"command": "echo $((1 + 2))", "shell": true},
			wantStdout: "3\n",
		},
		{
			name:       "non-zero exit",
			params:     pkg.Params{"command": "false"},
			wantFailed: true,
		},
		{
			name:       "missing command",
			params:     pkg.Params{},
			wantFailed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := runOne(t, testSession(t), Command, tt.params)
			assert.Equal(t, tt.wantFailed, mr.Failed())
			if !tt.wantFailed {
				assert.Equal(t, tt.wantStdout, mr.At(0).Stdout)
				assert.True(t, mr.Changed())
			}
		})
	}
}

func TestCommandDryRun(t *testing.T) {
	s := testSession(t)
	s.Data.DryRun = true
	mr := runOne(t, s, Command, pkg.Params{"command": "false"})
	assert.False(t, mr.Failed())
	assert.False(t, mr.Changed())
	assert.Equal(t, "skipped in dry-run: false", mr.Result())
}

func TestTemplateString(t *testing.T) {
	mr := runOne(t, testSession(t), TemplateString, pkg.Params{
		"template": "{{ greeting }} from {{ site }} at {{ domain }}",
		"greeting": "hi",
	})
	require.False(t, mr.Failed(), "%v", mr.Exception())
	assert.Equal(t, "hi from cmh at acme.local", mr.Result())
}

func TestTemplateFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "motd.j2"), []byte("role={{ role }}\n"), 0644))

	mr := runOne(t, testSession(t), TemplateFile, pkg.Params{"template": "motd.j2", "path": dir})
	require.False(t, mr.Failed(), "%v", mr.Exception())
	assert.Equal(t, "role=host\n", mr.Result())

	mr = runOne(t, testSession(t), TemplateFile, pkg.Params{"template": "missing.j2", "path": dir})
	assert.True(t, mr.Failed())
}

func TestWriteFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "etc", "motd")
	s := testSession(t)

	mr := runOne(t, s, WriteFile, pkg.Params{"filename": dest, "content": "hello\n"})
	require.False(t, mr.Failed(), "%v", mr.Exception())
	assert.True(t, mr.Changed())
	assert.Contains(t, mr.At(0).Diff, "+hello")
	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(contents))

	mr = runOne(t, s, WriteFile, pkg.Params{"filename": dest, "content": "hello\n"})
	assert.False(t, mr.Changed())
	assert.Empty(t, mr.At(0).Diff)

	mr = runOne(t, s, WriteFile, pkg.Params{"filename": dest, "content": "world\n", "append": true})
	assert.True(t, mr.Changed())
	contents, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(contents))

	s.Data.DryRun = true
	mr = runOne(t, s, WriteFile, pkg.Params{"filename": dest, "content": "replaced\n"})
	assert.True(t, mr.Changed())
	assert.Contains(t, mr.At(0).Diff, "-hello")
	assert.Contains(t, mr.At(0).Diff, "+replaced")
	contents, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(contents))
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dest := filepath.Join(dir, "out", "dest.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

	mr := runOne(t, testSession(t), Upload, pkg.Params{"src": src, "dest": dest})
	require.False(t, mr.Failed(), "%v", mr.Exception())
	require.Equal(t, 2, mr.Len())
	assert.Equal(t, "write_file", mr.At(1).Name)
	assert.Equal(t, pkg.SeverityDebug, mr.At(1).Severity)
	assert.True(t, mr.At(0).Changed)

	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(contents))

	var visible []string
	mr.Visit(pkg.SeverityInfo, func(r *pkg.Result) { visible = append(visible, r.Name) })
	assert.Equal(t, []string{"Upload"}, visible)
}

func TestLoadData(t *testing.T) {
	dir := t.TempDir()
	yamlFile := filepath.Join(dir, "vars.yaml")
	jsonFile := filepath.Join(dir, "vars.json")
	require.NoError(t, os.WriteFile(yamlFile, []byte("vlans:\n  - 10\n  - 20\nname: core\n"), 0644))
	require.NoError(t, os.WriteFile(jsonFile, []byte(`{"vlans": [10, 20], "name": "core"}`), 0644))

	mr := runOne(t, testSession(t), LoadYAML, pkg.Params{"file": yamlFile})
	require.False(t, mr.Failed(), "%v", mr.Exception())
	assert.Equal(t, map[string]interface{}{"vlans": []interface{}{10, 20}, "name": "core"}, mr.Result())

	mr = runOne(t, testSession(t), LoadJSON, pkg.Params{"file": jsonFile})
	require.False(t, mr.Failed(), "%v", mr.Exception())
	assert.Equal(t, map[string]interface{}{"vlans": []interface{}{10.0, 20.0}, "name": "core"}, mr.Result())

	require.NoError(t, os.WriteFile(jsonFile, []byte(`{broken`), 0644))
	mr = runOne(t, testSession(t), LoadJSON, pkg.Params{"file": jsonFile})
	assert.True(t, mr.Failed())
	assert.True(t, strings.Contains(mr.Exception().Error(), "failed to parse"))
}
