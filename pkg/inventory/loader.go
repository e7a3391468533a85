package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AlexanderGrooff/hostrun/pkg/common"
	"github.com/AlexanderGrooff/hostrun/pkg/config"
	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

// Loader builds an inventory from plugin options.
type Loader func(ctx context.Context, options config.InventoryOptions) (*Inventory, error)

// TransformFunc adjusts each host after loading, e.g. to inject credentials.
type TransformFunc func(host *types.Host)

var (
	loadersMu sync.RWMutex
	loaders   = map[string]Loader{}
)

func init() {
	Register("SimpleInventory", LoadSimpleInventory)
	Register("ScriptInventory", LoadScriptInventory)
}

// Register makes an inventory plugin available under name.
func Register(name string, loader Loader) {
	loadersMu.Lock()
	defer loadersMu.Unlock()
	loaders[name] = loader
}

// Plugins returns the registered plugin names.
func Plugins() []string {
	loadersMu.RLock()
	defer loadersMu.RUnlock()
	names := make([]string, 0, len(loaders))
	for n := range loaders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load runs the configured inventory plugin and applies transforms to every host.
func Load(ctx context.Context, cfg config.InventoryConfig, transforms ...TransformFunc) (*Inventory, error) {
	loadersMu.RLock()
	loader, ok := loaders[cfg.Plugin]
	loadersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("inventory plugin %q not registered (available: %v)", cfg.Plugin, Plugins())
	}

	common.LogDebug("Loading inventory", map[string]interface{}{
		"plugin":        cfg.Plugin,
		"host_file":     cfg.Options.HostFile,
		"group_file":    cfg.Options.GroupFile,
		"defaults_file": cfg.Options.DefaultsFile,
	})
	inv, err := loader(ctx, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("inventory plugin %s failed: %w", cfg.Plugin, err)
	}
	for _, h := range inv.Hosts() {
		for _, transform := range transforms {
			transform(h)
		}
	}
	common.LogInfo("Loaded inventory", map[string]interface{}{
		"plugin": cfg.Plugin,
		"hosts":  inv.Len(),
		"groups": len(inv.Groups),
	})
	return inv, nil
}

// LoadSimpleInventory reads hosts, groups and defaults from three YAML documents.
// Only the host file is required.
func LoadSimpleInventory(ctx context.Context, options config.InventoryOptions) (*Inventory, error) {
	hostData, err := os.ReadFile(options.HostFile)
	if err != nil {
		return nil, fmt.Errorf("error reading host file: %w", err)
	}
	groupData, err := readOptional(options.GroupFile)
	if err != nil {
		return nil, fmt.Errorf("error reading group file: %w", err)
	}
	defaultsData, err := readOptional(options.DefaultsFile)
	if err != nil {
		return nil, fmt.Errorf("error reading defaults file: %w", err)
	}
	return Parse(hostData, groupData, defaultsData)
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		common.LogDebug("Optional inventory file not found", map[string]interface{}{"file": path})
		return nil, nil
	}
	return data, err
}

// Parse builds an inventory from YAML documents, keeping the host order of hostData.
func Parse(hostData, groupData, defaultsData []byte) (*Inventory, error) {
	var hostsNode yaml.Node
	if err := yaml.Unmarshal(hostData, &hostsNode); err != nil {
		return nil, fmt.Errorf("failed to parse hosts: %w", err)
	}
	hosts, err := decodeHosts(&hostsNode)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*types.Group)
	if len(groupData) > 0 {
		if err := yaml.Unmarshal(groupData, &groups); err != nil {
			return nil, fmt.Errorf("failed to parse groups: %w", err)
		}
	}
	for name, g := range groups {
		if g == nil {
			groups[name] = &types.Group{}
		}
	}

	defaults := &types.Defaults{}
	if len(defaultsData) > 0 {
		if err := yaml.Unmarshal(defaultsData, defaults); err != nil {
			return nil, fmt.Errorf("failed to parse defaults: %w", err)
		}
	}
	return New(hosts, groups, defaults)
}

func decodeHosts(doc *yaml.Node) ([]*types.Host, error) {
	if doc.Kind == 0 {
		return nil, nil
	}
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("hosts document must be a mapping, got line %d", root.Line)
	}

	hosts := make([]*types.Host, 0, len(root.Content)/2)
	for idx := 0; idx+1 < len(root.Content); idx += 2 {
		keyNode, valueNode := root.Content[idx], root.Content[idx+1]
		host := &types.Host{}
		if valueNode.Kind != yaml.ScalarNode || valueNode.Tag != "!!null" {
			if err := valueNode.Decode(host); err != nil {
				return nil, fmt.Errorf("failed to parse host %s: %w", keyNode.Value, err)
			}
		}
		host.Name = keyNode.Value
		hosts = append(hosts, host)
	}
	return hosts, nil
}
