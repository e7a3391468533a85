package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/AlexanderGrooff/hostrun/pkg/common"
	"github.com/AlexanderGrooff/hostrun/pkg/config"
	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

// scriptGroup is a group as printed by an Ansible-style inventory script.
type scriptGroup struct {
	Hosts    []string               `json:"hosts"`
	Children []string               `json:"children"`
	Vars     map[string]interface{} `json:"vars"`
}

type scriptMeta struct {
	Hostvars map[string]map[string]interface{} `json:"hostvars"`
}

// LoadScriptInventory runs options.Script with --list and parses its JSON output.
func LoadScriptInventory(ctx context.Context, options config.InventoryOptions) (*Inventory, error) {
	if options.Script == "" {
		return nil, errors.New("inventory.options.script is not set")
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, options.Script, "--list")
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("inventory script %s failed: %w: %s", options.Script, err, strings.TrimSpace(stderr.String()))
	}
	inv, err := ParseScriptOutput(out)
	if err != nil {
		return nil, fmt.Errorf("failed to parse output of %s: %w", options.Script, err)
	}
	return inv, nil
}

// ParseScriptOutput converts the output of an inventory script into an inventory.
// Vars of the "all" group become the defaults, "ungrouped" is ignored. Hosts are
// sorted by name and list their groups sorted by name.
func ParseScriptOutput(data []byte) (*Inventory, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse inventory JSON: %w", err)
	}

	var meta scriptMeta
	if m, ok := raw["_meta"]; ok {
		if err := json.Unmarshal(m, &meta); err != nil {
			return nil, fmt.Errorf("failed to parse _meta: %w", err)
		}
	}
	hostvars := meta.Hostvars
	if hostvars == nil {
		hostvars = make(map[string]map[string]interface{})
	}

	groupNames := make([]string, 0, len(raw))
	parsed := make(map[string]scriptGroup, len(raw))
	for name, msg := range raw {
		if name == "_meta" {
			continue
		}
		var g scriptGroup
		if err := json.Unmarshal(msg, &g); err != nil {
			// A group may also be a plain list of hosts.
			if err := json.Unmarshal(msg, &g.Hosts); err != nil {
				return nil, fmt.Errorf("failed to parse group %s: %w", name, err)
			}
		}
		parsed[name] = g
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	defaults := &types.Defaults{}
	groups := make(map[string]*types.Group)
	hostGroups := make(map[string][]string)
	for _, name := range groupNames {
		g := parsed[name]
		for _, h := range g.Hosts {
			if _, ok := hostvars[h]; !ok {
				hostvars[h] = nil
			}
			if name != "all" && name != "ungrouped" {
				hostGroups[h] = append(hostGroups[h], name)
			}
		}
		switch name {
		case "all":
			defaults.Element = elementFromVars(g.Vars)
		case "ungrouped":
		default:
			groups[name] = &types.Group{Element: elementFromVars(g.Vars)}
		}
	}
	for _, name := range groupNames {
		if name == "all" || name == "ungrouped" {
			continue
		}
		for _, child := range parsed[name].Children {
			if child == "all" || child == "ungrouped" {
				continue
			}
			g, ok := groups[child]
			if !ok {
				g = &types.Group{}
				groups[child] = g
			}
			g.GroupNames = append(g.GroupNames, name)
		}
	}

	hostNames := make([]string, 0, len(hostvars))
	for name := range hostvars {
		hostNames = append(hostNames, name)
	}
	sort.Strings(hostNames)
	hosts := make([]*types.Host, 0, len(hostNames))
	for _, name := range hostNames {
		hosts = append(hosts, &types.Host{
			Name:       name,
			Element:    elementFromVars(hostvars[name]),
			GroupNames: hostGroups[name],
		})
	}

	common.LogDebug("Parsed inventory script output", map[string]interface{}{
		"hosts_count":  len(hosts),
		"groups_count": len(groups),
	})
	return New(hosts, groups, defaults)
}

// elementFromVars moves the well-known connection variables into their fields
// and keeps everything else as data.
func elementFromVars(vars map[string]interface{}) types.Element {
	e := types.Element{Data: make(map[string]interface{}, len(vars))}
	for k, v := range vars {
		switch k {
		case "ansible_host":
			e.Hostname = fmt.Sprint(v)
		case "ansible_port":
			if n, ok := common.NumericValue(v); ok {
				e.Port = int(n)
			}
		case "ansible_user":
			e.Username = fmt.Sprint(v)
		case "ansible_password":
			e.Password = fmt.Sprint(v)
		case "ansible_network_os", "platform":
			e.Platform = fmt.Sprint(v)
		default:
			e.Data[k] = v
		}
	}
	return e
}
