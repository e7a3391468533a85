package inventory

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AlexanderGrooff/hostrun/pkg/common"
	"github.com/AlexanderGrooff/hostrun/pkg/filter"
	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

var (
	ErrHostNotFound  = errors.New("host not found in inventory")
	ErrGroupNotFound = errors.New("group not found in inventory")
	ErrUnknownGroup  = errors.New("unknown group reference")
	ErrGroupCycle    = errors.New("group inheritance cycle")
)

// Inventory owns hosts, groups and defaults. Host order is the order of the source document.
type Inventory struct {
	names    []string
	hosts    map[string]*types.Host
	Groups   map[string]*types.Group
	Defaults *types.Defaults
}

// New builds an inventory from already-linked hosts. Missing groups are looked up by name
// from each host's GroupNames when its Groups slice is empty.
func New(hosts []*types.Host, groups map[string]*types.Group, defaults *types.Defaults) (*Inventory, error) {
	if groups == nil {
		groups = make(map[string]*types.Group)
	}
	if defaults == nil {
		defaults = &types.Defaults{}
	}
	defaults.Prepare()

	inv := &Inventory{
		hosts:    make(map[string]*types.Host, len(hosts)),
		Groups:   groups,
		Defaults: defaults,
	}
	for name, g := range groups {
		g.Name = name
		g.Prepare()
	}
	for _, h := range hosts {
		if _, exists := inv.hosts[h.Name]; exists {
			return nil, fmt.Errorf("duplicate host %q in inventory", h.Name)
		}
		h.Prepare()
		h.Defaults = defaults
		inv.names = append(inv.names, h.Name)
		inv.hosts[h.Name] = h
	}
	if err := inv.link(); err != nil {
		return nil, err
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

// linkedNames returns the names of groups in order.
func linkedNames(groups []*types.Group) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names
}

// link resolves GroupNames into group pointers. Pre-linked hosts and groups
// get their GroupNames rewritten from the pointers.
func (i *Inventory) link() error {
	resolve := func(owner string, names []string) ([]*types.Group, error) {
		groups := make([]*types.Group, 0, len(names))
		for _, n := range names {
			g, ok := i.Groups[n]
			if !ok {
				return nil, fmt.Errorf("%w: %s references group %q", ErrUnknownGroup, owner, n)
			}
			groups = append(groups, g)
		}
		return groups, nil
	}
	for _, name := range i.groupNames() {
		g := i.Groups[name]
		if len(g.Groups) > 0 {
			g.GroupNames = linkedNames(g.Groups)
			continue
		}
		parents, err := resolve("group "+name, g.GroupNames)
		if err != nil {
			return err
		}
		g.Groups = parents
	}
	for _, name := range i.names {
		h := i.hosts[name]
		if len(h.Groups) > 0 {
			h.GroupNames = linkedNames(h.Groups)
			continue
		}
		groups, err := resolve("host "+name, h.GroupNames)
		if err != nil {
			return err
		}
		h.Groups = groups
	}
	return nil
}

// Validate rejects cyclic group graphs.
func (i *Inventory) Validate() error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*types.Group]int)
	var visit func(g *types.Group, trail []string) error
	visit = func(g *types.Group, trail []string) error {
		switch state[g] {
		case visiting:
			return fmt.Errorf("%w: %v -> %s", ErrGroupCycle, trail, g.Name)
		case done:
			return nil
		}
		state[g] = visiting
		for _, parent := range g.Groups {
			if err := visit(parent, append(trail, g.Name)); err != nil {
				return err
			}
		}
		state[g] = done
		return nil
	}
	for _, name := range i.groupNames() {
		if err := visit(i.Groups[name], nil); err != nil {
			return err
		}
	}
	return nil
}

func (i *Inventory) groupNames() []string {
	names := make([]string, 0, len(i.Groups))
	for n := range i.Groups {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Names returns host names in inventory order.
func (i *Inventory) Names() []string {
	return append([]string(nil), i.names...)
}

// Hosts returns hosts in inventory order.
func (i *Inventory) Hosts() []*types.Host {
	hosts := make([]*types.Host, len(i.names))
	for idx, n := range i.names {
		hosts[idx] = i.hosts[n]
	}
	return hosts
}

func (i *Inventory) Len() int {
	return len(i.names)
}

// Host returns a host by name from the inventory
func (i *Inventory) Host(name string) (*types.Host, error) {
	h, ok := i.hosts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHostNotFound, name)
	}
	return h, nil
}

// Group returns a group by name from the inventory
func (i *Inventory) Group(name string) (*types.Group, error) {
	g, ok := i.Groups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, name)
	}
	return g, nil
}

// Filter returns a view containing the hosts matched by every predicate.
// Hosts, groups and defaults are shared with the receiver.
func (i *Inventory) Filter(predicates ...filter.Predicate) *Inventory {
	view := &Inventory{
		hosts:    make(map[string]*types.Host),
		Groups:   i.Groups,
		Defaults: i.Defaults,
	}
	match := filter.And(predicates...)
	for _, name := range i.names {
		h := i.hosts[name]
		if match.Match(h) {
			view.names = append(view.names, name)
			view.hosts[name] = h
		}
	}
	common.LogDebug("Filtered inventory", map[string]interface{}{
		"filter":  match.String(),
		"matched": len(view.names),
		"total":   len(i.names),
	})
	return view
}

// ChildrenOfGroup returns the hosts that inherit from group, directly or through parents.
func (i *Inventory) ChildrenOfGroup(group string) []*types.Host {
	var children []*types.Host
	for _, h := range i.Hosts() {
		if h.HasParentGroup(group) {
			children = append(children, h)
		}
	}
	return children
}
