package types

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned when a key is absent from a host, all of its groups and the defaults.
var ErrKeyNotFound = errors.New("key not found")

// ConnectionOptions overrides connection parameters for a single connection plugin.
type ConnectionOptions struct {
	Hostname string                 `yaml:"hostname"`
	Port     int                    `yaml:"port"`
	Username string                 `yaml:"username"`
	Password string                 `yaml:"password"`
	Platform string                 `yaml:"platform"`
	Extras   map[string]interface{} `yaml:"extras"`
}

// Element holds the attributes shared by hosts, groups and defaults.
type Element struct {
	Hostname          string                        `yaml:"hostname"`
	Port              int                           `yaml:"port"`
	Username          string                        `yaml:"username"`
	Password          string                        `yaml:"password"`
	Platform          string                        `yaml:"platform"`
	Data              map[string]interface{}        `yaml:"data"`
	ConnectionOptions map[string]*ConnectionOptions `yaml:"connection_options"`
}

// Defaults is the last level consulted when resolving a host attribute.
type Defaults struct {
	Element `yaml:",inline"`
}

// Group is a named bundle of attributes. Parent groups are listed nearest first.
type Group struct {
	Name       string `yaml:"-"`
	Element    `yaml:",inline"`
	GroupNames []string `yaml:"groups"`
	Groups     []*Group `yaml:"-"`
}

// Host represents a single managed device in the inventory
type Host struct {
	Name       string `yaml:"-"`
	Element    `yaml:",inline"`
	GroupNames []string  `yaml:"groups"`
	Groups     []*Group  `yaml:"-"`
	Defaults   *Defaults `yaml:"-"`
}

// Prepare initializes the element maps if they are nil
func (e *Element) Prepare() {
	if e.Data == nil {
		e.Data = make(map[string]interface{})
	}
	if e.ConnectionOptions == nil {
		e.ConnectionOptions = make(map[string]*ConnectionOptions)
	}
}

// String returns the host name as string representation
func (h *Host) String() string {
	return h.Name
}

func (g *Group) String() string {
	return g.Name
}

// appendElements walks the group and its parents depth-first, nearest first.
func (g *Group) appendElements(elems []*Element) []*Element {
	elems = append(elems, &g.Element)
	for _, parent := range g.Groups {
		elems = parent.appendElements(elems)
	}
	return elems
}

// elements returns every element consulted for this host, highest precedence first.
func (h *Host) elements() []*Element {
	elems := []*Element{&h.Element}
	for _, g := range h.Groups {
		elems = g.appendElements(elems)
	}
	if h.Defaults != nil {
		elems = append(elems, &h.Defaults.Element)
	}
	return elems
}

// Get resolves key from the host data, then each group in declared order, then the defaults.
func (h *Host) Get(key string) (interface{}, error) {
	for _, e := range h.elements() {
		if v, ok := e.Data[key]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %q on host %s", ErrKeyNotFound, key, h.Name)
}

// GetOr is Get with a fallback for missing keys.
func (h *Host) GetOr(key string, fallback interface{}) interface{} {
	v, err := h.Get(key)
	if err != nil {
		return fallback
	}
	return v
}

// Has reports whether key resolves anywhere in the host's inheritance chain.
func (h *Host) Has(key string) bool {
	_, err := h.Get(key)
	return err == nil
}

// Items returns the fully resolved data of the host.
func (h *Host) Items() map[string]interface{} {
	elems := h.elements()
	items := make(map[string]interface{})
	for i := len(elems) - 1; i >= 0; i-- {
		for k, v := range elems[i].Data {
			items[k] = v
		}
	}
	return items
}

// HasParentGroup reports whether the host belongs to name directly or through a parent group.
func (h *Host) HasParentGroup(name string) bool {
	for _, g := range h.Groups {
		if g.hasAncestor(name) {
			return true
		}
	}
	return false
}

func (g *Group) hasAncestor(name string) bool {
	if g.Name == name {
		return true
	}
	for _, parent := range g.Groups {
		if parent.hasAncestor(name) {
			return true
		}
	}
	return false
}

// ResolvedHostname returns the inherited hostname, falling back to the host name.
func (h *Host) ResolvedHostname() string {
	for _, e := range h.elements() {
		if e.Hostname != "" {
			return e.Hostname
		}
	}
	return h.Name
}

func (h *Host) ResolvedPort() int {
	for _, e := range h.elements() {
		if e.Port != 0 {
			return e.Port
		}
	}
	return 0
}

func (h *Host) ResolvedUsername() string {
	for _, e := range h.elements() {
		if e.Username != "" {
			return e.Username
		}
	}
	return ""
}

func (h *Host) ResolvedPassword() string {
	for _, e := range h.elements() {
		if e.Password != "" {
			return e.Password
		}
	}
	return ""
}

func (h *Host) ResolvedPlatform() string {
	for _, e := range h.elements() {
		if e.Platform != "" {
			return e.Platform
		}
	}
	return ""
}

// ConnectionParams resolves the parameters for the given connection plugin.
// Plugin specific options win over the base attributes at any level.
func (h *Host) ConnectionParams(plugin string) ConnectionOptions {
	params := ConnectionOptions{
		Hostname: h.ResolvedHostname(),
		Port:     h.ResolvedPort(),
		Username: h.ResolvedUsername(),
		Password: h.ResolvedPassword(),
		Platform: h.ResolvedPlatform(),
		Extras:   make(map[string]interface{}),
	}

	var opts []*ConnectionOptions
	for _, e := range h.elements() {
		if co, ok := e.ConnectionOptions[plugin]; ok && co != nil {
			opts = append(opts, co)
		}
	}
	// opts is ordered highest precedence first; the first non-empty value wins.
	set := map[string]bool{}
	for _, co := range opts {
		if co.Hostname != "" && !set["hostname"] {
			params.Hostname, set["hostname"] = co.Hostname, true
		}
		if co.Port != 0 && !set["port"] {
			params.Port, set["port"] = co.Port, true
		}
		if co.Username != "" && !set["username"] {
			params.Username, set["username"] = co.Username, true
		}
		if co.Password != "" && !set["password"] {
			params.Password, set["password"] = co.Password, true
		}
		if co.Platform != "" && !set["platform"] {
			params.Platform, set["platform"] = co.Platform, true
		}
	}
	for i := len(opts) - 1; i >= 0; i-- {
		for k, v := range opts[i].Extras {
			params.Extras[k] = v
		}
	}
	return params
}
