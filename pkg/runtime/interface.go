package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/AlexanderGrooff/hostrun/pkg/config"
	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

// Connection is an open channel to a host that tasks can run commands and move files over.
type Connection interface {
	ExecuteCommand(ctx context.Context, command string, opts *CommandOptions) (*CommandResult, error)
	WriteFile(filename string, data string) error
	ReadFile(filename string) ([]byte, error)
	Close() error
}

// Opener opens a connection with the resolved parameters of a host.
type Opener func(params types.ConnectionOptions, cfg config.SSHConfig) (Connection, error)

var (
	openersMu sync.RWMutex
	openers   = map[string]Opener{}
)

func init() {
	Register("local", func(types.ConnectionOptions, config.SSHConfig) (Connection, error) {
		return NewLocalConnection(), nil
	})
	Register("ssh", func(params types.ConnectionOptions, cfg config.SSHConfig) (Connection, error) {
		return NewSSHConnection(params, cfg)
	})
}

// Register makes a connection plugin available under name.
func Register(name string, opener Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[name] = opener
}

// Plugins returns the registered connection plugin names.
func Plugins() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()
	names := make([]string, 0, len(openers))
	for n := range openers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open opens a connection using the named plugin.
func Open(plugin string, params types.ConnectionOptions, cfg config.SSHConfig) (Connection, error) {
	openersMu.RLock()
	opener, ok := openers[plugin]
	openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("connection plugin %q not registered (available: %v)", plugin, Plugins())
	}
	return opener(params, cfg)
}
