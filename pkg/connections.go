package pkg

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/AlexanderGrooff/hostrun/pkg/common"
	"github.com/AlexanderGrooff/hostrun/pkg/config"
	"github.com/AlexanderGrooff/hostrun/pkg/runtime"
	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

// connectionCache keeps one open connection per host and plugin.
type connectionCache struct {
	mu    sync.Mutex
	ssh   config.SSHConfig
	conns map[string]runtime.Connection
}

func newConnectionCache(ssh config.SSHConfig) *connectionCache {
	return &connectionCache{ssh: ssh, conns: make(map[string]runtime.Connection)}
}

func connectionKey(host, plugin string) string {
	return fmt.Sprintf("%s/%s", host, plugin)
}

func (c *connectionCache) get(host *types.Host, plugin string) (runtime.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := connectionKey(host.Name, plugin)
	if conn, ok := c.conns[key]; ok {
		return conn, nil
	}
	conn, err := runtime.Open(plugin, host.ConnectionParams(plugin), c.ssh)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection to %s: %w", plugin, host.Name, err)
	}
	common.LogDebug("Opened connection", common.Fields{common.FieldHost: host.Name, "plugin": plugin})
	c.conns[key] = conn
	return conn, nil
}

// has reports whether a connection to host using plugin is open.
func (c *connectionCache) has(host, plugin string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.conns[connectionKey(host, plugin)]
	return ok
}

func (c *connectionCache) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	for key, conn := range c.conns {
		if cerr := conn.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close connection %s: %w", key, cerr))
		}
		delete(c.conns, key)
	}
	return err
}

func defaultSSHConfig() config.SSHConfig {
	return config.Default().SSH
}
