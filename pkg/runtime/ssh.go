package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"sync"
	"time"

	desopssshpool "github.com/desops/sshpool"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/AlexanderGrooff/hostrun/pkg/common"
	"github.com/AlexanderGrooff/hostrun/pkg/config"
	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

const defaultSSHPort = 22

// SSHConnection runs commands over pooled SSH sessions and moves files over SFTP.
type SSHConnection struct {
	Host       string
	addr       string
	pool       *desopssshpool.Pool
	mu         sync.Mutex
	sftpClient *sftp.Client
}

// NewSSHConnection builds the client configuration and pool for a host. The TCP
// connection is established lazily on first use.
func NewSSHConnection(params types.ConnectionOptions, cfg config.SSHConfig) (*SSHConnection, error) {
	clientConfig, err := clientConfig(params, cfg)
	if err != nil {
		return nil, err
	}

	port := params.Port
	if port == 0 {
		port = defaultSSHPort
	}
	maxSessions := cfg.MaxSessions
	if maxSessions < 1 {
		maxSessions = 10
	}
	poolConfig := &desopssshpool.PoolConfig{
		MaxSessions:       maxSessions,
		MaxConnections:    1,
		SessionCloseDelay: 20 * time.Millisecond,
	}
	return &SSHConnection{
		Host: params.Hostname,
		addr: net.JoinHostPort(params.Hostname, strconv.Itoa(port)),
		pool: desopssshpool.New(clientConfig, poolConfig),
	}, nil
}

func clientConfig(params types.ConnectionOptions, cfg config.SSHConfig) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod
	if cfg.KeyFile != "" {
		keyBytes, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read ssh key %s: %w", cfg.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ssh key %s: %w", cfg.KeyFile, err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}
	if params.Password != "" {
		authMethods = append(authMethods, ssh.Password(params.Password))
	}
	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no ssh authentication method for %s: set a password or ssh.key_file", params.Hostname)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.StrictHostKeyChecking {
		if cfg.KnownHostsFile == "" {
			return nil, fmt.Errorf("ssh.strict_host_key_checking requires ssh.known_hosts_file")
		}
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts %s: %w", cfg.KnownHostsFile, err)
		}
		hostKeyCallback = cb
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ssh.ClientConfig{
		User:            params.Username,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

// ExecuteCommand runs command in a pooled session.
func (c *SSHConnection) ExecuteCommand(ctx context.Context, command string, opts *CommandOptions) (*CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	session, err := c.pool.Get(c.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get SSH session from pool for host %s: %w", c.Host, err)
	}
	defer session.Put()

	cmdToRun := buildCommand(command, opts)
	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	common.DebugOutput("Running remote command on %s: %s", c.Host, cmdToRun)
	err = session.Run(cmdToRun)
	if err != nil {
		rc := -1
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			rc = exitErr.ExitStatus()
		}
		return NewCommandResult(cmdToRun, rc, stdout.String(), stderr.String(),
			fmt.Errorf("failed to run remote command %q on host %s: %w", cmdToRun, c.Host, err)), nil
	}
	return NewCommandResult(cmdToRun, 0, stdout.String(), stderr.String(), nil), nil
}

func (c *SSHConnection) sftp() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sftpClient != nil {
		return c.sftpClient, nil
	}
	sftpSession, err := c.pool.GetSFTP(c.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get SFTP session from pool for host %s: %w", c.Host, err)
	}
	c.sftpClient = sftpSession.Client
	return c.sftpClient, nil
}

// WriteFile writes data to a remote file, creating parent directories.
func (c *SSHConnection) WriteFile(remotePath, data string) error {
	client, err := c.sftp()
	if err != nil {
		return err
	}
	remoteDir := path.Dir(remotePath)
	if err := client.MkdirAll(remoteDir); err != nil && !os.IsExist(err) {
		return fmt.Errorf("failed to create remote directory %s on %s: %w", remoteDir, c.Host, err)
	}
	f, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s on %s: %w", remotePath, c.Host, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			common.LogWarn("Failed to close remote file", common.Fields{
				"file":           remotePath,
				common.FieldHost: c.Host,
			}.WithError(err))
		}
	}()
	if _, err := f.Write([]byte(data)); err != nil {
		return fmt.Errorf("failed to write data to remote file %s on %s: %w", remotePath, c.Host, err)
	}
	return nil
}

// ReadFile reads a remote file.
func (c *SSHConnection) ReadFile(remotePath string) ([]byte, error) {
	client, err := c.sftp()
	if err != nil {
		return nil, err
	}
	f, err := client.Open(remotePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file %s on %s: %w", remotePath, c.Host, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			common.LogWarn("Failed to close remote file", common.Fields{
				"file":           remotePath,
				common.FieldHost: c.Host,
			}.WithError(err))
		}
	}()
	return io.ReadAll(f)
}

func (c *SSHConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sftpClient = nil
	c.pool.Close()
	return nil
}
