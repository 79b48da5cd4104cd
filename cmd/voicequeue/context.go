package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"voicequeue/internal/config"
	"voicequeue/internal/ipc"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	socket string
	config string
	json   bool
}

type commandContext struct {
	flags globalFlags

	loadOnce sync.Once
	cfg      *config.Config
	cfgErr   error
}

func (c *commandContext) configPath() string {
	return strings.TrimSpace(c.flags.config)
}

func (c *commandContext) jsonOutput() bool {
	return c.flags.json
}

// ensureConfig loads configuration once per invocation and creates the
// directories it names.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.loadOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err == nil {
			err = cfg.EnsureDirectories()
		}
		if err != nil {
			c.cfgErr = err
			return
		}
		c.cfg = cfg
	})
	return c.cfg, c.cfgErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// socketPath prefers --socket, then the configured socket, then the default
// location under the default data directory.
func (c *commandContext) socketPath() string {
	if socket := strings.TrimSpace(c.flags.socket); socket != "" {
		return socket
	}
	if cfg := c.configValue(); cfg != nil && cfg.Paths.SocketPath != "" {
		return cfg.Paths.SocketPath
	}
	defaults := config.Default()
	if dataDir, err := config.ExpandPath(defaults.Paths.DataDir); err == nil && dataDir != "" {
		return filepath.Join(dataDir, "voicequeue.sock")
	}
	return filepath.Join(os.TempDir(), "voicequeue.sock")
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, wrapDialError(err, socket)
	}
	return client, nil
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT), os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `voicequeue start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; is the daemon running? try `voicequeue start`", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
