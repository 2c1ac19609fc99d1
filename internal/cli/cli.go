// Package cli implements the kdag command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kdag/pkg/api"
	"github.com/matzehuels/kdag/pkg/buildinfo"
	"github.com/matzehuels/kdag/pkg/config"
	"github.com/matzehuels/kdag/pkg/snapshot"
	"github.com/matzehuels/kdag/pkg/workspace"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "kdag"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	apiURL     string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "kdag routes knowledge-graph edges for an outline editor",
		Long:         `kdag talks to a knowledge DAG backend, tracks measured node positions and routes curved, labeled edges between them. It can run as a local bridge server for a webview renderer.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/kdag/config.toml)")
	root.PersistentFlags().StringVar(&c.apiURL, "api", "", "backend base URL (overrides config and "+config.EnvAPIURL+")")

	root.AddCommand(c.projectsCommand())
	root.AddCommand(c.edgesCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

// =============================================================================
// Factories
// =============================================================================

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.API.URL = c.apiURL
	}
	c.cfg = cfg
	c.Logger.Debug("config loaded", "api", cfg.API.URL, "snapshot", cfg.Snapshot.Backend)
	return nil
}

// newClient creates a backend client from the loaded config.
func (c *CLI) newClient() (*api.Client, error) {
	return api.New(c.cfg.API.URL,
		api.WithTimeout(c.cfg.API.Timeout.Duration),
		api.WithLogger(c.Logger),
	)
}

// openSnapshots opens the configured snapshot backend. A backend that fails
// to open degrades to the no-op store so layout work can continue.
func (c *CLI) openSnapshots(ctx context.Context) snapshot.Store {
	store, err := snapshot.Open(ctx, c.cfg.Snapshot)
	if err != nil {
		c.Logger.Warn("mode layout snapshots disabled", "backend", c.cfg.Snapshot.Backend, "err", err)
		return snapshot.Null{}
	}
	return store
}

// newSession wires a workspace session to the backend and snapshot store.
func (c *CLI) newSession(client *api.Client, snaps snapshot.Store) *workspace.Session {
	return workspace.New(client,
		workspace.WithEpsilon(c.cfg.Layout.Epsilon),
		workspace.WithSnapshots(snaps),
		workspace.WithRetry(c.cfg.RetryPolicy()),
		workspace.WithLogger(c.Logger),
	)
}
