package cli

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kdag/internal/server"
	"github.com/matzehuels/kdag/pkg/config"
	"github.com/matzehuels/kdag/pkg/observability/prom"
)

const persistTimeout = 5 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		projectID string
		origins   []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local bridge server for a webview renderer",
		Long: `Run the local bridge server for a webview renderer.

The renderer posts node measurements and viewport changes to /api/layout
and receives routed edges on /ws. Mode layouts are saved to the configured
snapshot backend when the project changes and on shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			if addr == "" {
				addr = c.cfg.Server.Addr
			}

			client, err := c.newClient()
			if err != nil {
				return err
			}
			snaps := c.openSnapshots(ctx)
			defer snaps.Close()

			sess := c.newSession(client, snaps)
			if projectID != "" {
				p, err := sess.LoadProject(ctx, projectID)
				if err != nil {
					return err
				}
				printInfo("Loaded %s (%d nodes, %d edges)", p.Name, len(p.Nodes()), len(p.Edges))
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			prom.New(reg).Install()

			srv := server.New(sess,
				server.WithLogger(logger),
				server.WithGatherer(reg),
				server.WithOriginPatterns(origins...),
			)
			serveErr := srv.ListenAndServe(ctx, addr)

			// ctx is already cancelled on shutdown; persisting needs its own deadline.
			pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := sess.PersistModes(pctx); err != nil {
				logger.Warn("save mode layouts", "err", err)
			}
			return serveErr
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+config.DefaultServerAddr+")")
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "load this project on startup")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "extra websocket origin patterns, e.g. localhost:5173")
	return cmd
}
