package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// burstWindow batches the write/chmod/rename bursts editors emit for one save.
const burstWindow = 50 * time.Millisecond

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var opts edgesOpts

	cmd := &cobra.Command{
		Use:   "watch <measurements.json|yaml>",
		Short: "Re-route edges whenever a measurement file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			r, err := c.newRouter(ctx, opts.projectID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return watchFile(ctx, logger, args[0], func() error {
				m, err := loadMeasurements(args[0])
				if err != nil {
					return err
				}
				rep := r.route(m)
				logger.Info("routed", "edges", len(rep.Edges), "dropped", len(rep.Dropped))
				return writeReport(out, rep, opts.json)
			})
		},
	}
	opts.register(cmd)
	return cmd
}

// watchFile calls onChange once immediately and again after every burst of
// writes to path, until ctx is done. The parent directory is watched so
// editors that save by rename keep being tracked. Errors from onChange are
// logged and do not stop the loop.
func watchFile(ctx context.Context, logger *log.Logger, path string, onChange func() error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	run := func() {
		if err := onChange(); err != nil {
			logger.Error("route failed", "file", path, "err", err)
		}
	}
	run()

	burst := time.NewTimer(0)
	<-burst.C
	defer burst.Stop()

	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("fsnotify watcher closed")
			}
			if filepath.Clean(ev.Name) != abs || ev.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("file event", "op", ev.Op.String(), "file", ev.Name)
			burst.Reset(burstWindow)
		case <-burst.C:
			logger.Info("detected change, re-routing", "file", path)
			run()
		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("fsnotify watcher closed")
			}
			logger.Warn("fsnotify error", "err", err)
		case <-ctx.Done():
			return nil
		}
	}
}
