package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kdag/pkg/geom"
	"github.com/matzehuels/kdag/pkg/modecache"
)

// snapshotCommand creates the snapshot command for inspecting saved mode
// layouts.
func (c *CLI) snapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect or clear saved mode layouts",
	}
	cmd.AddCommand(c.snapshotShowCommand())
	cmd.AddCommand(c.snapshotClearCommand())
	return cmd
}

func (c *CLI) snapshotShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:               "show <project-id>",
		Short:             "Print the mode layouts saved for a project",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeProjectIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snaps := c.openSnapshots(ctx)
			defer snaps.Close()

			snap, ok, err := snaps.Load(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				if !ok {
					snap = modecache.Snapshot{}
				}
				return writeJSON(out, snap)
			}
			if !ok || snap.Empty() {
				fmt.Fprintln(out, StyleDim.Render("no saved layouts for "+args[0]))
				return nil
			}
			writeSnapshot(out, snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func (c *CLI) snapshotClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "clear <project-id>",
		Short:             "Forget the mode layouts saved for a project",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeProjectIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snaps := c.openSnapshots(ctx)
			defer snaps.Close()
			if err := snaps.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Cleared mode layouts for %s", args[0])
			return nil
		},
	}
}

// writeSnapshot lists layouts grouped by entity type, ids sorted.
func writeSnapshot(w io.Writer, snap modecache.Snapshot) {
	for _, typ := range modecache.EntityTypes {
		layouts := snap[typ]
		if len(layouts) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", StyleTitle.Render(string(typ)), StyleDim.Render(fmt.Sprintf("(%d)", len(layouts))))

		ids := make([]string, 0, len(layouts))
		for id := range layouts {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			l := layouts[id]
			fmt.Fprintf(w, "  %-24s %s\n", id, StyleNumber.Render(fmt.Sprintf("%s, %s  %s×%s",
				geom.FormatFloat(l.X), geom.FormatFloat(l.Y),
				geom.FormatFloat(l.Width), geom.FormatFloat(l.Height))))
		}
	}
}
