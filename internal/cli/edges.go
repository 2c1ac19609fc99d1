package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kdag/pkg/edges"
	"github.com/matzehuels/kdag/pkg/layout"
	"github.com/matzehuels/kdag/pkg/snapshot"
)

// edgesOpts holds the flags shared by the edges and watch commands.
type edgesOpts struct {
	json      bool   // emit the routing report as JSON
	projectID string // route this project's edges instead of the file's
}

func (o *edgesOpts) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.json, "json", false, "print the routing report as JSON")
	cmd.Flags().StringVarP(&o.projectID, "project", "p", "", "route the edges of this backend project")
}

// edgesCommand creates the edges command.
func (c *CLI) edgesCommand() *cobra.Command {
	var opts edgesOpts

	cmd := &cobra.Command{
		Use:   "edges <measurements.json|yaml>",
		Short: "Route edges from a recorded set of node measurements",
		Long: `Route edges from a recorded set of node measurements.

The file holds the canvas viewport, the measured rect of every node and,
unless --project is given, the edges to route:

  viewport:
    canvasOrigin: {top: 64, left: 240}
    scrollOffset: {x: 0, y: 120}
  rects:
    n1: {x: 300, y: 200, w: 160, h: 48}
    n2: {x: 620, y: 380, w: 160, h: 48}
  edges:
    - {source: n1, target: n2, label: requires}
    - [n2, n1]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.newRouter(cmd.Context(), opts.projectID)
			if err != nil {
				return err
			}
			m, err := loadMeasurements(args[0])
			if err != nil {
				return err
			}
			rep := r.route(m)
			return writeReport(cmd.OutOrStdout(), rep, opts.json)
		},
	}
	opts.register(cmd)
	return cmd
}

// router routes measurements either against the file's own edges or
// against a project loaded through a workspace session.
type router struct {
	epsilon float64
	route   func(m *measurements) edges.Report
}

// newRouter returns a router. With a project id it loads the project once
// and routes its edges on every call; otherwise each call routes the
// edges listed in the measurements.
func (c *CLI) newRouter(ctx context.Context, projectID string) (*router, error) {
	logger := loggerFromContext(ctx)
	r := &router{epsilon: c.cfg.Layout.Epsilon}

	if projectID == "" {
		r.route = func(m *measurements) edges.Report {
			store := layout.NewStore(layout.WithEpsilon(r.epsilon))
			m.apply(store)
			return edges.RouteReport(store, m.Edges)
		}
		return r, nil
	}

	client, err := c.newClient()
	if err != nil {
		return nil, err
	}
	sess := c.newSession(client, snapshot.Null{})

	spinner := newSpinner(ctx, "Loading project "+projectID+"...")
	spinner.Start()
	prog := newProgress(logger)
	p, err := sess.LoadProject(ctx, projectID)
	spinner.Stop()
	if err != nil {
		return nil, err
	}
	prog.done("project loaded", "project", p.ID, "edges", len(p.Edges))

	r.route = func(m *measurements) edges.Report {
		sess.Store().Reset()
		m.apply(sess.Store())
		return sess.RenderedReport()
	}
	return r, nil
}

// writeReport prints rep as indented JSON or as a table plus a list of
// dropped edges.
func writeReport(w io.Writer, rep edges.Report, asJSON bool) error {
	if asJSON {
		return writeJSON(w, rep)
	}

	if len(rep.Edges) == 0 {
		fmt.Fprintln(w, StyleDim.Render("no drawable edges"))
	} else {
		fmt.Fprintln(w, edgeTable(rep.Edges))
		fmt.Fprintln(w, StyleSuccess.Render(fmt.Sprintf("%s %d edge(s) routed", iconSuccess, len(rep.Edges))))
	}
	if len(rep.Dropped) > 0 {
		fmt.Fprintln(w, StyleWarning.Render(fmt.Sprintf("%s %d edge(s) not drawn", iconWarning, len(rep.Dropped))))
		for _, line := range droppedLines(rep.Dropped) {
			fmt.Fprintln(w, "  "+StyleDim.Render(line))
		}
	}
	return nil
}
