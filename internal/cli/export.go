package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/export"
	"github.com/matzehuels/kdag/pkg/project"
)

type exportOpts struct {
	format   string
	output   string
	focus    string
	detailed bool
	rankdir  string
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Draw a project's knowledge graph as DOT or SVG",
		Long: `Draw a project's knowledge graph as DOT or SVG.

Chapters and sections become nested clusters. With --focus, the node's
ancestors and descendants are colored the way the analysis view shows them.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeProjectIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			format := strings.ToLower(opts.format)
			if format != "dot" && format != "svg" {
				return errors.New(errors.ErrCodeInvalidInput, "unsupported format %q (want dot or svg)", opts.format)
			}
			switch opts.rankdir = strings.ToUpper(opts.rankdir); opts.rankdir {
			case "", "TB", "LR", "BT", "RL":
			default:
				return errors.New(errors.ErrCodeInvalidInput, "unsupported rankdir %q", opts.rankdir)
			}

			client, err := c.newClient()
			if err != nil {
				return err
			}
			p, err := client.GetProject(ctx, args[0])
			if err != nil {
				return err
			}

			dotOpts := export.Options{Detailed: opts.detailed, RankDir: opts.rankdir}
			if opts.focus != "" {
				a := p.Analyze(opts.focus)
				dotOpts.Highlight = &a
			}

			prog := newProgress(logger)
			data, err := renderProject(cmd, p, format, dotOpts)
			if err != nil {
				return err
			}
			prog.done("rendered", "format", format, "bytes", len(data))

			if opts.output == "" || opts.output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(opts.output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", opts.output, err)
			}
			printSuccess("Exported %s", p.Name)
			printFile(opts.output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "svg", "output format: dot or svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.focus, "focus", "", "highlight this node's ancestors and descendants")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include node content in labels")
	cmd.Flags().StringVar(&opts.rankdir, "rankdir", "", "graph direction: TB, LR, BT or RL")
	return cmd
}

func renderProject(cmd *cobra.Command, p *project.Project, format string, opts export.Options) ([]byte, error) {
	dot := export.ToDOT(p, opts)
	if format == "dot" {
		return []byte(dot), nil
	}

	spinner := newSpinnerTo(cmd.Context(), cmd.ErrOrStderr(), "Rendering SVG...")
	spinner.Start()
	defer spinner.Stop()
	return export.RenderSVG(cmd.Context(), dot)
}
