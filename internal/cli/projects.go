package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// projectsCommand creates the projects command and its subcommands.
func (c *CLI) projectsCommand() *cobra.Command {
	var (
		asJSON bool
		pick   bool
	)

	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"ls"},
		Short:   "List backend projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := c.newClient()
			if err != nil {
				return err
			}

			spinner := newSpinner(ctx, "Fetching projects...")
			spinner.Start()
			list, err := client.ListProjects(ctx)
			spinner.Stop()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, list)
			}
			if !pick {
				if len(list) == 0 {
					fmt.Fprintln(out, StyleDim.Render("no projects"))
					return nil
				}
				fmt.Fprintln(out, summaryTable(list))
				return nil
			}

			final, err := tea.NewProgram(NewProjectListModel(list)).Run()
			if err != nil {
				return fmt.Errorf("project picker: %w", err)
			}
			sel := final.(ProjectListModel).Selected
			if sel == nil {
				return nil
			}
			p, err := client.GetProject(ctx, sel.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, outline(p))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the listing as JSON")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose a project interactively and show its outline")

	cmd.AddCommand(c.projectShowCommand())
	cmd.AddCommand(c.projectCreateCommand())
	cmd.AddCommand(c.projectDeleteCommand())
	cmd.AddCommand(c.projectBackupCommand())
	cmd.AddCommand(c.projectImportCommand())
	return cmd
}

func (c *CLI) projectShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:               "show <project-id>",
		Short:             "Show a project's outline",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeProjectIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.newClient()
			if err != nil {
				return err
			}
			p, err := client.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintln(cmd.OutOrStdout(), outline(p))
			if cycles := p.Cycles(); len(cycles) > 0 {
				printWarning("%d edge(s) close a cycle", len(cycles))
				for _, e := range cycles {
					printDetail("%s %s %s", e[0], iconArrow, e[1])
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the project as JSON")
	return cmd
}

func (c *CLI) projectCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.newClient()
			if err != nil {
				return err
			}
			p, err := client.CreateProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSuccess("Created %s", p.Name)
			printKeyValue("ID", p.ID)
			return nil
		},
	}
}

func (c *CLI) projectDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "delete <project-id>",
		Short:             "Delete a project and its saved mode layouts",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeProjectIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := c.newClient()
			if err != nil {
				return err
			}
			if err := client.DeleteProject(ctx, args[0]); err != nil {
				return err
			}
			snaps := c.openSnapshots(ctx)
			defer snaps.Close()
			if err := snaps.Delete(ctx, args[0]); err != nil {
				loggerFromContext(ctx).Warn("delete mode layouts", "project", args[0], "err", err)
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}
}

func (c *CLI) projectBackupCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:               "backup <project-id>",
		Short:             "Download the backend's export file for a project",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeProjectIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := c.newClient()
			if err != nil {
				return err
			}

			spinner := newSpinner(ctx, "Downloading export...")
			spinner.Start()
			data, err := client.ExportProject(ctx, args[0])
			if err != nil {
				spinner.StopWithError("Export failed")
				return err
			}

			if output == "" {
				output = args[0] + ".json"
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				spinner.Stop()
				return fmt.Errorf("write backup: %w", err)
			}
			spinner.StopWithSuccess("Backed up " + args[0])
			printFile(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <project-id>.json)")
	return cmd
}

func (c *CLI) projectImportCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a project from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.newClient()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			p, err := client.ImportProject(cmd.Context(), filepath.Base(args[0]), f, name)
			if err != nil {
				return err
			}
			printSuccess("Imported %s", p.Name)
			printKeyValue("ID", p.ID)
			printKeyValue("Nodes", fmt.Sprint(len(p.Nodes())))
			printKeyValue("Edges", fmt.Sprint(len(p.Edges)))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name (default from the file)")
	return cmd
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
