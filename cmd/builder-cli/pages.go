package main

import (
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"campus-cms/internal/cms"
	"campus-cms/internal/templating"
)

func newPageCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{Use: "page", Short: "Manage pages"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := app.cms.ListPages()
			if err != nil {
				return err
			}
			if len(pages) == 0 {
				printf(cmd.OutOrStdout(), "No pages found.\n")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "ID\tSLUG\tTITLE\tSECTIONS\tACTIVE\n")
			for _, p := range pages {
				printf(tw, "%s\t%s\t%s\t%d\t%t\n", p.ID, p.Slug, p.Title, len(p.Sections), p.IsActive)
			}
			return tw.Flush()
		},
	}

	var slug string
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create an empty page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.cms.CreatePage(cms.PageInput{Title: args[0], Slug: slug})
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Created page %s (%s)\n", p.Slug, p.ID)
			return nil
		},
	}
	create.Flags().StringVar(&slug, "slug", "", "custom slug (default: derived from the title)")

	attach := &cobra.Command{
		Use:   "attach <page> <section>",
		Short: "Append a section instance to a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.findPage(args[0])
			if err != nil {
				return err
			}
			sec, err := app.findSection(args[1])
			if err != nil {
				return err
			}
			ps, err := app.cms.AttachSection(p.ID, sec.ID)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Attached %s to %s as instance %s\n", sec.Slug, p.Slug, ps.ID)
			return nil
		},
	}

	cmd.AddCommand(list, create, attach, newPageRenderCmd(app))
	return cmd
}

func newPageRenderCmd(app *cliApp) *cobra.Command {
	var (
		output string
		open   bool
	)
	cmd := &cobra.Command{
		Use:   "render <page>",
		Short: "Render a page's sections to HTML",
		Long:  "Render a page's sections to HTML. With --open the result is written to a file and shown in the default browser.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.findPage(args[0])
			if err != nil {
				return err
			}
			opts := []templating.EngineOption{templating.WithLogger(app.logger)}
			if app.cfg.Render.Sanitize {
				opts = append(opts, templating.WithSanitizer())
			}
			rendered, err := templating.NewEngine(app.store, opts...).RenderPage(p)
			if err != nil {
				return err
			}

			if output == "" && !open {
				_, err := fmt.Fprint(cmd.OutOrStdout(), rendered.Body())
				return err
			}
			if output == "" {
				output = filepath.Join(os.TempDir(), "cms-preview-"+p.Slug+".html")
			}
			doc := fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n%s</body>\n</html>\n",
				html.EscapeString(p.Title), rendered.Body())
			if err := os.WriteFile(output, []byte(doc), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			printf(cmd.OutOrStdout(), "Rendered %s to %s\n", p.Slug, output)
			if open {
				if err := openBrowser(output); err != nil {
					app.logger.Warn("Could not open browser", "file", output, "error", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write a standalone HTML file")
	cmd.Flags().BoolVar(&open, "open", false, "open the rendered file in the browser")
	return cmd
}

func openBrowser(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

func newBackupCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <dir>",
		Short: "Copy the data store and uploads into dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.cms.Backup(args[0]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Backup written to %s\n", args[0])
			return nil
		},
	}
}
