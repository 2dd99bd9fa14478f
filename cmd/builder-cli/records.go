package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"campus-cms/internal/cms"
	"campus-cms/internal/model"
	"campus-cms/internal/schema"
)

// findSection accepts either an ID or a slug.
func (a *cliApp) findSection(ref string) (*model.Section, error) {
	sec, err := a.cms.GetSection(ref)
	if errors.Is(err, cms.ErrNotFound) {
		return a.cms.GetSectionBySlug(ref)
	}
	return sec, err
}

// findModule accepts either an ID or a slug.
func (a *cliApp) findModule(ref string) (*model.Module, error) {
	mod, err := a.cms.GetModule(ref)
	if errors.Is(err, cms.ErrNotFound) {
		return a.cms.GetModuleBySlug(ref)
	}
	return mod, err
}

// findPage accepts either an ID or a slug.
func (a *cliApp) findPage(ref string) (*model.Page, error) {
	p, err := a.cms.GetPage(ref)
	if errors.Is(err, cms.ErrNotFound) {
		return a.cms.GetPageBySlug(ref)
	}
	return p, err
}

// confirm asks before a destructive change unless force is set.
func (a *cliApp) confirm(force bool, message string) (bool, error) {
	if force {
		return true, nil
	}
	return a.prompt.Confirm(message, false)
}

func newSectionCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{Use: "section", Short: "Manage page sections"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sections, err := app.cms.ListSections()
			if err != nil {
				return err
			}
			if len(sections) == 0 {
				printf(cmd.OutOrStdout(), "No sections found.\n")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "ID\tSLUG\tNAME\tFIELDS\tITEMS\tACTIVE\n")
			for _, s := range sections {
				items := "-"
				if s.MappingEnabled {
					items = fmt.Sprint(len(s.ItemFields))
				}
				printf(tw, "%s\t%s\t%s\t%d\t%s\t%t\n", s.ID, s.Slug, s.Name, len(s.Fields), items, s.IsActive)
			}
			return tw.Flush()
		},
	}

	var (
		slug     string
		items    bool
		template string
	)
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cms.SectionInput{Name: args[0], Slug: slug, MappingEnabled: items}
			if template != "" {
				data, err := os.ReadFile(template)
				if err != nil {
					return fmt.Errorf("reading template: %w", err)
				}
				in.HTMLTemplate = string(data)
			}
			sec, err := app.cms.CreateSection(in)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Created section %s (%s)\n", sec.Slug, sec.ID)
			return nil
		},
	}
	create.Flags().StringVar(&slug, "slug", "", "custom slug (default: derived from the name)")
	create.Flags().BoolVar(&items, "items", false, "enable repeatable items")
	create.Flags().StringVar(&template, "template", "", "file holding the HTML template")

	var force bool
	del := &cobra.Command{
		Use:   "delete <section>",
		Short: "Delete a section and detach it from every page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sec, err := app.findSection(args[0])
			if err != nil {
				return err
			}
			ok, err := app.confirm(force, fmt.Sprintf("Delete section %q and remove it from all pages?", sec.Name))
			if err != nil || !ok {
				return err
			}
			if err := app.cms.DeleteSection(sec.ID); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Deleted section %s\n", sec.Slug)
			return nil
		},
	}
	del.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	cmd.AddCommand(list, create, del, newExportCmd(app, false), newImportCmd(app, false))
	return cmd
}

func newModuleCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{Use: "module", Short: "Manage content modules"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			modules, err := app.cms.ListModules()
			if err != nil {
				return err
			}
			if len(modules) == 0 {
				printf(cmd.OutOrStdout(), "No modules found.\n")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "ID\tSLUG\tNAME\tFIELDS\tENTRIES\tACTIVE\n")
			for _, m := range modules {
				entries, err := app.cms.ListEntries(m.ID)
				if err != nil {
					return err
				}
				printf(tw, "%s\t%s\t%s\t%d\t%d\t%t\n", m.ID, m.Slug, m.Name, len(m.Fields), len(entries), m.IsActive)
			}
			return tw.Flush()
		},
	}

	var slug, description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, err := app.cms.CreateModule(cms.ModuleInput{Name: args[0], Slug: slug, Description: description})
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Created module %s (%s)\n", mod.Slug, mod.ID)
			return nil
		},
	}
	create.Flags().StringVar(&slug, "slug", "", "custom slug (default: derived from the name)")
	create.Flags().StringVar(&description, "description", "", "module description")

	var force bool
	del := &cobra.Command{
		Use:   "delete <module>",
		Short: "Delete a module with its entries and mappings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, err := app.findModule(args[0])
			if err != nil {
				return err
			}
			ok, err := app.confirm(force, fmt.Sprintf("Delete module %q with all of its entries?", mod.Name))
			if err != nil || !ok {
				return err
			}
			if err := app.cms.DeleteModule(mod.ID); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Deleted module %s\n", mod.Slug)
			return nil
		},
	}
	del.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	cmd.AddCommand(list, create, del, newExportCmd(app, true), newImportCmd(app, true))
	return cmd
}

func newExportCmd(app *cliApp, module bool) *cobra.Command {
	var output, format string
	cmd := &cobra.Command{
		Use:   "export <ref>",
		Short: "Write the definition as JSON or YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc schema.Document
			if module {
				mod, err := app.findModule(args[0])
				if err != nil {
					return err
				}
				doc = schema.Document{Name: mod.Name, Slug: mod.Slug, Fields: mod.Fields}
			} else {
				sec, err := app.findSection(args[0])
				if err != nil {
					return err
				}
				doc = schema.Document{
					Name:           sec.Name,
					Slug:           sec.Slug,
					Fields:         sec.Fields,
					MappingEnabled: sec.MappingEnabled,
					Items:          sec.ItemFields,
					HTMLTemplate:   sec.HTMLTemplate,
				}
			}

			f, err := outputFormat(format, output)
			if err != nil {
				return err
			}
			data, err := schema.Encode(doc, f)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			printf(cmd.OutOrStdout(), "Exported %s to %s\n", doc.Slug, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default: from the file extension)")
	return cmd
}

func newImportCmd(app *cliApp, module bool) *cobra.Command {
	var format string
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a definition from a JSON or YAML file",
		Long:  "Create a definition from a JSON or YAML file. With --replace an existing record with the same slug is updated instead.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			f, err := outputFormat(format, args[0])
			if err != nil {
				return err
			}
			doc, err := schema.Decode(data, f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if module {
				return app.importModule(cmd, doc, replace)
			}
			return app.importSection(cmd, doc, replace)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default: from the file extension)")
	cmd.Flags().BoolVar(&replace, "replace", false, "update the record with the same slug if it exists")
	return cmd
}

func (a *cliApp) importSection(cmd *cobra.Command, doc schema.Document, replace bool) error {
	in := cms.SectionInput{
		Name:           doc.Name,
		Slug:           doc.Slug,
		Fields:         doc.Fields,
		MappingEnabled: doc.MappingEnabled,
		ItemFields:     doc.Items,
		HTMLTemplate:   doc.HTMLTemplate,
	}
	if replace && doc.Slug != "" {
		existing, err := a.cms.GetSectionBySlug(doc.Slug)
		switch {
		case err == nil:
			in.IsActive = &existing.IsActive
			sec, err := a.cms.UpdateSection(existing.ID, in)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Updated section %s (%s)\n", sec.Slug, sec.ID)
			return nil
		case !errors.Is(err, cms.ErrNotFound):
			return err
		}
	}
	sec, err := a.cms.CreateSection(in)
	if err != nil {
		return err
	}
	printf(cmd.OutOrStdout(), "Imported section %s (%s)\n", sec.Slug, sec.ID)
	return nil
}

func (a *cliApp) importModule(cmd *cobra.Command, doc schema.Document, replace bool) error {
	in := cms.ModuleInput{Name: doc.Name, Slug: doc.Slug, Fields: doc.Fields}
	if replace && doc.Slug != "" {
		existing, err := a.cms.GetModuleBySlug(doc.Slug)
		switch {
		case err == nil:
			in.Description = existing.Description
			in.IsActive = &existing.IsActive
			mod, err := a.cms.UpdateModule(existing.ID, in)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Updated module %s (%s)\n", mod.Slug, mod.ID)
			return nil
		case !errors.Is(err, cms.ErrNotFound):
			return err
		}
	}
	mod, err := a.cms.CreateModule(in)
	if err != nil {
		return err
	}
	printf(cmd.OutOrStdout(), "Imported module %s (%s)\n", mod.Slug, mod.ID)
	return nil
}

// outputFormat prefers an explicit --format over the file extension.
func outputFormat(flag, path string) (schema.Format, error) {
	if flag != "" {
		return schema.ParseFormat(flag)
	}
	if path == "" {
		return schema.FormatJSON, nil
	}
	return schema.FormatFromPath(path), nil
}
