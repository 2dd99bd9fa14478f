package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"campus-cms/internal/cms"
	"campus-cms/internal/editor"
	"campus-cms/internal/generator"
	"campus-cms/internal/schema"
)

var errCancelled = errors.New("cancelled")

// schemaFlags picks the schema a field command works on.
type schemaFlags struct {
	section string
	module  string
	target  string
}

func (f *schemaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.section, "section", "", "section ID or slug")
	cmd.Flags().StringVar(&f.module, "module", "", "module ID or slug")
	cmd.Flags().StringVar(&f.target, "target", "fields", "fields or items (sections only)")
	cmd.MarkFlagsMutuallyExclusive("section", "module")
	cmd.MarkFlagsOneRequired("section", "module")
}

func (a *cliApp) schemaRef(f *schemaFlags) (cms.SchemaRef, error) {
	target, err := cms.ParseSchemaTarget(f.target)
	if err != nil {
		return cms.SchemaRef{}, err
	}
	if f.module != "" {
		if target != cms.TargetFields {
			return cms.SchemaRef{}, fmt.Errorf("modules have no %s schema", target)
		}
		mod, err := a.findModule(f.module)
		if err != nil {
			return cms.SchemaRef{}, err
		}
		return cms.ModuleFields(mod.ID), nil
	}
	sec, err := a.findSection(f.section)
	if err != nil {
		return cms.SchemaRef{}, err
	}
	if target == cms.TargetItems {
		return cms.SectionItems(sec.ID), nil
	}
	return cms.SectionFields(sec.ID), nil
}

// openEditor loads the referenced schema into an editor that persists every
// accepted change.
func (a *cliApp) openEditor(ref cms.SchemaRef) (*editor.Editor, error) {
	s, err := a.cms.Schema(ref)
	if err != nil {
		return nil, err
	}
	return editor.New(s, func(next schema.Schema) error {
		return a.cms.ReplaceSchema(ref, next)
	}), nil
}

// fieldFlags are the descriptor attributes settable from the command line.
type fieldFlags struct {
	name         string
	label        string
	typ          string
	required     bool
	placeholder  string
	def          string
	options      []string
	sourceModule string
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.name, "name", "", "field name (default: derived from the label)")
	fs.StringVar(&f.label, "label", "", "field label")
	fs.StringVar(&f.typ, "type", string(schema.TypeText), "field type")
	fs.BoolVar(&f.required, "required", false, "require a value")
	fs.StringVar(&f.placeholder, "placeholder", "", "placeholder text")
	fs.StringVar(&f.def, "default", "", "default value")
	fs.StringArrayVar(&f.options, "option", nil, "choice as value or value=Label (repeatable)")
	fs.StringVar(&f.sourceModule, "source-module", "", "module slug whose entries provide the choices")
}

// apply copies the flags the user set onto the draft. Adding a field applies
// every flag; editing one only those given explicitly.
func (f *fieldFlags) apply(cmd *cobra.Command, all bool, draft *schema.Field) {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }
	if set("label") {
		draft.Label = f.label
	}
	if set("type") {
		draft.Type = schema.FieldType(f.typ)
	}
	if set("required") {
		draft.Required = f.required
	}
	if set("placeholder") {
		draft.Placeholder = f.placeholder
	}
	if set("default") {
		draft.Default = f.def
	}
	if set("option") {
		draft.Options = parseOptions(f.options)
	}
	if set("source-module") {
		draft.SourceModule = f.sourceModule
	}
	if cmd.Flags().Changed("name") {
		draft.Name = f.name
	} else if draft.Name == "" {
		draft.Name = generator.FieldName(draft.Label)
	}
}

func newFieldCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{Use: "field", Short: "Edit the field schema of a section or module"}
	cmd.AddCommand(
		newFieldListCmd(app),
		newFieldAddCmd(app),
		newFieldEditCmd(app),
		newFieldRemoveCmd(app),
		newFieldMoveCmd(app),
	)
	return cmd
}

func newFieldListCmd(app *cliApp) *cobra.Command {
	var sf schemaFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the fields of a schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := app.schemaRef(&sf)
			if err != nil {
				return err
			}
			s, err := app.cms.Schema(ref)
			if err != nil {
				return err
			}
			printSchema(cmd, s)
			return nil
		},
	}
	sf.register(cmd)
	return cmd
}

func newFieldAddCmd(app *cliApp) *cobra.Command {
	var (
		sf          schemaFlags
		ff          fieldFlags
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := app.schemaRef(&sf)
			if err != nil {
				return err
			}
			ed, err := app.openEditor(ref)
			if err != nil {
				return err
			}
			if err := ed.BeginAdd(); err != nil {
				return err
			}
			if interactive {
				err = runFieldWizard(cmd, app.prompt, ed)
			} else {
				err = submitFlags(cmd, ed, &ff, true)
			}
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Added field to %s\n", ref)
			printSchema(cmd, ed.Schema())
			return nil
		},
	}
	sf.register(cmd)
	ff.register(cmd)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for each attribute")
	return cmd
}

func newFieldEditCmd(app *cliApp) *cobra.Command {
	var (
		sf          schemaFlags
		ff          fieldFlags
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Change a field in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := app.schemaRef(&sf)
			if err != nil {
				return err
			}
			ed, err := app.openEditor(ref)
			if err != nil {
				return err
			}
			if err := ed.BeginEdit(args[0]); err != nil {
				return err
			}
			if interactive {
				err = runFieldWizard(cmd, app.prompt, ed)
			} else {
				err = submitFlags(cmd, ed, &ff, false)
			}
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Updated field %s of %s\n", args[0], ref)
			printSchema(cmd, ed.Schema())
			return nil
		},
	}
	sf.register(cmd)
	ff.register(cmd)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for each attribute")
	return cmd
}

func newFieldRemoveCmd(app *cliApp) *cobra.Command {
	var sf schemaFlags
	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := app.schemaRef(&sf)
			if err != nil {
				return err
			}
			ed, err := app.openEditor(ref)
			if err != nil {
				return err
			}
			if _, ok := ed.Schema().Lookup(args[0]); !ok {
				return fmt.Errorf("field %q not found in %s: %w", args[0], ref, cms.ErrNotFound)
			}
			if err := ed.Remove(args[0]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Removed field %s from %s\n", args[0], ref)
			return nil
		},
	}
	sf.register(cmd)
	return cmd
}

func newFieldMoveCmd(app *cliApp) *cobra.Command {
	var sf schemaFlags
	cmd := &cobra.Command{
		Use:   "move <name> <up|down>",
		Short: "Move a field one position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := schema.ParseDirection(args[1])
			if err != nil {
				return err
			}
			ref, err := app.schemaRef(&sf)
			if err != nil {
				return err
			}
			ed, err := app.openEditor(ref)
			if err != nil {
				return err
			}
			if _, ok := ed.Schema().Lookup(args[0]); !ok {
				return fmt.Errorf("field %q not found in %s: %w", args[0], ref, cms.ErrNotFound)
			}
			if err := ed.Move(args[0], dir); err != nil {
				return err
			}
			printSchema(cmd, ed.Schema())
			return nil
		},
	}
	sf.register(cmd)
	return cmd
}

func submitFlags(cmd *cobra.Command, ed *editor.Editor, ff *fieldFlags, all bool) error {
	if err := ed.UpdateDraft(func(f *schema.Field) { ff.apply(cmd, all, f) }); err != nil {
		return err
	}
	if err := ed.Submit(); err != nil {
		ed.Cancel()
		return err
	}
	return nil
}

// runFieldWizard prompts for every attribute of the open draft and submits it.
// A rejected draft is shown with its error and can be corrected or abandoned;
// abandoning leaves the schema as it was.
func runFieldWizard(cmd *cobra.Command, p prompter, ed *editor.Editor) error {
	types := make([]string, len(schema.FieldTypes))
	for i, t := range schema.FieldTypes {
		types[i] = string(t)
	}

	for {
		d := ed.Draft()
		label, err := p.Input("Label", d.Label)
		if err != nil {
			return abandon(ed, err)
		}
		suggested := d.Name
		if suggested == "" {
			suggested = generator.FieldName(label)
		}
		name, err := p.Input("Name", suggested)
		if err != nil {
			return abandon(ed, err)
		}
		typ, err := p.Select("Type", types, string(d.Type))
		if err != nil {
			return abandon(ed, err)
		}

		var source string
		var options []schema.Option
		if schema.FieldType(typ).NeedsOptions() {
			if source, err = p.Input("Source module slug (blank for fixed options)", d.SourceModule); err != nil {
				return abandon(ed, err)
			}
			if source == "" {
				raw, err := p.Input("Options (comma separated, value or value=Label)", formatOptions(d.Options))
				if err != nil {
					return abandon(ed, err)
				}
				options = parseOptions(strings.Split(raw, ","))
			}
		}
		required, err := p.Confirm("Required?", d.Required)
		if err != nil {
			return abandon(ed, err)
		}
		def, err := p.Input("Default value", d.Default)
		if err != nil {
			return abandon(ed, err)
		}

		_ = ed.UpdateDraft(func(f *schema.Field) {
			f.Label = label
			f.Name = name
			f.Type = schema.FieldType(typ)
			f.SourceModule = source
			f.Options = options
			f.Required = required
			f.Default = def
		})
		err = ed.Submit()
		if err == nil {
			return nil
		}
		verr := ed.Err()
		if verr == nil {
			return abandon(ed, err)
		}
		printf(cmd.ErrOrStderr(), "✗ %s: %s\n", verr.Field, verr.Message)
		retry, err := p.Confirm("Fix the field?", true)
		if err != nil {
			return abandon(ed, err)
		}
		if !retry {
			return abandon(ed, errCancelled)
		}
	}
}

func abandon(ed *editor.Editor, err error) error {
	ed.Cancel()
	return err
}

// parseOptions reads "value" and "value=Label" items, skipping blanks.
func parseOptions(raw []string) []schema.Option {
	var out []schema.Option
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		value, label, _ := strings.Cut(item, "=")
		out = append(out, schema.Option{Value: strings.TrimSpace(value), Label: strings.TrimSpace(label)})
	}
	return out
}

func formatOptions(opts []schema.Option) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = o.Value
		if o.Label != "" {
			parts[i] += "=" + o.Label
		}
	}
	return strings.Join(parts, ", ")
}

func printSchema(cmd *cobra.Command, s schema.Schema) {
	if len(s) == 0 {
		printf(cmd.OutOrStdout(), "No fields.\n")
		return
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	printf(tw, "#\tNAME\tTYPE\tLABEL\tREQUIRED\tCHOICES\n")
	for i, f := range s {
		choices := formatOptions(f.Options)
		if f.SourceModule != "" {
			choices = "module:" + f.SourceModule
		}
		printf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n", i+1, f.Name, f.Type, f.Label, f.Required, choices)
	}
	tw.Flush()
}
