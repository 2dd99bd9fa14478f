// Command builder-cli manages sections, modules and pages from the terminal:
// schema field editing, schema import and export, page rendering and backups.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"campus-cms/internal/cms"
	"campus-cms/internal/config"
	"campus-cms/internal/storage"
)

// cliApp holds what every command needs once the config is loaded.
type cliApp struct {
	cfg    *config.Config
	store  storage.DataStore
	cms    *cms.Manager
	logger *slog.Logger
	prompt prompter
}

func main() {
	if err := newRootCmd(surveyPrompter{}).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. p answers the interactive prompts.
func newRootCmd(p prompter) *cobra.Command {
	app := &cliApp{prompt: p}
	var (
		configFile string
		verbose    bool
	)

	root := &cobra.Command{
		Use:          "builder-cli",
		Short:        "Manage CMS sections, modules and pages",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := new(slog.LevelVar)
			if verbose {
				level.Set(slog.LevelDebug)
			} else {
				level.Set(slog.LevelWarn)
			}
			app.logger = config.NewLogger(cmd.ErrOrStderr(), level)

			loader := config.NewLoader(configFile, app.logger)
			v := loader.Viper()
			if err := v.BindPFlag("storage.driver", cmd.Root().PersistentFlags().Lookup("storage")); err != nil {
				return err
			}
			if err := v.BindPFlag("storage.path", cmd.Root().PersistentFlags().Lookup("data")); err != nil {
				return err
			}
			if err := v.BindPFlag("uploads.dir", cmd.Root().PersistentFlags().Lookup("uploads")); err != nil {
				return err
			}
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			app.cfg = cfg

			app.store, err = storage.Open(cfg.Storage.Driver, cfg.Storage.Path, app.logger)
			if err != nil {
				return fmt.Errorf("opening %s store at %s: %w", cfg.Storage.Driver, cfg.Storage.Path, err)
			}
			app.cms = cms.NewManager(app.store, app.logger, cms.WithUploads(cfg.Uploads.Dir, cfg.Uploads.URLPrefix, cfg.Uploads.MaxBytes))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.store != nil {
				return app.store.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default: ./cms.yaml if present)")
	pf.String("storage", "json", "storage driver: json or sqlite")
	pf.String("data", "data", "data directory (json) or database file (sqlite)")
	pf.String("uploads", "uploads", "uploads directory")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(
		newSectionCmd(app),
		newModuleCmd(app),
		newFieldCmd(app),
		newPageCmd(app),
		newBackupCmd(app),
	)
	return root
}

func printf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
